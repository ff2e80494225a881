// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dustdb/dustdb/internal/metrics"
)

// requestIDHeader is echoed back on every response and attached to logs.
const requestIDHeader = "X-Request-ID"

// RequestID assigns a UUID to each request unless the client supplied
// one, and echoes it in the response headers.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// Prometheus records request duration and in-flight gauge per route
// pattern. Route patterns (not raw paths) keep the label cardinality
// bounded.
func Prometheus() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			metrics.ObserveHTTPRequest(r.Method, pattern, ww.Status(), time.Since(start))
		})
	}
}
