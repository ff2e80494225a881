// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dustdb/dustdb/internal/config"
	"github.com/dustdb/dustdb/internal/database"
	"github.com/dustdb/dustdb/internal/models"
	"github.com/dustdb/dustdb/internal/sync"
)

// NewRouter wires the full route tree. syncMgr may be nil when the
// refresh loop is disabled.
func NewRouter(db *database.DB, syncMgr *sync.Manager, cfg *config.APIConfig) http.Handler {
	h := NewHandler(db, syncMgr, cfg)

	r := chi.NewRouter()

	r.Use(RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
		r.Use(Prometheus())

		r.Get("/health", h.Health)
		r.Get("/status", h.Status)

		r.Get("/art", h.ListArt)
		r.Get("/art/{uid}", h.GetArt)
		r.Get("/art/{uid}/events", h.HostEvents(models.ObjectTypeArt))
		r.Get("/camps", h.ListCamps)
		r.Get("/camps/{uid}", h.GetCamp)
		r.Get("/camps/{uid}/events", h.HostEvents(models.ObjectTypeCamp))

		r.Get("/events", h.ListEvents)
		r.Get("/events/day", h.EventsOnDay)
		r.Get("/events/between", h.EventsBetween)
		r.Get("/events/current", h.CurrentEvents)
		r.Get("/events/upcoming", h.UpcomingEvents)
		r.Get("/events/{uid}", h.GetEvent)

		r.Get("/objects/search", h.Search)
		r.Get("/objects/bounds", h.ObjectsInBounds)
		r.Get("/favorites", h.Favorites)

		r.Route("/objects/{type}/{uid}", func(r chi.Router) {
			r.Post("/favorite", h.ToggleFavorite)
			r.Get("/metadata", h.GetMetadata)
			r.Delete("/metadata", h.DeleteMetadata)
			r.Put("/notes", h.SetNotes)
			r.Post("/viewed", h.MarkViewed)
		})

		r.Post("/sync/refresh", h.SyncRefresh)
	})

	return r
}
