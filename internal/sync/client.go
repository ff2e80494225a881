// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

// Package sync fetches the upstream Burning Man dataset feeds and drives
// periodic reimports. Outbound requests are rate limited and wrapped in
// a circuit breaker so a flapping upstream cannot hammer the network or
// wedge the refresh loop.
package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/dustdb/dustdb/internal/config"
	"github.com/dustdb/dustdb/internal/logging"
	"github.com/dustdb/dustdb/internal/metrics"
)

// Feed file names served by the upstream dataset host.
const (
	FeedArt    = "art.json"
	FeedCamps  = "camp.json"
	FeedEvents = "event.json"
	FeedUpdate = "update.json"
)

// maxFeedBytes caps a single feed download. The real feeds are a few
// megabytes; anything past this is a misbehaving server.
const maxFeedBytes = 64 << 20

// Client downloads dataset feeds for one year.
type Client struct {
	baseURL string
	year    int
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
}

// NewClient builds a feed client from configuration.
// Circuit breaker configuration:
// - Max 1 probe request in half-open state
// - Opens after 5 consecutive failures
// - 2 minute timeout before attempting recovery
func NewClient(cfg *config.SyncConfig) *Client {
	metrics.CircuitBreakerState.Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "dataset-upstream",
		MaxRequests: 1,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.Set(stateToFloat(to))
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		year:    cfg.Year,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cb:      cb,
	}
}

// Fetch downloads one feed file, honoring the rate limit and circuit
// breaker. Returns the raw body.
func (c *Client) Fetch(ctx context.Context, feed string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	start := time.Now()
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.fetch(ctx, feed)
	})
	metrics.SyncFetchDuration.WithLabelValues(feed).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feed, err)
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, feed string) ([]byte, error) {
	url := fmt.Sprintf("%s/%d/%s", c.baseURL, c.year, feed)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
