// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dustdb/dustdb/internal/config"
	"github.com/dustdb/dustdb/internal/database"
	"github.com/dustdb/dustdb/internal/models"
)

func setupRouter(t *testing.T) (http.Handler, *database.DB) {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{
		Path:        ":memory:",
		MaxMemory:   "1GB",
		SkipIndexes: true,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.APIConfig{
		RateLimitPerMinute:   10000,
		CORSAllowedOrigins:   []string{"*"},
		MaxSearchQueryLength: 64,
	}
	return NewRouter(db, nil, cfg), db
}

func seedSnapshot(t *testing.T, db *database.DB) {
	t.Helper()

	lat, lon := 40.7866, -119.2066
	hometown := "Reno, NV"
	camp := "camp-1"
	start := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)

	batch := database.ImportBatch{
		Arts: []*models.Art{{
			UID: "art-1", Name: "Temple of Echoes", Year: 2026,
			Hometown: &hometown, GPSLatitude: &lat, GPSLongitude: &lon,
		}},
		Camps: []*models.Camp{{
			UID: "camp-1", Name: "Dust Haven", Year: 2026,
			GPSLatitude: &lat, GPSLongitude: &lon,
		}},
		Events: []*models.Event{{
			UID: "event-1", Name: "Sunset Tea", Year: 2026,
			EventTypeLabel: "Coffee/Tea", EventTypeCode: "tea",
			HostedByCamp: &camp,
			Occurrences: []models.EventOccurrence{
				{EventID: "event-1", StartTime: start, EndTime: start.Add(2 * time.Hour)},
			},
		}},
	}
	if _, err := database.NewImporter(db).Import(context.Background(), batch); err != nil {
		t.Fatalf("seed import: %v", err)
	}
}

// envelope mirrors APIResponse with raw data for per-test decoding.
type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata struct {
		Count int `json:"count"`
	} `json:"metadata"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doRequest(t *testing.T, router http.Handler, method, path string, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope from %s %s: %v\nbody: %s", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status: %d", rec.Code)
	}
	if env.Status != "ok" {
		t.Errorf("envelope status: %q", env.Status)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content type: %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("missing ETag header")
	}
}

func TestListAndGetObjects(t *testing.T) {
	router, db := setupRouter(t)
	seedSnapshot(t, db)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/art", "")
	if rec.Code != http.StatusOK || env.Metadata.Count != 1 {
		t.Errorf("list art: status %d, count %d", rec.Code, env.Metadata.Count)
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/art/art-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get art: %d", rec.Code)
	}
	var art models.Art
	if err := json.Unmarshal(env.Data, &art); err != nil {
		t.Fatalf("decode art: %v", err)
	}
	if art.Name != "Temple of Echoes" {
		t.Errorf("art name: %q", art.Name)
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/camps/camp-1/events", "")
	if rec.Code != http.StatusOK || env.Metadata.Count != 1 {
		t.Errorf("camp events: status %d, count %d", rec.Code, env.Metadata.Count)
	}
}

func TestGetMissingObjectReturns404Envelope(t *testing.T) {
	router, _ := setupRouter(t)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/events/no-such-uid", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: %d", rec.Code)
	}
	if env.Status != "error" || env.Error == nil || env.Error.Code != "not_found" {
		t.Errorf("error envelope: %+v", env)
	}
}

func TestSearchValidation(t *testing.T) {
	router, db := setupRouter(t)
	seedSnapshot(t, db)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/objects/search", "")
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "bad_query" {
		t.Errorf("missing q: status %d, env %+v", rec.Code, env)
	}

	long := strings.Repeat("x", 65)
	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/objects/search?q="+long, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("overlong q: status %d", rec.Code)
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/objects/search?q=temple", "")
	if rec.Code != http.StatusOK || env.Metadata.Count != 1 {
		t.Errorf("search: status %d, count %d", rec.Code, env.Metadata.Count)
	}
}

func TestEventsOnDay(t *testing.T) {
	router, db := setupRouter(t)
	seedSnapshot(t, db)

	// The seeded occurrence starts 2026-09-01T20:00Z, which is 13:00 on
	// Sep 1 in the event timezone.
	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/events/day?date=2026-09-01", "")
	if rec.Code != http.StatusOK || env.Metadata.Count != 1 {
		t.Errorf("day with event: status %d, count %d", rec.Code, env.Metadata.Count)
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/events/day?date=2026-09-03", "")
	if rec.Code != http.StatusOK || env.Metadata.Count != 0 {
		t.Errorf("day without event: status %d, count %d", rec.Code, env.Metadata.Count)
	}

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/events/day?date=yesterday", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status %d", rec.Code)
	}
}

func TestEventsBetweenValidation(t *testing.T) {
	router, db := setupRouter(t)
	seedSnapshot(t, db)

	rec, env := doRequest(t, router, http.MethodGet,
		"/api/v1/events/between?start=2026-09-01T00:00:00Z&end=2026-09-02T00:00:00Z", "")
	if rec.Code != http.StatusOK || env.Metadata.Count != 1 {
		t.Errorf("between: status %d, count %d", rec.Code, env.Metadata.Count)
	}

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/events/between?start=notatime&end=2026-09-02T00:00:00Z", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad start: status %d", rec.Code)
	}

	// Empty window is rejected by the store.
	rec, _ = doRequest(t, router, http.MethodGet,
		"/api/v1/events/between?start=2026-09-02T00:00:00Z&end=2026-09-02T00:00:00Z", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty window: status %d", rec.Code)
	}
}

func TestCurrentEventsAtInstant(t *testing.T) {
	router, db := setupRouter(t)
	seedSnapshot(t, db)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/events/current?now=2026-09-01T21:00:00Z", "")
	if rec.Code != http.StatusOK || env.Metadata.Count != 1 {
		t.Errorf("during event: status %d, count %d", rec.Code, env.Metadata.Count)
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/events/current?now=2026-09-01T23:00:00Z", "")
	if rec.Code != http.StatusOK || env.Metadata.Count != 0 {
		t.Errorf("after event: status %d, count %d", rec.Code, env.Metadata.Count)
	}
}

func TestBoundsValidation(t *testing.T) {
	router, db := setupRouter(t)
	seedSnapshot(t, db)

	rec, env := doRequest(t, router, http.MethodGet,
		"/api/v1/objects/bounds?min_lat=40.7&max_lat=40.8&min_lon=-119.3&max_lon=-119.1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("bounds: status %d", rec.Code)
	}
	// Art, camp, and the camp-hosted event all share the same point.
	if env.Metadata.Count != 3 {
		t.Errorf("bounds count: %d", env.Metadata.Count)
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/objects/bounds?min_lat=40.7&max_lat=40.8&min_lon=-119.1", "")
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "bad_bounds" {
		t.Errorf("missing param: status %d, env %+v", rec.Code, env)
	}

	rec, _ = doRequest(t, router, http.MethodGet,
		"/api/v1/objects/bounds?min_lat=40.8&max_lat=40.7&min_lon=-119.3&max_lon=-119.1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("inverted box: status %d", rec.Code)
	}
}

func TestFavoriteLifecycle(t *testing.T) {
	router, db := setupRouter(t)
	seedSnapshot(t, db)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/objects/art/art-1/favorite", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: status %d", rec.Code)
	}
	var state map[string]bool
	if err := json.Unmarshal(env.Data, &state); err != nil {
		t.Fatalf("decode toggle response: %v", err)
	}
	if !state["is_favorite"] {
		t.Error("first toggle should favorite")
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/favorites", "")
	if rec.Code != http.StatusOK || env.Metadata.Count != 1 {
		t.Errorf("favorites: status %d, count %d", rec.Code, env.Metadata.Count)
	}

	rec, env = doRequest(t, router, http.MethodPost, "/api/v1/objects/art/art-1/favorite", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("second toggle: status %d", rec.Code)
	}
	if err := json.Unmarshal(env.Data, &state); err != nil {
		t.Fatalf("decode toggle response: %v", err)
	}
	if state["is_favorite"] {
		t.Error("second toggle should unfavorite")
	}
}

func TestMetadataLifecycle(t *testing.T) {
	router, db := setupRouter(t)
	seedSnapshot(t, db)

	rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/objects/camp/camp-1/metadata", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("metadata before writes: status %d", rec.Code)
	}

	rec, _ = doRequest(t, router, http.MethodPut, "/api/v1/objects/camp/camp-1/notes", `{"notes": "great shade"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set notes: status %d", rec.Code)
	}

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/objects/camp/camp-1/metadata", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metadata after notes: status %d", rec.Code)
	}
	var meta models.ObjectMetadata
	if err := json.Unmarshal(env.Data, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.UserNotes == nil || *meta.UserNotes != "great shade" {
		t.Errorf("notes not stored: %+v", meta)
	}

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/objects/camp/camp-1/viewed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("mark viewed: status %d", rec.Code)
	}

	rec, _ = doRequest(t, router, http.MethodDelete, "/api/v1/objects/camp/camp-1/metadata", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete metadata: status %d", rec.Code)
	}
	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/objects/camp/camp-1/metadata", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("metadata after delete: status %d", rec.Code)
	}
}

func TestInvalidObjectTypeRejected(t *testing.T) {
	router, _ := setupRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/objects/bicycle/x/favorite", "")
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "bad_type" {
		t.Errorf("invalid type: status %d, env %+v", rec.Code, env)
	}
}

func TestSyncRefreshDisabled(t *testing.T) {
	router, _ := setupRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/sync/refresh", "")
	if rec.Code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != "sync_disabled" {
		t.Errorf("sync refresh while disabled: status %d, env %+v", rec.Code, env)
	}
}

func TestRequestIDHeader(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("request ID should be generated when absent")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(requestIDHeader, "fixed-id-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "fixed-id-123" {
		t.Errorf("request ID not echoed: %q", got)
	}
}
