// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

// Package api exposes the snapshot store over HTTP using chi.
// All responses share the APIResponse envelope; temporal endpoints
// evaluate day boundaries in the event timezone (Gerlach, NV) unless
// the client supplies explicit instants.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/dustdb/dustdb/internal/config"
	"github.com/dustdb/dustdb/internal/database"
	"github.com/dustdb/dustdb/internal/models"
	"github.com/dustdb/dustdb/internal/sync"
)

// eventTimezone is where the event takes place; calendar-day queries
// resolve midnight in this zone.
const eventTimezone = "America/Los_Angeles"

// defaultUpcomingHours bounds the upcoming-events horizon when the
// client does not pass one.
const defaultUpcomingHours = 24

// Handler serves the DustDB HTTP API.
type Handler struct {
	db      *database.DB
	syncMgr *sync.Manager // nil when sync is disabled
	cfg     *config.APIConfig
	tz      *time.Location
}

// NewHandler builds a Handler. syncMgr may be nil when the refresh loop
// is disabled; the refresh endpoint then reports the feature as off.
func NewHandler(db *database.DB, syncMgr *sync.Manager, cfg *config.APIConfig) *Handler {
	tz, err := time.LoadLocation(eventTimezone)
	if err != nil {
		tz = time.UTC
	}
	return &Handler{db: db, syncMgr: syncMgr, cfg: cfg, tz: tz}
}

// Health reports liveness of the store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "db_unavailable", "database not reachable", err)
		return
	}
	respondData(w, map[string]string{"status": "healthy"}, -1)
}

// Status returns the per-kind dataset freshness rows.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	infos, err := h.db.ListUpdateInfo(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load dataset status", err)
		return
	}
	respondData(w, infos, len(infos))
}

// ListArt returns all art installations.
func (h *Handler) ListArt(w http.ResponseWriter, r *http.Request) {
	arts, err := h.db.FetchArt(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load art", err)
		return
	}
	respondData(w, arts, len(arts))
}

// GetArt returns one installation by uid.
func (h *Handler) GetArt(w http.ResponseWriter, r *http.Request) {
	art, err := h.db.GetArt(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load art", err)
		return
	}
	if art == nil {
		respondError(w, http.StatusNotFound, "not_found", "art not found", nil)
		return
	}
	respondData(w, art, -1)
}

// ListCamps returns all theme camps.
func (h *Handler) ListCamps(w http.ResponseWriter, r *http.Request) {
	camps, err := h.db.FetchCamps(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load camps", err)
		return
	}
	respondData(w, camps, len(camps))
}

// GetCamp returns one camp by uid.
func (h *Handler) GetCamp(w http.ResponseWriter, r *http.Request) {
	camp, err := h.db.GetCamp(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load camp", err)
		return
	}
	if camp == nil {
		respondError(w, http.StatusNotFound, "not_found", "camp not found", nil)
		return
	}
	respondData(w, camp, -1)
}

// ListEvents returns every event occurrence as a flat row list, one
// entry per occurrence.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.db.FetchEvents(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load events", err)
		return
	}
	respondData(w, events, len(events))
}

// GetEvent returns one event by uid.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.db.GetEvent(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load event", err)
		return
	}
	if event == nil {
		respondError(w, http.StatusNotFound, "not_found", "event not found", nil)
		return
	}
	respondData(w, event, -1)
}

// HostEvents returns the events hosted at the camp or art installation
// in the path.
func (h *Handler) HostEvents(hostType models.ObjectType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := h.db.FetchEventsForHost(r.Context(), hostType, chi.URLParam(r, "uid"))
		if err != nil {
			respondError(w, http.StatusInternalServerError, "query_failed", "failed to load host events", err)
			return
		}
		respondData(w, events, len(events))
	}
}

// EventsOnDay returns occurrence rows for one calendar day. The date
// query parameter is YYYY-MM-DD, defaulting to today in the event
// timezone.
func (h *Handler) EventsOnDay(w http.ResponseWriter, r *http.Request) {
	day := time.Now().In(h.tz)
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, h.tz)
		if err != nil {
			respondError(w, http.StatusBadRequest, "bad_date", "date must be YYYY-MM-DD", err)
			return
		}
		day = parsed
	}

	rows, err := h.db.FetchEventsOnDay(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load events", err)
		return
	}
	respondData(w, rows, len(rows))
}

// EventsBetween returns occurrence rows overlapping [start, end). Both
// query parameters are RFC3339 instants.
func (h *Handler) EventsBetween(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_window", "start must be RFC3339", err)
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_window", "end must be RFC3339", err)
		return
	}

	rows, err := h.db.FetchEventsBetween(r.Context(), start, end)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_window", "invalid window", err)
		return
	}
	respondData(w, rows, len(rows))
}

// CurrentEvents returns occurrence rows in progress right now.
func (h *Handler) CurrentEvents(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if v := r.URL.Query().Get("now"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "bad_now", "now must be RFC3339", err)
			return
		}
		now = parsed
	}

	rows, err := h.db.FetchCurrentEvents(r.Context(), now)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load events", err)
		return
	}
	respondData(w, rows, len(rows))
}

// UpcomingEvents returns occurrence rows starting within the next N
// hours (default 24).
func (h *Handler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	hours := defaultUpcomingHours
	if v := r.URL.Query().Get("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "bad_hours", "hours must be a positive integer", err)
			return
		}
		hours = parsed
	}

	rows, err := h.db.FetchUpcomingEvents(r.Context(), time.Now(), time.Duration(hours)*time.Hour)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load events", err)
		return
	}
	respondData(w, rows, len(rows))
}

// Search runs a case-insensitive name search across all object kinds.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respondError(w, http.StatusBadRequest, "bad_query", "q parameter is required", nil)
		return
	}
	if h.cfg.MaxSearchQueryLength > 0 && len(q) > h.cfg.MaxSearchQueryLength {
		respondError(w, http.StatusBadRequest, "bad_query",
			fmt.Sprintf("q must be at most %d characters", h.cfg.MaxSearchQueryLength), nil)
		return
	}

	results, err := h.db.Search(r.Context(), q)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "search failed", err)
		return
	}
	respondData(w, results, len(results))
}

// ObjectsInBounds returns every object inside the lat/lon rectangle.
func (h *Handler) ObjectsInBounds(w http.ResponseWriter, r *http.Request) {
	box, err := parseBounds(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_bounds", err.Error(), err)
		return
	}

	results, err := h.db.FetchObjectsInBounds(r.Context(), box)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_bounds", "invalid bounding box", err)
		return
	}
	respondData(w, results, len(results))
}

func parseBounds(r *http.Request) (models.BoundingBox, error) {
	var box models.BoundingBox
	fields := []struct {
		name string
		dst  *float64
	}{
		{"min_lat", &box.MinLat},
		{"max_lat", &box.MaxLat},
		{"min_lon", &box.MinLon},
		{"max_lon", &box.MaxLon},
	}
	for _, f := range fields {
		v := r.URL.Query().Get(f.name)
		if v == "" {
			return box, fmt.Errorf("%s parameter is required", f.name)
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return box, fmt.Errorf("%s must be a number", f.name)
		}
		*f.dst = parsed
	}
	if !box.Valid() {
		return box, fmt.Errorf("bounds must satisfy min_lat <= max_lat and min_lon <= max_lon")
	}
	return box, nil
}

// Favorites returns every favorited object still present in the
// snapshot.
func (h *Handler) Favorites(w http.ResponseWriter, r *http.Request) {
	results, err := h.db.GetFavorites(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load favorites", err)
		return
	}
	respondData(w, results, len(results))
}

// objectTypeParam extracts and validates the {type} path parameter.
func objectTypeParam(r *http.Request) (models.ObjectType, error) {
	t := models.ObjectType(chi.URLParam(r, "type"))
	if !t.Valid() {
		return "", fmt.Errorf("type must be one of art, camp, event")
	}
	return t, nil
}

// ToggleFavorite flips the favorite flag and returns the new state.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	t, err := objectTypeParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_type", err.Error(), nil)
		return
	}

	favorite, err := h.db.ToggleFavorite(r.Context(), t, chi.URLParam(r, "uid"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "write_failed", "failed to toggle favorite", err)
		return
	}
	respondData(w, map[string]bool{"is_favorite": favorite}, -1)
}

// GetMetadata returns the annotation row for one object.
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	t, err := objectTypeParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_type", err.Error(), nil)
		return
	}

	meta, err := h.db.GetObjectMetadata(r.Context(), t, chi.URLParam(r, "uid"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", "failed to load metadata", err)
		return
	}
	if meta == nil {
		respondError(w, http.StatusNotFound, "not_found", "no annotations for object", nil)
		return
	}
	respondData(w, meta, -1)
}

// SetNotes stores user notes for one object. A null or absent notes
// field clears them.
func (h *Handler) SetNotes(w http.ResponseWriter, r *http.Request) {
	t, err := objectTypeParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_type", err.Error(), nil)
		return
	}

	var body struct {
		Notes *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "bad_body", "body must be JSON with a notes field", err)
		return
	}

	if err := h.db.SetNotes(r.Context(), t, chi.URLParam(r, "uid"), body.Notes); err != nil {
		respondError(w, http.StatusInternalServerError, "write_failed", "failed to store notes", err)
		return
	}
	respondData(w, map[string]string{"status": "stored"}, -1)
}

// MarkViewed records the view timestamp for one object.
func (h *Handler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	t, err := objectTypeParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_type", err.Error(), nil)
		return
	}

	if err := h.db.SetLastViewed(r.Context(), t, chi.URLParam(r, "uid"), time.Now()); err != nil {
		respondError(w, http.StatusInternalServerError, "write_failed", "failed to record view", err)
		return
	}
	respondData(w, map[string]string{"status": "recorded"}, -1)
}

// DeleteMetadata removes all annotations for one object.
func (h *Handler) DeleteMetadata(w http.ResponseWriter, r *http.Request) {
	t, err := objectTypeParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_type", err.Error(), nil)
		return
	}

	if err := h.db.DeleteObjectMetadata(r.Context(), t, chi.URLParam(r, "uid")); err != nil {
		respondError(w, http.StatusInternalServerError, "write_failed", "failed to delete metadata", err)
		return
	}
	respondData(w, map[string]string{"status": "deleted"}, -1)
}

// SyncRefresh triggers an immediate dataset refresh.
func (h *Handler) SyncRefresh(w http.ResponseWriter, r *http.Request) {
	if h.syncMgr == nil {
		respondError(w, http.StatusServiceUnavailable, "sync_disabled", "dataset sync is disabled", nil)
		return
	}

	if err := h.syncMgr.Refresh(r.Context()); err != nil {
		respondError(w, http.StatusBadGateway, "refresh_failed", "dataset refresh failed", err)
		return
	}
	respondData(w, map[string]string{"status": "refreshed"}, -1)
}
