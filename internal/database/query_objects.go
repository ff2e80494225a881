// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

/*
query_objects.go - Object Queries

Full-collection fetches, single-object lookups, case-insensitive name
search, bounding-box region queries, and the favorites join. Queries
that span kinds always return art, then camps, then events; within a
kind rows are ordered by name.
*/
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dustdb/dustdb/internal/metrics"
	"github.com/dustdb/dustdb/internal/models"
)

// FetchArt returns all art installations ordered by name, with their
// image child rows attached.
func (db *DB) FetchArt(ctx context.Context) ([]*models.Art, error) {
	defer metrics.ObserveQuery("fetch_art", time.Now())

	rows, err := db.conn.QueryContext(ctx, `SELECT `+artColumns+` FROM art_objects ORDER BY name`)
	if err != nil {
		cerr := classifyError("fetch art", err)
		metrics.RecordQueryError("fetch_art", errorType(cerr))
		return nil, cerr
	}

	arts, err := collectRows(rows, scanArt)
	if err != nil {
		return nil, classifyError("fetch art", err)
	}
	if err := db.attachArtImages(ctx, arts); err != nil {
		return nil, classifyError("fetch art", err)
	}
	return arts, nil
}

// FetchCamps returns all theme camps ordered by name, with their image
// child rows attached.
func (db *DB) FetchCamps(ctx context.Context) ([]*models.Camp, error) {
	defer metrics.ObserveQuery("fetch_camps", time.Now())

	rows, err := db.conn.QueryContext(ctx, `SELECT `+campColumns+` FROM camp_objects ORDER BY name`)
	if err != nil {
		cerr := classifyError("fetch camps", err)
		metrics.RecordQueryError("fetch_camps", errorType(cerr))
		return nil, cerr
	}

	camps, err := collectRows(rows, scanCamp)
	if err != nil {
		return nil, classifyError("fetch camps", err)
	}
	if err := db.attachCampImages(ctx, camps); err != nil {
		return nil, classifyError("fetch camps", err)
	}
	return camps, nil
}

// GetArt returns one installation by uid, or nil when absent.
func (db *DB) GetArt(ctx context.Context, uid string) (*models.Art, error) {
	defer metrics.ObserveQuery("get_art", time.Now())

	row := db.conn.QueryRowContext(ctx, `SELECT `+artColumns+` FROM art_objects WHERE uid = ?`, uid)
	a, err := scanArt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classifyError("get art", err)
	}
	if err := db.attachArtImages(ctx, []*models.Art{a}); err != nil {
		return nil, classifyError("get art", err)
	}
	return a, nil
}

// GetCamp returns one camp by uid, or nil when absent.
func (db *DB) GetCamp(ctx context.Context, uid string) (*models.Camp, error) {
	defer metrics.ObserveQuery("get_camp", time.Now())

	row := db.conn.QueryRowContext(ctx, `SELECT `+campColumns+` FROM camp_objects WHERE uid = ?`, uid)
	c, err := scanCamp(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classifyError("get camp", err)
	}
	if err := db.attachCampImages(ctx, []*models.Camp{c}); err != nil {
		return nil, classifyError("get camp", err)
	}
	return c, nil
}

// GetEvent returns one event by uid with all its occurrences, or nil
// when absent.
func (db *DB) GetEvent(ctx context.Context, uid string) (*models.Event, error) {
	defer metrics.ObserveQuery("get_event", time.Now())

	row := db.conn.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM event_objects WHERE uid = ?`, uid)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classifyError("get event", err)
	}
	if err := db.attachOccurrences(ctx, []*models.Event{e}); err != nil {
		return nil, classifyError("get event", err)
	}
	return e, nil
}

// Search performs a case-insensitive substring match across all three
// kinds, covering name, description, and one kind-specific field
// (artist for art, landmark for camps, the event type label for
// events). Results come back art first, then camps, then events, each
// group ordered by name. An empty query returns nothing.
func (db *DB) Search(ctx context.Context, query string) ([]models.DataObject, error) {
	defer metrics.ObserveQuery("search", time.Now())

	if query == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(query) + "%"
	args := []any{pattern, pattern, pattern}

	var results []models.DataObject

	artRows, err := db.conn.QueryContext(ctx,
		`SELECT `+artColumns+` FROM art_objects
		WHERE name ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\' OR artist ILIKE ? ESCAPE '\'
		ORDER BY name`, args...)
	if err != nil {
		cerr := classifyError("search art", err)
		metrics.RecordQueryError("search", errorType(cerr))
		return nil, cerr
	}
	arts, err := collectRows(artRows, scanArt)
	if err != nil {
		return nil, classifyError("search art", err)
	}
	for _, a := range arts {
		results = append(results, models.ArtObject(*a))
	}

	campRows, err := db.conn.QueryContext(ctx,
		`SELECT `+campColumns+` FROM camp_objects
		WHERE name ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\' OR landmark ILIKE ? ESCAPE '\'
		ORDER BY name`, args...)
	if err != nil {
		cerr := classifyError("search camps", err)
		metrics.RecordQueryError("search", errorType(cerr))
		return nil, cerr
	}
	camps, err := collectRows(campRows, scanCamp)
	if err != nil {
		return nil, classifyError("search camps", err)
	}
	for _, c := range camps {
		results = append(results, models.CampObject(*c))
	}

	eventRows, err := db.conn.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM event_objects
		WHERE name ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\' OR event_type_label ILIKE ? ESCAPE '\'
		ORDER BY name`, args...)
	if err != nil {
		cerr := classifyError("search events", err)
		metrics.RecordQueryError("search", errorType(cerr))
		return nil, cerr
	}
	events, err := collectRows(eventRows, scanEvent)
	if err != nil {
		return nil, classifyError("search events", err)
	}
	if err := db.attachOccurrences(ctx, events); err != nil {
		return nil, classifyError("search events", err)
	}
	for _, e := range events {
		results = append(results, models.EventObject(*e))
	}

	return results, nil
}

// FetchObjectsInBounds returns every object whose GPS point lies inside
// the bounding box (inclusive edges). Objects without coordinates never
// match. Ordering is art, camps, events, by name within each kind.
func (db *DB) FetchObjectsInBounds(ctx context.Context, box models.BoundingBox) ([]models.DataObject, error) {
	defer metrics.ObserveQuery("fetch_objects_in_bounds", time.Now())

	if !box.Valid() {
		return nil, fmt.Errorf("invalid bounding box: %+v", box)
	}

	const where = ` WHERE gps_latitude IS NOT NULL AND gps_longitude IS NOT NULL
		AND gps_latitude >= ? AND gps_latitude <= ?
		AND gps_longitude >= ? AND gps_longitude <= ? ORDER BY name`
	args := []any{box.MinLat, box.MaxLat, box.MinLon, box.MaxLon}

	var results []models.DataObject

	artRows, err := db.conn.QueryContext(ctx, `SELECT `+artColumns+` FROM art_objects`+where, args...)
	if err != nil {
		cerr := classifyError("fetch objects in bounds", err)
		metrics.RecordQueryError("fetch_objects_in_bounds", errorType(cerr))
		return nil, cerr
	}
	arts, err := collectRows(artRows, scanArt)
	if err != nil {
		return nil, classifyError("fetch objects in bounds", err)
	}
	for _, a := range arts {
		results = append(results, models.ArtObject(*a))
	}

	campRows, err := db.conn.QueryContext(ctx, `SELECT `+campColumns+` FROM camp_objects`+where, args...)
	if err != nil {
		cerr := classifyError("fetch objects in bounds", err)
		metrics.RecordQueryError("fetch_objects_in_bounds", errorType(cerr))
		return nil, cerr
	}
	camps, err := collectRows(campRows, scanCamp)
	if err != nil {
		return nil, classifyError("fetch objects in bounds", err)
	}
	for _, c := range camps {
		results = append(results, models.CampObject(*c))
	}

	eventRows, err := db.conn.QueryContext(ctx, `SELECT `+eventColumns+` FROM event_objects`+where, args...)
	if err != nil {
		cerr := classifyError("fetch objects in bounds", err)
		metrics.RecordQueryError("fetch_objects_in_bounds", errorType(cerr))
		return nil, cerr
	}
	events, err := collectRows(eventRows, scanEvent)
	if err != nil {
		return nil, classifyError("fetch objects in bounds", err)
	}
	for _, e := range events {
		results = append(results, models.EventObject(*e))
	}

	return results, nil
}

// GetFavorites returns every favorited object that still exists in the
// current snapshot. Annotations whose object vanished in a reimport are
// silently skipped (the inner join drops them); they are not deleted,
// so the favorite resurfaces if the object returns in a later import.
func (db *DB) GetFavorites(ctx context.Context) ([]models.DataObject, error) {
	defer metrics.ObserveQuery("get_favorites", time.Now())

	var results []models.DataObject

	artRows, err := db.conn.QueryContext(ctx, `SELECT `+prefixColumns("a", artColumns)+`
		FROM art_objects a
		JOIN object_metadata m ON m.object_type = ? AND m.object_id = a.uid
		WHERE m.is_favorite ORDER BY a.name`, string(models.ObjectTypeArt))
	if err != nil {
		cerr := classifyError("get favorites", err)
		metrics.RecordQueryError("get_favorites", errorType(cerr))
		return nil, cerr
	}
	arts, err := collectRows(artRows, scanArt)
	if err != nil {
		return nil, classifyError("get favorites", err)
	}
	for _, a := range arts {
		results = append(results, models.ArtObject(*a))
	}

	campRows, err := db.conn.QueryContext(ctx, `SELECT `+prefixColumns("c", campColumns)+`
		FROM camp_objects c
		JOIN object_metadata m ON m.object_type = ? AND m.object_id = c.uid
		WHERE m.is_favorite ORDER BY c.name`, string(models.ObjectTypeCamp))
	if err != nil {
		cerr := classifyError("get favorites", err)
		metrics.RecordQueryError("get_favorites", errorType(cerr))
		return nil, cerr
	}
	camps, err := collectRows(campRows, scanCamp)
	if err != nil {
		return nil, classifyError("get favorites", err)
	}
	for _, c := range camps {
		results = append(results, models.CampObject(*c))
	}

	eventRows, err := db.conn.QueryContext(ctx, `SELECT `+prefixColumns("e", eventColumns)+`
		FROM event_objects e
		JOIN object_metadata m ON m.object_type = ? AND m.object_id = e.uid
		WHERE m.is_favorite ORDER BY e.name`, string(models.ObjectTypeEvent))
	if err != nil {
		cerr := classifyError("get favorites", err)
		metrics.RecordQueryError("get_favorites", errorType(cerr))
		return nil, cerr
	}
	events, err := collectRows(eventRows, scanEvent)
	if err != nil {
		return nil, classifyError("get favorites", err)
	}
	if err := db.attachOccurrences(ctx, events); err != nil {
		return nil, classifyError("get favorites", err)
	}
	for _, e := range events {
		results = append(results, models.EventObject(*e))
	}

	return results, nil
}
