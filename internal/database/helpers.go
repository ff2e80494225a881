// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dustdb/dustdb/internal/models"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Column lists shared by every query that returns full entities.
// Keep these in sync with the scan functions below.
const (
	artColumns = `uid, name, year, url, contact_email, hometown, description, artist,
		category, program, donation_link, location_string, location_hour, location_minute,
		location_distance, location_category, gps_latitude, gps_longitude,
		guided_tours, self_guided_tour_map`

	campColumns = `uid, name, year, url, contact_email, hometown, description, landmark,
		location_string, frontage, intersection, intersection_type, dimensions,
		exact_location, gps_latitude, gps_longitude`

	eventColumns = `uid, name, year, event_id, description, event_type_label, event_type_code,
		print_description, slug, hosted_by_camp, located_at_art, other_location,
		check_location, url, all_day, contact, gps_latitude, gps_longitude`
)

func scanArt(s rowScanner) (*models.Art, error) {
	var a models.Art
	err := s.Scan(
		&a.UID, &a.Name, &a.Year, &a.URL, &a.ContactEmail, &a.Hometown, &a.Description,
		&a.Artist, &a.Category, &a.Program, &a.DonationLink, &a.LocationString,
		&a.LocationHour, &a.LocationMinute, &a.LocationDistance, &a.LocationCategory,
		&a.GPSLatitude, &a.GPSLongitude, &a.GuidedTours, &a.SelfGuidedTourMap,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanCamp(s rowScanner) (*models.Camp, error) {
	var c models.Camp
	err := s.Scan(
		&c.UID, &c.Name, &c.Year, &c.URL, &c.ContactEmail, &c.Hometown, &c.Description,
		&c.Landmark, &c.LocationString, &c.Frontage, &c.Intersection, &c.IntersectionType,
		&c.Dimensions, &c.ExactLocation, &c.GPSLatitude, &c.GPSLongitude,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanEvent(s rowScanner) (*models.Event, error) {
	var e models.Event
	err := s.Scan(
		&e.UID, &e.Name, &e.Year, &e.EventID, &e.Description, &e.EventTypeLabel,
		&e.EventTypeCode, &e.PrintDescription, &e.Slug, &e.HostedByCamp, &e.LocatedAtArt,
		&e.OtherLocation, &e.CheckLocation, &e.URL, &e.AllDay, &e.Contact,
		&e.GPSLatitude, &e.GPSLongitude,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// collectRows drains rows through scan, returning the accumulated slice.
// The caller retains responsibility for the query; rows are always closed.
func collectRows[T any](rows *sql.Rows, scan func(rowScanner) (*T, error)) ([]*T, error) {
	defer closeQuietly(rows)

	var out []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return out, nil
}

// escapeLike escapes LIKE metacharacters in user-supplied search text so
// the query matches them literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// prefixColumns qualifies every column in a comma-separated list with a
// table alias, for queries that join against object_metadata.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// placeholders returns a "?, ?, ?" string of length n for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// attachArtImages loads image child rows for the given installations and
// assigns them in place. A single IN query avoids N+1 lookups.
func (db *DB) attachArtImages(ctx context.Context, arts []*models.Art) error {
	if len(arts) == 0 {
		return nil
	}

	byUID := make(map[string]*models.Art, len(arts))
	args := make([]any, 0, len(arts))
	for _, a := range arts {
		byUID[a.UID] = a
		args = append(args, a.UID)
	}

	query := fmt.Sprintf(`SELECT id, art_id, thumbnail_url, gallery_ref
		FROM art_images WHERE art_id IN (%s) ORDER BY id`, placeholders(len(args)))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query art images: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var img models.ArtImage
		if err := rows.Scan(&img.ID, &img.ArtID, &img.ThumbnailURL, &img.GalleryRef); err != nil {
			return fmt.Errorf("failed to scan art image: %w", err)
		}
		if a, ok := byUID[img.ArtID]; ok {
			a.Images = append(a.Images, img)
		}
	}
	return rows.Err()
}

// attachCampImages loads image child rows for the given camps.
func (db *DB) attachCampImages(ctx context.Context, camps []*models.Camp) error {
	if len(camps) == 0 {
		return nil
	}

	byUID := make(map[string]*models.Camp, len(camps))
	args := make([]any, 0, len(camps))
	for _, c := range camps {
		byUID[c.UID] = c
		args = append(args, c.UID)
	}

	query := fmt.Sprintf(`SELECT id, camp_id, thumbnail_url
		FROM camp_images WHERE camp_id IN (%s) ORDER BY id`, placeholders(len(args)))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query camp images: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var img models.CampImage
		if err := rows.Scan(&img.ID, &img.CampID, &img.ThumbnailURL); err != nil {
			return fmt.Errorf("failed to scan camp image: %w", err)
		}
		if c, ok := byUID[img.CampID]; ok {
			c.Images = append(c.Images, img)
		}
	}
	return rows.Err()
}

// attachOccurrences loads all occurrence rows for the given events.
func (db *DB) attachOccurrences(ctx context.Context, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}

	byUID := make(map[string]*models.Event, len(events))
	args := make([]any, 0, len(events))
	for _, e := range events {
		byUID[e.UID] = e
		args = append(args, e.UID)
	}

	query := fmt.Sprintf(`SELECT id, event_id, start_time, end_time
		FROM event_occurrences WHERE event_id IN (%s) ORDER BY start_time, id`, placeholders(len(args)))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query event occurrences: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var occ models.EventOccurrence
		if err := rows.Scan(&occ.ID, &occ.EventID, &occ.StartTime, &occ.EndTime); err != nil {
			return fmt.Errorf("failed to scan event occurrence: %w", err)
		}
		occ.StartTime = occ.StartTime.UTC()
		occ.EndTime = occ.EndTime.UTC()
		if e, ok := byUID[occ.EventID]; ok {
			e.Occurrences = append(e.Occurrences, occ)
		}
	}
	return rows.Err()
}

// utcOrNil normalizes an optional timestamp scanned from the store.
func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
