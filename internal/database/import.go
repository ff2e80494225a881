// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

/*
import.go - Wholesale Import Pipeline

A reimport replaces every upstream-owned row in one transaction: child
rows are deleted before their parents, then camps and art are inserted
before events so that event GPS coordinates can be denormalized from the
resolved host. The object_metadata table is never touched here, which is
what makes user annotations survive a reimport.

Failure semantics are all-or-nothing: any insert error rolls back the
whole cycle and the previous snapshot remains fully queryable.
*/
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dustdb/dustdb/internal/logging"
	"github.com/dustdb/dustdb/internal/metrics"
	"github.com/dustdb/dustdb/internal/models"
)

// ImportBatch is one complete parsed dataset snapshot: everything the
// store will hold after a successful import.
type ImportBatch struct {
	Arts   []*models.Art
	Camps  []*models.Camp
	Events []*models.Event

	// Versions carries the upstream dataset version per kind, recorded
	// in update_info. Nil entries are allowed.
	Versions map[models.ObjectType]*string
}

// ImportResult summarizes one committed import cycle.
type ImportResult struct {
	ArtCount        int
	CampCount       int
	EventCount      int
	OccurrenceCount int
	Anomalies       int
	Duration        time.Duration
}

// Importer runs wholesale dataset imports against a DB.
type Importer struct {
	db *DB
}

// NewImporter returns an Importer bound to db.
func NewImporter(db *DB) *Importer {
	return &Importer{db: db}
}

// Import replaces the entire stored snapshot with batch in a single
// transaction. On error nothing is changed. User annotations in
// object_metadata are preserved unconditionally.
func (imp *Importer) Import(ctx context.Context, batch ImportBatch) (*ImportResult, error) {
	start := time.Now()

	imp.db.writeMu.Lock()
	defer imp.db.writeMu.Unlock()

	tx, err := imp.db.conn.BeginTx(ctx, nil)
	if err != nil {
		metrics.ImportFailures.Inc()
		return nil, classifyError("import begin", err)
	}
	defer rollbackQuietly(tx)

	result := &ImportResult{}

	if err := clearSnapshot(ctx, tx); err != nil {
		metrics.ImportFailures.Inc()
		return nil, err
	}

	if err := insertCamps(ctx, tx, batch.Camps, result); err != nil {
		metrics.ImportFailures.Inc()
		return nil, err
	}
	if err := insertArts(ctx, tx, batch.Arts, result); err != nil {
		metrics.ImportFailures.Inc()
		return nil, err
	}
	if err := insertEvents(ctx, tx, batch, result); err != nil {
		metrics.ImportFailures.Inc()
		return nil, err
	}

	if err := recordUpdateInfo(ctx, tx, batch, result); err != nil {
		metrics.ImportFailures.Inc()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		metrics.ImportFailures.Inc()
		return nil, classifyError("import commit", err)
	}

	result.Duration = time.Since(start)
	metrics.ImportDuration.Observe(result.Duration.Seconds())
	metrics.ImportedRecords.WithLabelValues(string(models.ObjectTypeArt)).Add(float64(result.ArtCount))
	metrics.ImportedRecords.WithLabelValues(string(models.ObjectTypeCamp)).Add(float64(result.CampCount))
	metrics.ImportedRecords.WithLabelValues(string(models.ObjectTypeEvent)).Add(float64(result.EventCount))

	logging.Info().
		Int("arts", result.ArtCount).
		Int("camps", result.CampCount).
		Int("events", result.EventCount).
		Int("occurrences", result.OccurrenceCount).
		Int("anomalies", result.Anomalies).
		Dur("duration", result.Duration).
		Msg("Import cycle committed")

	return result, nil
}

// clearSnapshot deletes all upstream-owned rows, children before parents.
// object_metadata is deliberately left alone.
func clearSnapshot(ctx context.Context, tx *sql.Tx) error {
	deletes := []string{
		"DELETE FROM art_images",
		"DELETE FROM camp_images",
		"DELETE FROM event_occurrences",
		"DELETE FROM event_objects",
		"DELETE FROM art_objects",
		"DELETE FROM camp_objects",
	}
	for _, q := range deletes {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return classifyError("import clear", err)
		}
	}
	return nil
}

func insertCamps(ctx context.Context, tx *sql.Tx, camps []*models.Camp, result *ImportResult) error {
	const insertCamp = `INSERT INTO camp_objects (` + campColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	const insertImage = `INSERT INTO camp_images (camp_id, thumbnail_url) VALUES (?, ?)`

	for _, c := range camps {
		_, err := tx.ExecContext(ctx, insertCamp,
			c.UID, c.Name, c.Year, c.URL, c.ContactEmail, c.Hometown, c.Description,
			c.Landmark, c.LocationString, c.Frontage, c.Intersection, c.IntersectionType,
			c.Dimensions, c.ExactLocation, c.GPSLatitude, c.GPSLongitude,
		)
		if err != nil {
			return classifyError(fmt.Sprintf("import camp %s", c.UID), err)
		}
		for _, img := range c.Images {
			if _, err := tx.ExecContext(ctx, insertImage, c.UID, img.ThumbnailURL); err != nil {
				return classifyError(fmt.Sprintf("import camp image for %s", c.UID), err)
			}
		}
		result.CampCount++
	}
	return nil
}

func insertArts(ctx context.Context, tx *sql.Tx, arts []*models.Art, result *ImportResult) error {
	const insertArt = `INSERT INTO art_objects (` + artColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	const insertImage = `INSERT INTO art_images (art_id, thumbnail_url, gallery_ref) VALUES (?, ?, ?)`

	for _, a := range arts {
		_, err := tx.ExecContext(ctx, insertArt,
			a.UID, a.Name, a.Year, a.URL, a.ContactEmail, a.Hometown, a.Description,
			a.Artist, a.Category, a.Program, a.DonationLink, a.LocationString,
			a.LocationHour, a.LocationMinute, a.LocationDistance, a.LocationCategory,
			a.GPSLatitude, a.GPSLongitude, a.GuidedTours, a.SelfGuidedTourMap,
		)
		if err != nil {
			return classifyError(fmt.Sprintf("import art %s", a.UID), err)
		}
		for _, img := range a.Images {
			if _, err := tx.ExecContext(ctx, insertImage, a.UID, img.ThumbnailURL, img.GalleryRef); err != nil {
				return classifyError(fmt.Sprintf("import art image for %s", a.UID), err)
			}
		}
		result.ArtCount++
	}
	return nil
}

// gpsPoint is a resolved host coordinate.
type gpsPoint struct {
	lat, lon *float64
}

func insertEvents(ctx context.Context, tx *sql.Tx, batch ImportBatch, result *ImportResult) error {
	const insertEvent = `INSERT INTO event_objects (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	const insertOccurrence = `INSERT INTO event_occurrences (event_id, start_time, end_time) VALUES (?, ?, ?)`

	campGPS := make(map[string]gpsPoint, len(batch.Camps))
	for _, c := range batch.Camps {
		campGPS[c.UID] = gpsPoint{lat: c.GPSLatitude, lon: c.GPSLongitude}
	}
	artGPS := make(map[string]gpsPoint, len(batch.Arts))
	for _, a := range batch.Arts {
		artGPS[a.UID] = gpsPoint{lat: a.GPSLatitude, lon: a.GPSLongitude}
	}

	seen := make(map[string]struct{}, len(batch.Events))

	for _, e := range batch.Events {
		// Duplicate uids within one batch: keep the first record, but
		// still store the duplicate's occurrences so no schedule entry
		// is lost.
		if _, dup := seen[e.UID]; dup {
			recordAnomaly(result, "duplicate_event_uid",
				logging.Warn().Str("uid", e.UID).Str("name", e.Name))
		} else {
			seen[e.UID] = struct{}{}

			label, code := e.EventTypeLabel, e.EventTypeCode
			if label == "" {
				label = models.UnknownEventTypeLabel
			}
			if code == "" {
				code = models.UnknownEventTypeCode
			}

			lat, lon := resolveHostGPS(e, campGPS, artGPS, result)

			_, err := tx.ExecContext(ctx, insertEvent,
				e.UID, e.Name, e.Year, e.EventID, e.Description, label, code,
				e.PrintDescription, e.Slug, e.HostedByCamp, e.LocatedAtArt,
				e.OtherLocation, e.CheckLocation, e.URL, e.AllDay, e.Contact,
				lat, lon,
			)
			if err != nil {
				return classifyError(fmt.Sprintf("import event %s", e.UID), err)
			}
			result.EventCount++
		}

		for _, occ := range e.Occurrences {
			startUTC := occ.StartTime.UTC()
			endUTC := occ.EndTime.UTC()
			if !endUTC.After(startUTC) {
				recordAnomaly(result, "non_positive_duration",
					logging.Warn().Str("uid", e.UID).
						Time("start", startUTC).Time("end", endUTC))
			}
			if _, err := tx.ExecContext(ctx, insertOccurrence, e.UID, startUTC, endUTC); err != nil {
				return classifyError(fmt.Sprintf("import occurrence for %s", e.UID), err)
			}
			result.OccurrenceCount++
		}
	}
	return nil
}

// resolveHostGPS denormalizes the event coordinate from its host. The
// camp coordinate is applied first and an art installation coordinate
// overwrites it when the art reference resolves, so for dual-hosted
// events the art wins. A dangling reference leaves whatever the other
// host provided. Events with neither get no coordinate.
func resolveHostGPS(e *models.Event, campGPS, artGPS map[string]gpsPoint, result *ImportResult) (*float64, *float64) {
	if e.HostedByCamp != nil && e.LocatedAtArt != nil {
		recordAnomaly(result, "dual_host",
			logging.Warn().Str("uid", e.UID).
				Str("camp", *e.HostedByCamp).Str("art", *e.LocatedAtArt))
	}

	var lat, lon *float64
	if e.HostedByCamp != nil {
		if p, ok := campGPS[*e.HostedByCamp]; ok {
			lat, lon = p.lat, p.lon
		} else {
			recordAnomaly(result, "unresolved_host",
				logging.Warn().Str("uid", e.UID).Str("camp", *e.HostedByCamp))
		}
	}
	if e.LocatedAtArt != nil {
		if p, ok := artGPS[*e.LocatedAtArt]; ok {
			lat, lon = p.lat, p.lon
		} else {
			recordAnomaly(result, "unresolved_host",
				logging.Warn().Str("uid", e.UID).Str("art", *e.LocatedAtArt))
		}
	}
	return lat, lon
}

// recordAnomaly bumps the counters and emits the prepared warning event.
func recordAnomaly(result *ImportResult, kind string, evt *zerolog.Event) {
	result.Anomalies++
	metrics.ImportAnomalies.WithLabelValues(kind).Inc()
	evt.Str("anomaly", kind).Msg("Import data anomaly")
}

// recordUpdateInfo upserts the per-kind freshness rows.
func recordUpdateInfo(ctx context.Context, tx *sql.Tx, batch ImportBatch, result *ImportResult) error {
	const upsert = `INSERT INTO update_info (data_type, last_updated, version, total_count, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (data_type) DO UPDATE SET
			last_updated = excluded.last_updated,
			version = excluded.version,
			total_count = excluded.total_count,
			created_at = excluded.created_at`

	now := time.Now().UTC()
	counts := map[models.ObjectType]int{
		models.ObjectTypeArt:   result.ArtCount,
		models.ObjectTypeCamp:  result.CampCount,
		models.ObjectTypeEvent: result.EventCount,
	}

	for _, t := range models.ObjectTypes {
		var version *string
		if batch.Versions != nil {
			version = batch.Versions[t]
		}
		if _, err := tx.ExecContext(ctx, upsert, string(t), now, version, counts[t], now); err != nil {
			return classifyError(fmt.Sprintf("record update info for %s", t), err)
		}
	}
	return nil
}
