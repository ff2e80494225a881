// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

/*
query_events.go - Temporal Event Queries

Every temporal query returns occurrence rows: one (event, occurrence)
pair per matching interval, ordered by start time. A recurring event
contributes one row per matching occurrence.

Window semantics:
  - Day / between: interval overlap, start < windowEnd AND end > windowStart.
    An occurrence spanning midnight therefore appears on both days.
  - Current: half-open containment, start <= now < end.
  - Upcoming: strictly future starts within the horizon, start > now AND
    start <= now + horizon.
*/
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dustdb/dustdb/internal/metrics"
	"github.com/dustdb/dustdb/internal/models"
)

// FetchEvents returns the full event/occurrence cross join: one row per
// occurrence, ordered by start time. Events without occurrences do not
// appear.
func (db *DB) FetchEvents(ctx context.Context) ([]models.EventOccurrenceRow, error) {
	defer metrics.ObserveQuery("fetch_events", time.Now())

	return db.queryOccurrenceRows(ctx, "fetch_events", "")
}

// FetchEventsOnDay returns occurrence rows overlapping the calendar day
// containing day, evaluated in day's location. The day window is
// [midnight, next midnight); an occurrence spanning midnight shows up on
// both days.
func (db *DB) FetchEventsOnDay(ctx context.Context, day time.Time) ([]models.EventOccurrenceRow, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	return db.FetchEventsBetween(ctx, dayStart, dayEnd)
}

// FetchEventsBetween returns occurrence rows overlapping the window
// [start, end): every occurrence with start_time < end AND end_time >
// start, ordered by start time.
func (db *DB) FetchEventsBetween(ctx context.Context, start, end time.Time) ([]models.EventOccurrenceRow, error) {
	defer metrics.ObserveQuery("fetch_events_between", time.Now())

	if !end.After(start) {
		return nil, fmt.Errorf("invalid window: end %v not after start %v", end, start)
	}

	return db.queryOccurrenceRows(ctx, "fetch_events_between",
		`o.start_time < ? AND o.end_time > ?`, end.UTC(), start.UTC())
}

// FetchCurrentEvents returns occurrence rows in progress at now, using
// the half-open convention start <= now < end. An occurrence starting
// exactly now is current; one ending exactly now is not.
func (db *DB) FetchCurrentEvents(ctx context.Context, now time.Time) ([]models.EventOccurrenceRow, error) {
	defer metrics.ObserveQuery("fetch_current_events", time.Now())

	return db.queryOccurrenceRows(ctx, "fetch_current_events",
		`o.start_time <= ? AND o.end_time > ?`, now.UTC(), now.UTC())
}

// FetchUpcomingEvents returns occurrence rows starting strictly after
// now and no later than now + horizon, soonest first.
func (db *DB) FetchUpcomingEvents(ctx context.Context, now time.Time, horizon time.Duration) ([]models.EventOccurrenceRow, error) {
	defer metrics.ObserveQuery("fetch_upcoming_events", time.Now())

	if horizon <= 0 {
		return nil, fmt.Errorf("invalid horizon: %v", horizon)
	}

	return db.queryOccurrenceRows(ctx, "fetch_upcoming_events",
		`o.start_time > ? AND o.start_time <= ?`, now.UTC(), now.UTC().Add(horizon))
}

// queryOccurrenceRows runs the occurrence/event join with the given
// predicate over the occurrence alias o (empty for no filter), ordered
// by start time then event name for a stable result.
func (db *DB) queryOccurrenceRows(ctx context.Context, op, predicate string, args ...any) ([]models.EventOccurrenceRow, error) {
	query := `SELECT o.id, o.event_id, o.start_time, o.end_time, ` +
		prefixColumns("e", eventColumns) + `
		FROM event_occurrences o
		JOIN event_objects e ON e.uid = o.event_id`
	if predicate != "" {
		query += ` WHERE ` + predicate
	}
	query += ` ORDER BY o.start_time, e.name, o.id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		cerr := classifyError(op, err)
		metrics.RecordQueryError(op, errorType(cerr))
		return nil, cerr
	}
	defer closeQuietly(rows)

	var out []models.EventOccurrenceRow
	for rows.Next() {
		var r models.EventOccurrenceRow
		occ := &r.Occurrence
		e := &r.Event
		err := rows.Scan(
			&occ.ID, &occ.EventID, &occ.StartTime, &occ.EndTime,
			&e.UID, &e.Name, &e.Year, &e.EventID, &e.Description, &e.EventTypeLabel,
			&e.EventTypeCode, &e.PrintDescription, &e.Slug, &e.HostedByCamp, &e.LocatedAtArt,
			&e.OtherLocation, &e.CheckLocation, &e.URL, &e.AllDay, &e.Contact,
			&e.GPSLatitude, &e.GPSLongitude,
		)
		if err != nil {
			return nil, classifyError(op, fmt.Errorf("failed to scan occurrence row: %w", err))
		}
		occ.StartTime = occ.StartTime.UTC()
		occ.EndTime = occ.EndTime.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(op, err)
	}
	return out, nil
}

// FetchEventsForHost returns all events hosted by the given camp or
// located at the given art installation, ordered by name.
func (db *DB) FetchEventsForHost(ctx context.Context, hostType models.ObjectType, uid string) ([]*models.Event, error) {
	defer metrics.ObserveQuery("fetch_events_for_host", time.Now())

	var column string
	switch hostType {
	case models.ObjectTypeCamp:
		column = "hosted_by_camp"
	case models.ObjectTypeArt:
		column = "located_at_art"
	default:
		return nil, fmt.Errorf("host type must be camp or art, got %q", hostType)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM event_objects WHERE `+column+` = ? ORDER BY name`, uid)
	if err != nil {
		cerr := classifyError("fetch events for host", err)
		metrics.RecordQueryError("fetch_events_for_host", errorType(cerr))
		return nil, cerr
	}

	events, err := collectRows(rows, scanEvent)
	if err != nil {
		return nil, classifyError("fetch events for host", err)
	}
	if err := db.attachOccurrences(ctx, events); err != nil {
		return nil, classifyError("fetch events for host", err)
	}
	return events, nil
}
