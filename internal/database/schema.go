// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

/*
schema.go - Database Schema Management

This file manages the DuckDB database schema including table creation
and index management for query performance.

Tables:
  - art_objects: Art installations keyed by upstream uid
  - art_images: Child image rows owned by art installations
  - camp_objects: Theme camps keyed by upstream uid
  - camp_images: Child image rows owned by camps
  - event_objects: Events keyed by upstream uid, with host references to
    camps or art and GPS denormalized from the resolved host at import
  - event_occurrences: One row per concrete start/end interval of an event
  - object_metadata: User annotations (favorites, notes, last-viewed),
    deliberately outside the import pipeline so they survive reimports
  - update_info: Per-kind dataset version and freshness, one row per kind

Child rows (images, occurrences) carry surrogate keys drawn from DuckDB
sequences; all upstream entities use their uid as the natural key.

Index Strategy:
  - Occurrence start/end for temporal window scans
  - Host references for reverse lookups (events at a camp/art)
  - GPS columns for bounding-box filters
*/
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables and sequences
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := db.getTableCreationQueries()

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// getTableCreationQueries returns the table creation SQL statements
func (db *DB) getTableCreationQueries() []string {
	return []string{
		// Sequences for surrogate keys on child rows
		`CREATE SEQUENCE IF NOT EXISTS seq_art_images_id START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS seq_camp_images_id START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS seq_event_occurrences_id START 1;`,

		`CREATE TABLE IF NOT EXISTS art_objects (
			uid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			year INTEGER NOT NULL,
			url TEXT,
			contact_email TEXT,
			hometown TEXT,
			description TEXT,
			artist TEXT,
			category TEXT,
			program TEXT,
			donation_link TEXT,
			location_string TEXT,
			location_hour INTEGER,
			location_minute INTEGER,
			location_distance INTEGER,
			location_category TEXT,
			gps_latitude DOUBLE,
			gps_longitude DOUBLE,
			guided_tours BOOLEAN NOT NULL DEFAULT FALSE,
			self_guided_tour_map BOOLEAN NOT NULL DEFAULT FALSE
		);`,

		`CREATE TABLE IF NOT EXISTS art_images (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_art_images_id'),
			art_id TEXT NOT NULL,
			thumbnail_url TEXT,
			gallery_ref TEXT
		);`,

		`CREATE TABLE IF NOT EXISTS camp_objects (
			uid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			year INTEGER NOT NULL,
			url TEXT,
			contact_email TEXT,
			hometown TEXT,
			description TEXT,
			landmark TEXT,
			location_string TEXT,
			frontage TEXT,
			intersection TEXT,
			intersection_type TEXT,
			dimensions TEXT,
			exact_location TEXT,
			gps_latitude DOUBLE,
			gps_longitude DOUBLE
		);`,

		`CREATE TABLE IF NOT EXISTS camp_images (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_camp_images_id'),
			camp_id TEXT NOT NULL,
			thumbnail_url TEXT
		);`,

		`CREATE TABLE IF NOT EXISTS event_objects (
			uid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			year INTEGER NOT NULL,
			event_id INTEGER,
			description TEXT,
			event_type_label TEXT NOT NULL,
			event_type_code TEXT NOT NULL,
			print_description TEXT NOT NULL DEFAULT '',
			slug TEXT,
			hosted_by_camp TEXT,
			located_at_art TEXT,
			other_location TEXT NOT NULL DEFAULT '',
			check_location BOOLEAN NOT NULL DEFAULT FALSE,
			url TEXT,
			all_day BOOLEAN NOT NULL DEFAULT FALSE,
			contact TEXT,
			gps_latitude DOUBLE,
			gps_longitude DOUBLE
		);`,

		`CREATE TABLE IF NOT EXISTS event_occurrences (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_event_occurrences_id'),
			event_id TEXT NOT NULL,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL
		);`,

		// User annotations live outside the import pipeline on purpose:
		// imports never write this table, so favorites and notes survive
		// wholesale data refreshes. Rows may reference uids that no longer
		// exist after a reimport; readers skip such dangling rows.
		`CREATE TABLE IF NOT EXISTS object_metadata (
			object_type TEXT NOT NULL,
			object_id TEXT NOT NULL,
			is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
			last_viewed TIMESTAMP,
			user_notes TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (object_type, object_id)
		);`,

		`CREATE TABLE IF NOT EXISTS update_info (
			data_type TEXT PRIMARY KEY,
			last_updated TIMESTAMP NOT NULL,
			version TEXT,
			total_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}
}

// createIndexes creates all database indexes unless the configuration
// opts out (tests use SkipIndexes for fast setup).
func (db *DB) createIndexes() error {
	if db.cfg != nil && db.cfg.SkipIndexes {
		return nil
	}

	return db.doCreateIndexes()
}

// CreateIndexes creates all database indexes.
// Exposed for tests that specifically need indexes.
func (db *DB) CreateIndexes() error {
	return db.doCreateIndexes()
}

func (db *DB) doCreateIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := db.getIndexQueries()

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", query, err)
		}
	}

	return nil
}

// getIndexQueries returns index creation SQL statements
func (db *DB) getIndexQueries() []string {
	return []string{
		// Temporal window scans
		`CREATE INDEX IF NOT EXISTS idx_occurrences_start ON event_occurrences(start_time);`,
		`CREATE INDEX IF NOT EXISTS idx_occurrences_end ON event_occurrences(end_time);`,
		`CREATE INDEX IF NOT EXISTS idx_occurrences_event ON event_occurrences(event_id);`,

		// Host reverse lookups
		`CREATE INDEX IF NOT EXISTS idx_events_hosted_by_camp ON event_objects(hosted_by_camp);`,
		`CREATE INDEX IF NOT EXISTS idx_events_located_at_art ON event_objects(located_at_art);`,

		// Bounding-box filters
		`CREATE INDEX IF NOT EXISTS idx_art_gps ON art_objects(gps_latitude, gps_longitude);`,
		`CREATE INDEX IF NOT EXISTS idx_camps_gps ON camp_objects(gps_latitude, gps_longitude);`,
		`CREATE INDEX IF NOT EXISTS idx_events_gps ON event_objects(gps_latitude, gps_longitude);`,

		// Image child-row lookups
		`CREATE INDEX IF NOT EXISTS idx_art_images_art ON art_images(art_id);`,
		`CREATE INDEX IF NOT EXISTS idx_camp_images_camp ON camp_images(camp_id);`,

		// Favorites listing
		`CREATE INDEX IF NOT EXISTS idx_metadata_favorite ON object_metadata(is_favorite);`,
	}
}
