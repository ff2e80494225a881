// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

/*
metadata.go - User Annotations

Favorites, notes, and last-viewed timestamps keyed by (object_type,
object_id). Rows are created lazily on first annotation and are never
written by the import pipeline, so they survive wholesale reimports.
The object_id is not validated against the snapshot: annotating an
object that later disappears leaves a dangling row that readers skip.
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

// ToggleFavorite flips the favorite flag for the given object, creating
// the annotation row if needed. The first toggle on an unannotated
// object always favorites it. Returns the new state.
func (db *DB) ToggleFavorite(ctx context.Context, objectType models.ObjectType, uid string) (bool, error) {
	defer metrics.ObserveQuery("toggle_favorite", time.Now())

	if !objectType.Valid() {
		return false, fmt.Errorf("invalid object type %q", objectType)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, classifyError("toggle favorite", err)
	}
	defer rollbackQuietly(tx)

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `INSERT INTO object_metadata (object_type, object_id, is_favorite, created_at, updated_at)
		VALUES (?, ?, TRUE, ?, ?)
		ON CONFLICT (object_type, object_id) DO UPDATE SET
			is_favorite = NOT is_favorite,
			updated_at = excluded.updated_at`,
		string(objectType), uid, now, now)
	if err != nil {
		return false, classifyError("toggle favorite", err)
	}

	var favorite bool
	err = tx.QueryRowContext(ctx, `SELECT is_favorite FROM object_metadata
		WHERE object_type = ? AND object_id = ?`, string(objectType), uid).Scan(&favorite)
	if err != nil {
		return false, classifyError("toggle favorite", err)
	}

	if err := tx.Commit(); err != nil {
		return false, classifyError("toggle favorite", err)
	}
	return favorite, nil
}

// IsFavorite reports whether the object is currently favorited.
// Unannotated objects are not favorites.
func (db *DB) IsFavorite(ctx context.Context, objectType models.ObjectType, uid string) (bool, error) {
	defer metrics.ObserveQuery("is_favorite", time.Now())

	if !objectType.Valid() {
		return false, fmt.Errorf("invalid object type %q", objectType)
	}

	var favorite bool
	err := db.conn.QueryRowContext(ctx, `SELECT is_favorite FROM object_metadata
		WHERE object_type = ? AND object_id = ?`, string(objectType), uid).Scan(&favorite)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, classifyError("is favorite", err)
	}
	return favorite, nil
}

// SetNotes stores free-form user notes on the object, creating the
// annotation row if needed. Nil clears the notes.
func (db *DB) SetNotes(ctx context.Context, objectType models.ObjectType, uid string, notes *string) error {
	defer metrics.ObserveQuery("set_notes", time.Now())

	if !objectType.Valid() {
		return fmt.Errorf("invalid object type %q", objectType)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO object_metadata (object_type, object_id, user_notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (object_type, object_id) DO UPDATE SET
			user_notes = excluded.user_notes,
			updated_at = excluded.updated_at`,
		string(objectType), uid, notes, now, now)
	if err != nil {
		return classifyError("set notes", err)
	}
	return nil
}

// SetLastViewed records when the user last viewed the object, creating
// the annotation row if needed.
func (db *DB) SetLastViewed(ctx context.Context, objectType models.ObjectType, uid string, viewedAt time.Time) error {
	defer metrics.ObserveQuery("set_last_viewed", time.Now())

	if !objectType.Valid() {
		return fmt.Errorf("invalid object type %q", objectType)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO object_metadata (object_type, object_id, last_viewed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (object_type, object_id) DO UPDATE SET
			last_viewed = excluded.last_viewed,
			updated_at = excluded.updated_at`,
		string(objectType), uid, viewedAt.UTC(), now, now)
	if err != nil {
		return classifyError("set last viewed", err)
	}
	return nil
}

// GetObjectMetadata returns the annotation row for the object, or nil
// when the object has never been annotated.
func (db *DB) GetObjectMetadata(ctx context.Context, objectType models.ObjectType, uid string) (*models.ObjectMetadata, error) {
	defer metrics.ObserveQuery("get_object_metadata", time.Now())

	if !objectType.Valid() {
		return nil, fmt.Errorf("invalid object type %q", objectType)
	}

	var m models.ObjectMetadata
	err := db.conn.QueryRowContext(ctx, `SELECT object_type, object_id, is_favorite, last_viewed, user_notes, created_at, updated_at
		FROM object_metadata WHERE object_type = ? AND object_id = ?`,
		string(objectType), uid).Scan(
		&m.ObjectType, &m.ObjectID, &m.IsFavorite, &m.LastViewed, &m.UserNotes,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classifyError("get object metadata", err)
	}

	m.LastViewed = utcOrNil(m.LastViewed)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return &m, nil
}

// DeleteObjectMetadata removes the annotation row for the object.
// Deleting a missing row is not an error.
func (db *DB) DeleteObjectMetadata(ctx context.Context, objectType models.ObjectType, uid string) error {
	defer metrics.ObserveQuery("delete_object_metadata", time.Now())

	if !objectType.Valid() {
		return fmt.Errorf("invalid object type %q", objectType)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err := db.conn.ExecContext(ctx, `DELETE FROM object_metadata
		WHERE object_type = ? AND object_id = ?`, string(objectType), uid)
	if err != nil {
		return classifyError("delete object metadata", err)
	}
	return nil
}
