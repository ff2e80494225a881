// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

package models

import "time"

// ObjectMetadata holds user-local annotations for one object, keyed by the
// (object_type, object_id) composite. Rows are created lazily on the first
// favorite or notes write and are never touched by the importer, which is
// how annotations survive a wholesale data refresh.
type ObjectMetadata struct {
	ObjectType ObjectType `json:"object_type"`
	ObjectID   string     `json:"object_id"`
	IsFavorite bool       `json:"is_favorite"`
	LastViewed *time.Time `json:"last_viewed,omitempty"`
	UserNotes  *string    `json:"user_notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// UpdateInfo records per-kind dataset versioning. One row exists per entity
// kind and is fully overwritten on each successful import of that kind.
type UpdateInfo struct {
	DataType    ObjectType `json:"data_type"`
	LastUpdated time.Time  `json:"last_updated"`
	Version     *string    `json:"version,omitempty"`
	TotalCount  int        `json:"total_count"`
	CreatedAt   time.Time  `json:"created_at"`
}
