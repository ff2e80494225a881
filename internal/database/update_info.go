// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

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

// GetUpdateInfo returns the freshness row for one object kind, or nil
// when that kind has never been imported.
func (db *DB) GetUpdateInfo(ctx context.Context, dataType models.ObjectType) (*models.UpdateInfo, error) {
	defer metrics.ObserveQuery("get_update_info", time.Now())

	if !dataType.Valid() {
		return nil, fmt.Errorf("invalid object type %q", dataType)
	}

	var info models.UpdateInfo
	err := db.conn.QueryRowContext(ctx, `SELECT data_type, last_updated, version, total_count, created_at
		FROM update_info WHERE data_type = ?`, string(dataType)).Scan(
		&info.DataType, &info.LastUpdated, &info.Version, &info.TotalCount, &info.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classifyError("get update info", err)
	}

	info.LastUpdated = info.LastUpdated.UTC()
	info.CreatedAt = info.CreatedAt.UTC()
	return &info, nil
}

// ListUpdateInfo returns the freshness rows for all kinds in canonical
// order, omitting kinds never imported.
func (db *DB) ListUpdateInfo(ctx context.Context) ([]*models.UpdateInfo, error) {
	defer metrics.ObserveQuery("list_update_info", time.Now())

	var out []*models.UpdateInfo
	for _, t := range models.ObjectTypes {
		info, err := db.GetUpdateInfo(ctx, t)
		if err != nil {
			return nil, err
		}
		if info != nil {
			out = append(out, info)
		}
	}
	return out, nil
}
