// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustdb/dustdb/internal/config"
	"github.com/dustdb/dustdb/internal/database"
	"github.com/dustdb/dustdb/internal/dataset"
	"github.com/dustdb/dustdb/internal/logging"
	"github.com/dustdb/dustdb/internal/metrics"
	"github.com/dustdb/dustdb/internal/models"
)

// Manager runs the periodic dataset refresh loop. It fetches the
// update manifest, skips the cycle when nothing changed upstream, and
// otherwise downloads all three feeds and hands them to the importer as
// one batch. Implements suture's Service interface.
type Manager struct {
	cfg      *config.SyncConfig
	client   *Client
	db       *database.DB
	importer *database.Importer

	// refreshMu keeps a manually triggered refresh from overlapping the
	// periodic one.
	refreshMu sync.Mutex
}

// NewManager builds a refresh manager.
func NewManager(cfg *config.SyncConfig, client *Client, db *database.DB) *Manager {
	return &Manager{
		cfg:      cfg,
		client:   client,
		db:       db,
		importer: database.NewImporter(db),
	}
}

// String identifies the service in supervisor logs.
func (m *Manager) String() string { return "dataset-sync" }

// Serve runs one refresh immediately, then one per configured interval
// until the context is canceled.
func (m *Manager) Serve(ctx context.Context) error {
	if err := m.Refresh(ctx); err != nil {
		logging.Warn().Err(err).Msg("Initial dataset refresh failed")
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Refresh(ctx); err != nil {
				logging.Warn().Err(err).Msg("Dataset refresh failed")
			}
		}
	}
}

// Refresh runs one refresh cycle. Safe to call concurrently with the
// periodic loop; overlapping calls are serialized.
func (m *Manager) Refresh(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	manifestRaw, err := m.client.Fetch(ctx, FeedUpdate)
	if err != nil {
		metrics.SyncCycles.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh: %w", err)
	}
	versions, err := dataset.ParseUpdateManifest(manifestRaw)
	if err != nil {
		metrics.SyncCycles.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh: %w", err)
	}

	unchanged, err := m.upstreamUnchanged(ctx, versions)
	if err != nil {
		metrics.SyncCycles.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh: %w", err)
	}
	if unchanged {
		metrics.SyncCycles.WithLabelValues("unchanged").Inc()
		logging.Debug().Msg("Upstream dataset unchanged, skipping refresh")
		return nil
	}

	batch, err := m.fetchBatch(ctx)
	if err != nil {
		metrics.SyncCycles.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh: %w", err)
	}
	batch.Versions = versions

	result, err := m.importer.Import(ctx, *batch)
	if err != nil {
		metrics.SyncCycles.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh import: %w", err)
	}

	metrics.SyncCycles.WithLabelValues("success").Inc()
	logging.Info().
		Int("arts", result.ArtCount).
		Int("camps", result.CampCount).
		Int("events", result.EventCount).
		Msg("Dataset refresh complete")
	return nil
}

// upstreamUnchanged compares manifest versions against the stored
// update_info rows. Only a full match across all manifest kinds counts
// as unchanged; a kind never imported always forces a refresh.
func (m *Manager) upstreamUnchanged(ctx context.Context, versions map[models.ObjectType]*string) (bool, error) {
	if len(versions) == 0 {
		return false, nil
	}
	for kind, version := range versions {
		info, err := m.db.GetUpdateInfo(ctx, kind)
		if err != nil {
			return false, err
		}
		if info == nil || info.Version == nil || version == nil {
			return false, nil
		}
		if *info.Version != *version {
			return false, nil
		}
	}
	return true, nil
}

// fetchBatch downloads and parses the three entity feeds.
func (m *Manager) fetchBatch(ctx context.Context) (*database.ImportBatch, error) {
	artRaw, err := m.client.Fetch(ctx, FeedArt)
	if err != nil {
		return nil, err
	}
	arts, err := dataset.ParseArt(artRaw)
	if err != nil {
		return nil, err
	}

	campRaw, err := m.client.Fetch(ctx, FeedCamps)
	if err != nil {
		return nil, err
	}
	camps, err := dataset.ParseCamps(campRaw)
	if err != nil {
		return nil, err
	}

	eventRaw, err := m.client.Fetch(ctx, FeedEvents)
	if err != nil {
		return nil, err
	}
	events, err := dataset.ParseEvents(eventRaw)
	if err != nil {
		return nil, err
	}

	return &database.ImportBatch{
		Arts:   arts,
		Camps:  camps,
		Events: events,
	}, nil
}
