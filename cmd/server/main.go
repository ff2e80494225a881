// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

// Package main is the entry point for the DustDB server.
//
// DustDB keeps a local, queryable snapshot of the Burning Man public
// dataset: art installations, theme camps, and events with their
// occurrence schedules. It periodically refreshes the snapshot from the
// upstream feeds, reconciles it wholesale in a single transaction, and
// serves spatiotemporal queries plus user annotations (favorites,
// notes) over a REST API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config file, and
//     environment variables (Koanf v2)
//  2. Database: embedded DuckDB file store with schema management
//  3. Sync: upstream feed client with circuit breaker and rate limit,
//     plus the periodic refresh loop (optional)
//  4. HTTP Server: REST API under /api/v1 plus Prometheus /metrics
//
// The sync loop and HTTP server run under a suture supervisor tree so a
// crashing refresh loop never takes the query surface down with it.
//
// # Configuration
//
// Configuration keys nest with double underscores in the environment:
//
//	export DUSTDB_DATABASE__PATH=/data/dustdb.duckdb
//	export DUSTDB_SYNC__ENABLED=true
//	export DUSTDB_SYNC__BASE_URL=https://data.example.org/feeds
//	export DUSTDB_SYNC__YEAR=2026
//	./dustdb
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: in-flight requests get
// the configured drain timeout, then the store is checkpointed and
// closed.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustdb/dustdb/internal/api"
	"github.com/dustdb/dustdb/internal/config"
	"github.com/dustdb/dustdb/internal/database"
	"github.com/dustdb/dustdb/internal/logging"
	"github.com/dustdb/dustdb/internal/supervisor"
	"github.com/dustdb/dustdb/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("sync_enabled", cfg.Sync.Enabled).
		Msg("Starting DustDB")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSutureLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	var syncMgr *sync.Manager
	if cfg.Sync.Enabled {
		syncMgr = sync.NewManager(&cfg.Sync, sync.NewClient(&cfg.Sync), db)
		tree.AddSyncService(syncMgr)
		logging.Info().
			Str("base_url", cfg.Sync.BaseURL).
			Int("year", cfg.Sync.Year).
			Dur("interval", cfg.Sync.Interval).
			Msg("Dataset sync enabled")
	} else {
		logging.Info().Msg("Dataset sync disabled, serving existing snapshot only")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(db, syncMgr, &cfg.API),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)
	logging.Info().Str("addr", server.Addr).Msg("DustDB started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			logging.Error().Err(err).Msg("Supervisor tree exited unexpectedly")
		}
	}

	logging.Info().Msg("DustDB stopped")
}
