// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

// Package config provides centralized configuration for DustDB.
//
// Configuration loading order (koanf v2):
//  1. Defaults: built-in values for all optional settings
//  2. Config file: optional YAML file (config.yaml)
//  3. Environment variables: DUSTDB_* overrides any setting
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Sync     SyncConfig     `koanf:"sync"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings for the embedded store.
type DatabaseConfig struct {
	// Path is the database file location, or ":memory:" for tests.
	Path string `koanf:"path" validate:"required"`

	// MaxMemory caps DuckDB's memory usage (e.g. "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads sets the DuckDB worker thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads" validate:"gte=0"`

	// SkipIndexes skips index creation for fast test setup.
	SkipIndexes bool `koanf:"skip_indexes"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SyncConfig holds periodic dataset refresh settings. When disabled, data
// only changes through explicit import requests.
type SyncConfig struct {
	Enabled bool `koanf:"enabled"`

	// BaseURL is the root of the upstream dataset
	// (art.json, camp.json, event.json, update.json live beneath it).
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`

	// Year selects the dataset year directory under BaseURL.
	Year int `koanf:"year"`

	// Interval between refresh attempts.
	Interval time.Duration `koanf:"interval" validate:"min=1m"`

	// RequestTimeout bounds each upstream HTTP request.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RequestsPerSecond throttles upstream fetches.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
}

// APIConfig holds HTTP API behavior settings.
type APIConfig struct {
	// RateLimitPerMinute caps requests per client IP on data endpoints.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute" validate:"gte=1"`

	// CORSAllowedOrigins lists origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// MaxSearchQueryLength bounds the search query parameter.
	MaxSearchQueryLength int `koanf:"max_search_query_length" validate:"gte=1"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
