// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustdb/dustdb/internal/logging"
)

// Sentinel errors for classifying store failures. Callers test with
// errors.Is; the wrapped chain preserves the underlying driver error.
var (
	// ErrConstraint indicates a schema constraint violation (duplicate
	// primary key, NOT NULL, CHECK). Also the signal that an import
	// batch carried duplicate uids within one object type.
	ErrConstraint = errors.New("constraint violation")

	// ErrIO indicates a storage-level failure (file access, WAL, disk).
	ErrIO = errors.New("storage I/O failure")

	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("record not found")
)

// classifyError wraps a driver error with the matching sentinel so
// callers can branch on failure class without string matching.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "constraint"), strings.Contains(msg, "duplicate key"):
		return fmt.Errorf("%s: %w: %w", op, ErrConstraint, err)
	case strings.Contains(msg, "io error"), strings.Contains(msg, "disk"), strings.Contains(msg, "wal"):
		return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// errorType returns a short label for metrics from a classified error.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrConstraint):
		return "constraint"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // cleanup is best-effort
	}
}

// rollbackQuietly rolls back a transaction, logging anything other than
// the already-committed case.
func rollbackQuietly(tx *sql.Tx) {
	if tx == nil {
		return
	}
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Warn().Err(err).Msg("Transaction rollback failed")
	}
}
