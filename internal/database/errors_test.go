// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

package database

import (
	"errors"
	"testing"
)

func TestClassifyErrorSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		label    string
	}{
		{"duplicate key", errors.New(`Constraint Error: Duplicate key "uid: a1" violates primary key constraint`), ErrConstraint, "constraint"},
		{"not null", errors.New("Constraint Error: NOT NULL constraint failed: art_objects.name"), ErrConstraint, "constraint"},
		{"io error", errors.New("IO Error: Could not write to file"), ErrIO, "io"},
		{"wal failure", errors.New("failed to replay WAL"), ErrIO, "io"},
		{"disk full", errors.New("disk quota exceeded"), ErrIO, "io"},
		{"unrecognized", errors.New("Binder Error: no such column"), nil, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyError("test op", tt.err)
			if tt.sentinel != nil && !errors.Is(classified, tt.sentinel) {
				t.Errorf("expected %v in chain, got %v", tt.sentinel, classified)
			}
			if got := errorType(classified); got != tt.label {
				t.Errorf("expected metric label %q, got %q", tt.label, got)
			}
		})
	}
}

func TestClassifyErrorNil(t *testing.T) {
	if classifyError("test op", nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestErrorTypeNotFound(t *testing.T) {
	wrapped := errors.Join(errors.New("get art a1"), ErrNotFound)
	if got := errorType(wrapped); got != "not_found" {
		t.Errorf("expected not_found, got %q", got)
	}
}
