// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

package database

import (
	"context"
	"testing"
	"time"

	"github.com/dustdb/dustdb/internal/models"
)

func TestToggleFavoriteFirstCallFavorites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// No snapshot object needed: annotations are independent of imports.
	fav, err := db.ToggleFavorite(ctx, models.ObjectTypeCamp, "c1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !fav {
		t.Error("first toggle must favorite")
	}

	fav, err = db.ToggleFavorite(ctx, models.ObjectTypeCamp, "c1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if fav {
		t.Error("second toggle must unfavorite")
	}

	fav, err = db.ToggleFavorite(ctx, models.ObjectTypeCamp, "c1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !fav {
		t.Error("third toggle must favorite again")
	}
}

func TestIsFavoriteDefaultsFalse(t *testing.T) {
	db := setupTestDB(t)

	fav, err := db.IsFavorite(context.Background(), models.ObjectTypeArt, "never-touched")
	if err != nil {
		t.Fatalf("is favorite: %v", err)
	}
	if fav {
		t.Error("unannotated object must not be a favorite")
	}
}

func TestSetNotesPreservesFavorite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.ToggleFavorite(ctx, models.ObjectTypeArt, "a1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	notes := "bring water"
	if err := db.SetNotes(ctx, models.ObjectTypeArt, "a1", &notes); err != nil {
		t.Fatalf("set notes: %v", err)
	}

	meta, err := db.GetObjectMetadata(ctx, models.ObjectTypeArt, "a1")
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata row")
	}
	if !meta.IsFavorite {
		t.Error("setting notes must not clear the favorite flag")
	}
	if meta.UserNotes == nil || *meta.UserNotes != notes {
		t.Errorf("notes not stored: %+v", meta)
	}

	// Clearing notes keeps the row and the flag.
	if err := db.SetNotes(ctx, models.ObjectTypeArt, "a1", nil); err != nil {
		t.Fatalf("clear notes: %v", err)
	}
	meta, err = db.GetObjectMetadata(ctx, models.ObjectTypeArt, "a1")
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if meta.UserNotes != nil {
		t.Error("notes not cleared")
	}
	if !meta.IsFavorite {
		t.Error("clearing notes must not clear the favorite flag")
	}
}

func TestSetLastViewed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	viewedAt := time.Date(2026, 8, 31, 18, 30, 0, 0, time.UTC)
	if err := db.SetLastViewed(ctx, models.ObjectTypeEvent, "e1", viewedAt); err != nil {
		t.Fatalf("set last viewed: %v", err)
	}

	meta, err := db.GetObjectMetadata(ctx, models.ObjectTypeEvent, "e1")
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if meta == nil || meta.LastViewed == nil {
		t.Fatal("expected last viewed timestamp")
	}
	if !meta.LastViewed.Equal(viewedAt) {
		t.Errorf("expected %v, got %v", viewedAt, *meta.LastViewed)
	}
}

func TestDeleteObjectMetadata(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.ToggleFavorite(ctx, models.ObjectTypeCamp, "c1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := db.DeleteObjectMetadata(ctx, models.ObjectTypeCamp, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	meta, err := db.GetObjectMetadata(ctx, models.ObjectTypeCamp, "c1")
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if meta != nil {
		t.Error("metadata row should be gone")
	}

	// Deleting again is not an error.
	if err := db.DeleteObjectMetadata(ctx, models.ObjectTypeCamp, "c1"); err != nil {
		t.Errorf("repeat delete should be a no-op: %v", err)
	}
}

func TestMetadataRejectsInvalidObjectType(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.ToggleFavorite(ctx, "bicycle", "b1"); err == nil {
		t.Error("toggle must reject invalid object type")
	}
	if _, err := db.IsFavorite(ctx, "bicycle", "b1"); err == nil {
		t.Error("is favorite must reject invalid object type")
	}
	if err := db.SetNotes(ctx, "bicycle", "b1", nil); err == nil {
		t.Error("set notes must reject invalid object type")
	}
	if _, err := db.GetUpdateInfo(ctx, "bicycle"); err == nil {
		t.Error("get update info must reject invalid object type")
	}
}

func TestMetadataKeyedPerType(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Same uid under two types must be independent rows.
	if _, err := db.ToggleFavorite(ctx, models.ObjectTypeArt, "shared-uid"); err != nil {
		t.Fatalf("toggle art: %v", err)
	}

	fav, err := db.IsFavorite(ctx, models.ObjectTypeCamp, "shared-uid")
	if err != nil {
		t.Fatalf("is favorite camp: %v", err)
	}
	if fav {
		t.Error("favorite on art must not leak to camp with the same uid")
	}
}
