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

func TestSearchIsCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustImport(t, db, ImportBatch{
		Arts:  []*models.Art{testArt("a1", "Temple of Echoes", 40.79, -119.20)},
		Camps: []*models.Camp{testCamp("c1", "Echo Base Camp", 40.78, -119.21)},
	})

	for _, q := range []string{"echo", "ECHO", "Echo"} {
		results, err := db.Search(ctx, q)
		if err != nil {
			t.Fatalf("search %q: %v", q, err)
		}
		if len(results) != 2 {
			t.Errorf("search %q: expected 2 results, got %d", q, len(results))
		}
	}
}

func TestSearchOrdersKindsCanonically(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	evt := testEvent("e1", "Dust Storm Social", time.Now().UTC(), time.Now().UTC().Add(time.Hour))
	mustImport(t, db, ImportBatch{
		Arts:   []*models.Art{testArt("a1", "Dust Devil", 40.79, -119.20)},
		Camps:  []*models.Camp{testCamp("c1", "Dust Haven", 40.78, -119.21)},
		Events: []*models.Event{evt},
	})

	results, err := db.Search(ctx, "dust")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []models.ObjectType{models.ObjectTypeArt, models.ObjectTypeCamp, models.ObjectTypeEvent}
	for i, r := range results {
		if r.Type != want[i] {
			t.Errorf("result %d: expected %s, got %s", i, want[i], r.Type)
		}
	}
}

func TestSearchMatchesSecondaryFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	art := testArt("a1", "Untitled No. 7", 40.79, -119.20)
	art.Artist = strPtr("Sage Whitman")
	camp := testCamp("c1", "Quiet Corner", 40.78, -119.21)
	camp.Landmark = strPtr("giant sage bundle sculpture")
	evt := testEvent("e1", "Morning Ritual", time.Now().UTC(), time.Now().UTC().Add(time.Hour))
	evt.Description = strPtr("Sage burning and slow breathing.")

	mustImport(t, db, ImportBatch{
		Arts:   []*models.Art{art},
		Camps:  []*models.Camp{camp},
		Events: []*models.Event{evt},
	})

	// "sage" appears in the artist, the landmark, and the event
	// description, never in a name.
	results, err := db.Search(ctx, "sage")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results across secondary fields, got %d", len(results))
	}

	// The event type label is also searchable.
	results, err = db.Search(ctx, "gathering")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Type != models.ObjectTypeEvent {
		t.Errorf("expected the event via its type label, got %+v", results)
	}
}

func TestSearchEscapesLikeMetacharacters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustImport(t, db, ImportBatch{
		Camps: []*models.Camp{
			testCamp("c1", "100% Dust", 40.78, -119.21),
			testCamp("c2", "Fully Dusty", 40.78, -119.21),
		},
	})

	// A literal percent must not act as a wildcard.
	results, err := db.Search(ctx, "100%")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Name() != "100% Dust" {
		t.Errorf("expected only the literal match, got %+v", results)
	}
}

func TestSearchEmptyQueryReturnsNothing(t *testing.T) {
	db := setupTestDB(t)

	results, err := db.Search(context.Background(), "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty query should return nothing, got %d", len(results))
	}
}

func TestFetchObjectsInBoundsInclusiveEdges(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	noGPS := &models.Camp{UID: "c-nogps", Name: "Unplaced", Year: 2026}
	mustImport(t, db, ImportBatch{
		Arts: []*models.Art{
			testArt("a-edge", "On The Edge", 40.80, -119.20),
			testArt("a-out", "Outside", 40.90, -119.20),
		},
		Camps: []*models.Camp{
			testCamp("c-in", "Inside", 40.78, -119.21),
			noGPS,
		},
	})

	box := models.BoundingBox{MinLat: 40.75, MaxLat: 40.80, MinLon: -119.25, MaxLon: -119.15}
	results, err := db.FetchObjectsInBounds(ctx, box)
	if err != nil {
		t.Fatalf("bounds query: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 objects in bounds, got %d", len(results))
	}
	// Art before camps.
	if results[0].Type != models.ObjectTypeArt || results[0].UID() != "a-edge" {
		t.Errorf("expected edge art first, got %+v", results[0])
	}
	if results[1].Type != models.ObjectTypeCamp || results[1].UID() != "c-in" {
		t.Errorf("expected inside camp second, got %+v", results[1])
	}
}

func TestFetchObjectsInBoundsRejectsInvertedBox(t *testing.T) {
	db := setupTestDB(t)

	box := models.BoundingBox{MinLat: 41, MaxLat: 40, MinLon: -119, MaxLon: -120}
	if _, err := db.FetchObjectsInBounds(context.Background(), box); err == nil {
		t.Error("expected error for inverted bounding box")
	}
}

func TestGetFavoritesSkipsDanglingAnnotations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustImport(t, db, ImportBatch{
		Arts: []*models.Art{
			testArt("a-stays", "Keeper", 40.79, -119.20),
			testArt("a-goes", "Removed Next Year", 40.78, -119.21),
		},
	})

	for _, uid := range []string{"a-stays", "a-goes"} {
		if _, err := db.ToggleFavorite(ctx, models.ObjectTypeArt, uid); err != nil {
			t.Fatalf("toggle favorite %s: %v", uid, err)
		}
	}

	// Next snapshot drops one of the favorited installations.
	mustImport(t, db, ImportBatch{
		Arts: []*models.Art{testArt("a-stays", "Keeper", 40.79, -119.20)},
	})

	favs, err := db.GetFavorites(ctx)
	if err != nil {
		t.Fatalf("get favorites: %v", err)
	}
	if len(favs) != 1 || favs[0].UID() != "a-stays" {
		t.Errorf("dangling favorite should be skipped, got %+v", favs)
	}

	// The annotation itself is retained, so the favorite resurfaces if
	// the object returns.
	fav, err := db.IsFavorite(ctx, models.ObjectTypeArt, "a-goes")
	if err != nil {
		t.Fatalf("is favorite: %v", err)
	}
	if !fav {
		t.Error("annotation row should be retained for vanished object")
	}
}

func TestGetMissingObjectsReturnNil(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	art, err := db.GetArt(ctx, "nope")
	if err != nil {
		t.Fatalf("get art: %v", err)
	}
	if art != nil {
		t.Error("expected nil for missing art")
	}

	camp, err := db.GetCamp(ctx, "nope")
	if err != nil {
		t.Fatalf("get camp: %v", err)
	}
	if camp != nil {
		t.Error("expected nil for missing camp")
	}

	event, err := db.GetEvent(ctx, "nope")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if event != nil {
		t.Error("expected nil for missing event")
	}
}

func TestImagesRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	art := testArt("a1", "Temple", 40.79, -119.20)
	art.Images = []models.ArtImage{
		{ArtID: "a1", ThumbnailURL: strPtr("https://img.example/a1-thumb.jpg"), GalleryRef: strPtr("g-1")},
		{ArtID: "a1", ThumbnailURL: strPtr("https://img.example/a1-alt.jpg")},
	}
	camp := testCamp("c1", "Dust Haven", 40.78, -119.21)
	camp.Images = []models.CampImage{
		{CampID: "c1", ThumbnailURL: strPtr("https://img.example/c1.jpg")},
	}

	mustImport(t, db, ImportBatch{
		Arts:  []*models.Art{art},
		Camps: []*models.Camp{camp},
	})

	got, err := db.GetArt(ctx, "a1")
	if err != nil {
		t.Fatalf("get art: %v", err)
	}
	if len(got.Images) != 2 {
		t.Fatalf("expected 2 art images, got %d", len(got.Images))
	}
	if got.Images[0].ThumbnailURL == nil || *got.Images[0].ThumbnailURL != "https://img.example/a1-thumb.jpg" {
		t.Errorf("unexpected first image: %+v", got.Images[0])
	}

	camps, err := db.FetchCamps(ctx)
	if err != nil {
		t.Fatalf("fetch camps: %v", err)
	}
	if len(camps) != 1 || len(camps[0].Images) != 1 {
		t.Errorf("camp images not attached: %+v", camps)
	}
}
