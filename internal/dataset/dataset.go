// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

// Package dataset parses the upstream Burning Man API JSON feeds into
// store models. The feeds are snake_case JSON arrays: art.json,
// camp.json, event.json, plus an update.json manifest carrying per-file
// freshness. Parsing is tolerant of missing optional fields but strict
// about malformed JSON; a feed that fails to parse fails the whole
// refresh cycle rather than importing a partial snapshot.
package dataset

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dustdb/dustdb/internal/models"
)

// artRecord mirrors one entry of the upstream art.json feed.
type artRecord struct {
	UID          string  `json:"uid"`
	Name         string  `json:"name"`
	Year         int     `json:"year"`
	URL          *string `json:"url"`
	ContactEmail *string `json:"contact_email"`
	Hometown     *string `json:"hometown"`
	Description  *string `json:"description"`
	Artist       *string `json:"artist"`
	Category     *string `json:"category"`
	Program      *string `json:"program"`
	DonationLink *string `json:"donation_link"`

	Location *struct {
		Hour         *int     `json:"hour"`
		Minute       *int     `json:"minute"`
		Distance     *int     `json:"distance"`
		Category     *string  `json:"category"`
		GPSLatitude  *float64 `json:"gps_latitude"`
		GPSLongitude *float64 `json:"gps_longitude"`
	} `json:"location"`
	LocationString *string `json:"location_string"`

	Images []struct {
		ThumbnailURL *string `json:"thumbnail_url"`
		GalleryRef   *string `json:"gallery_ref"`
	} `json:"images"`

	GuidedTours       bool `json:"guided_tours"`
	SelfGuidedTourMap bool `json:"self_guided_tour_map"`
}

// campRecord mirrors one entry of the upstream camp.json feed.
type campRecord struct {
	UID          string  `json:"uid"`
	Name         string  `json:"name"`
	Year         int     `json:"year"`
	URL          *string `json:"url"`
	ContactEmail *string `json:"contact_email"`
	Hometown     *string `json:"hometown"`
	Description  *string `json:"description"`
	Landmark     *string `json:"landmark"`

	Location *struct {
		Frontage         *string  `json:"frontage"`
		Intersection     *string  `json:"intersection"`
		IntersectionType *string  `json:"intersection_type"`
		Dimensions       *string  `json:"dimensions"`
		ExactLocation    *string  `json:"exact_location"`
		GPSLatitude      *float64 `json:"gps_latitude"`
		GPSLongitude     *float64 `json:"gps_longitude"`
	} `json:"location"`
	LocationString *string `json:"location_string"`

	Images []struct {
		ThumbnailURL *string `json:"thumbnail_url"`
	} `json:"images"`
}

// eventRecord mirrors one entry of the upstream event.json feed.
type eventRecord struct {
	UID         string  `json:"uid"`
	Title       string  `json:"title"`
	EventID     *int    `json:"event_id"`
	Description *string `json:"description"`

	EventType *struct {
		Label string `json:"label"`
		Abbr  string `json:"abbr"`
	} `json:"event_type"`

	Year             int     `json:"year"`
	PrintDescription string  `json:"print_description"`
	Slug             *string `json:"slug"`
	HostedByCamp     *string `json:"hosted_by_camp"`
	LocatedAtArt     *string `json:"located_at_art"`
	OtherLocation    string  `json:"other_location"`
	CheckLocation    bool    `json:"check_location"`
	URL              *string `json:"url"`
	AllDay           bool    `json:"all_day"`
	Contact          *string `json:"contact"`

	OccurrenceSet []struct {
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	} `json:"occurrence_set"`
}

// updateManifest mirrors the upstream update.json manifest.
type updateManifest struct {
	Art    *fileUpdate `json:"art"`
	Camps  *fileUpdate `json:"camps"`
	Events *fileUpdate `json:"events"`
}

type fileUpdate struct {
	File    string `json:"file"`
	Updated string `json:"updated"`
}

// ParseArt decodes an art.json feed.
func ParseArt(data []byte) ([]*models.Art, error) {
	var records []artRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse art feed: %w", err)
	}

	out := make([]*models.Art, 0, len(records))
	for _, r := range records {
		a := &models.Art{
			UID:               r.UID,
			Name:              r.Name,
			Year:              r.Year,
			URL:               r.URL,
			ContactEmail:      r.ContactEmail,
			Hometown:          r.Hometown,
			Description:       r.Description,
			Artist:            r.Artist,
			Category:          r.Category,
			Program:           r.Program,
			DonationLink:      r.DonationLink,
			LocationString:    r.LocationString,
			GuidedTours:       r.GuidedTours,
			SelfGuidedTourMap: r.SelfGuidedTourMap,
		}
		if r.Location != nil {
			a.LocationHour = r.Location.Hour
			a.LocationMinute = r.Location.Minute
			a.LocationDistance = r.Location.Distance
			a.LocationCategory = r.Location.Category
			a.GPSLatitude = r.Location.GPSLatitude
			a.GPSLongitude = r.Location.GPSLongitude
		}
		for _, img := range r.Images {
			a.Images = append(a.Images, models.ArtImage{
				ArtID:        r.UID,
				ThumbnailURL: img.ThumbnailURL,
				GalleryRef:   img.GalleryRef,
			})
		}
		out = append(out, a)
	}
	return out, nil
}

// ParseCamps decodes a camp.json feed.
func ParseCamps(data []byte) ([]*models.Camp, error) {
	var records []campRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse camp feed: %w", err)
	}

	out := make([]*models.Camp, 0, len(records))
	for _, r := range records {
		c := &models.Camp{
			UID:            r.UID,
			Name:           r.Name,
			Year:           r.Year,
			URL:            r.URL,
			ContactEmail:   r.ContactEmail,
			Hometown:       r.Hometown,
			Description:    r.Description,
			Landmark:       r.Landmark,
			LocationString: r.LocationString,
		}
		if r.Location != nil {
			c.Frontage = r.Location.Frontage
			c.Intersection = r.Location.Intersection
			c.IntersectionType = r.Location.IntersectionType
			c.Dimensions = r.Location.Dimensions
			c.ExactLocation = r.Location.ExactLocation
			c.GPSLatitude = r.Location.GPSLatitude
			c.GPSLongitude = r.Location.GPSLongitude
		}
		for _, img := range r.Images {
			c.Images = append(c.Images, models.CampImage{
				CampID:       r.UID,
				ThumbnailURL: img.ThumbnailURL,
			})
		}
		out = append(out, c)
	}
	return out, nil
}

// ParseEvents decodes an event.json feed. Records with no event type get
// the Unknown label so the column stays NOT NULL; occurrence timestamps
// are normalized to UTC.
func ParseEvents(data []byte) ([]*models.Event, error) {
	var records []eventRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse event feed: %w", err)
	}

	out := make([]*models.Event, 0, len(records))
	for _, r := range records {
		e := &models.Event{
			UID:              r.UID,
			Name:             r.Title,
			Year:             r.Year,
			EventID:          r.EventID,
			Description:      r.Description,
			EventTypeLabel:   models.UnknownEventTypeLabel,
			EventTypeCode:    models.UnknownEventTypeCode,
			PrintDescription: r.PrintDescription,
			Slug:             r.Slug,
			HostedByCamp:     r.HostedByCamp,
			LocatedAtArt:     r.LocatedAtArt,
			OtherLocation:    r.OtherLocation,
			CheckLocation:    r.CheckLocation,
			URL:              r.URL,
			AllDay:           r.AllDay,
			Contact:          r.Contact,
		}
		if r.EventType != nil {
			if r.EventType.Label != "" {
				e.EventTypeLabel = r.EventType.Label
			}
			if r.EventType.Abbr != "" {
				e.EventTypeCode = r.EventType.Abbr
			}
		}
		for _, occ := range r.OccurrenceSet {
			e.Occurrences = append(e.Occurrences, models.EventOccurrence{
				EventID:   r.UID,
				StartTime: occ.StartTime.UTC(),
				EndTime:   occ.EndTime.UTC(),
			})
		}
		out = append(out, e)
	}
	return out, nil
}

// ParseUpdateManifest decodes an update.json manifest into per-kind
// version strings keyed the way the importer records them. Kinds absent
// from the manifest are omitted.
func ParseUpdateManifest(data []byte) (map[models.ObjectType]*string, error) {
	var m updateManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse update manifest: %w", err)
	}

	versions := make(map[models.ObjectType]*string)
	if m.Art != nil {
		v := m.Art.Updated
		versions[models.ObjectTypeArt] = &v
	}
	if m.Camps != nil {
		v := m.Camps.Updated
		versions[models.ObjectTypeCamp] = &v
	}
	if m.Events != nil {
		v := m.Events.Updated
		versions[models.ObjectTypeEvent] = &v
	}
	return versions, nil
}
