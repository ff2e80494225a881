// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

// Package models defines the data structures used throughout DustDB.
// These models represent art installations, theme camps, events and their
// occurrences, user annotations, and per-kind dataset versioning.
package models

import "time"

// ObjectType identifies one of the three entity kinds held by the store.
type ObjectType string

// Supported object types.
const (
	ObjectTypeArt   ObjectType = "art"
	ObjectTypeCamp  ObjectType = "camp"
	ObjectTypeEvent ObjectType = "event"
)

// ObjectTypes lists all supported object types in canonical order.
// Queries that span kinds return results in this order.
var ObjectTypes = []ObjectType{ObjectTypeArt, ObjectTypeCamp, ObjectTypeEvent}

// Valid reports whether t is one of the supported object types.
func (t ObjectType) Valid() bool {
	switch t {
	case ObjectTypeArt, ObjectTypeCamp, ObjectTypeEvent:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the object type.
func (t ObjectType) DisplayName() string {
	switch t {
	case ObjectTypeArt:
		return "Art"
	case ObjectTypeCamp:
		return "Camp"
	case ObjectTypeEvent:
		return "Event"
	}
	return string(t)
}

// Art represents an art installation.
//
// UID is the upstream identifier and is stable across imports; it is the
// join key that lets user annotations survive a wholesale data refresh.
// The decomposed location fields mirror the upstream dataset: a clock-face
// address (hour/minute), radial distance in feet, and optional GPS point.
type Art struct {
	UID          string  `json:"uid"`
	Name         string  `json:"name"`
	Year         int     `json:"year"`
	URL          *string `json:"url,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	Hometown     *string `json:"hometown,omitempty"`
	Description  *string `json:"description,omitempty"`
	Artist       *string `json:"artist,omitempty"`
	Category     *string `json:"category,omitempty"`
	Program      *string `json:"program,omitempty"`
	DonationLink *string `json:"donation_link,omitempty"`

	LocationString   *string  `json:"location_string,omitempty"`
	LocationHour     *int     `json:"location_hour,omitempty"`
	LocationMinute   *int     `json:"location_minute,omitempty"`
	LocationDistance *int     `json:"location_distance,omitempty"`
	LocationCategory *string  `json:"location_category,omitempty"`
	GPSLatitude      *float64 `json:"gps_latitude,omitempty"`
	GPSLongitude     *float64 `json:"gps_longitude,omitempty"`

	GuidedTours       bool `json:"guided_tours"`
	SelfGuidedTourMap bool `json:"self_guided_tour_map"`

	// Images are child rows owned by this installation.
	Images []ArtImage `json:"images,omitempty"`
}

// ArtImage is a child row of Art holding one image reference.
type ArtImage struct {
	ID           int64   `json:"id"`
	ArtID        string  `json:"art_id"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
	GalleryRef   *string `json:"gallery_ref,omitempty"`
}

// Camp represents a theme camp.
type Camp struct {
	UID          string  `json:"uid"`
	Name         string  `json:"name"`
	Year         int     `json:"year"`
	URL          *string `json:"url,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	Hometown     *string `json:"hometown,omitempty"`
	Description  *string `json:"description,omitempty"`
	Landmark     *string `json:"landmark,omitempty"`

	LocationString   *string  `json:"location_string,omitempty"`
	Frontage         *string  `json:"frontage,omitempty"`
	Intersection     *string  `json:"intersection,omitempty"`
	IntersectionType *string  `json:"intersection_type,omitempty"`
	Dimensions       *string  `json:"dimensions,omitempty"`
	ExactLocation    *string  `json:"exact_location,omitempty"`
	GPSLatitude      *float64 `json:"gps_latitude,omitempty"`
	GPSLongitude     *float64 `json:"gps_longitude,omitempty"`

	// Images are child rows owned by this camp.
	Images []CampImage `json:"images,omitempty"`
}

// CampImage is a child row of Camp holding one image reference.
type CampImage struct {
	ID           int64   `json:"id"`
	CampID       string  `json:"camp_id"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
}

// Event represents a scheduled event. An event is hosted by at most one camp
// or located at one art installation; the data does not enforce mutual
// exclusivity, only import convention does. GPS coordinates are denormalized
// from the resolved host at import time and are never authoritative.
type Event struct {
	UID              string  `json:"uid"`
	Name             string  `json:"name"`
	Year             int     `json:"year"`
	EventID          *int    `json:"event_id,omitempty"`
	Description      *string `json:"description,omitempty"`
	EventTypeLabel   string  `json:"event_type_label"`
	EventTypeCode    string  `json:"event_type_code"`
	PrintDescription string  `json:"print_description"`
	Slug             *string `json:"slug,omitempty"`
	HostedByCamp     *string `json:"hosted_by_camp,omitempty"`
	LocatedAtArt     *string `json:"located_at_art,omitempty"`
	OtherLocation    string  `json:"other_location"`
	CheckLocation    bool    `json:"check_location"`
	URL              *string `json:"url,omitempty"`
	AllDay           bool    `json:"all_day"`
	Contact          *string `json:"contact,omitempty"`

	GPSLatitude  *float64 `json:"gps_latitude,omitempty"`
	GPSLongitude *float64 `json:"gps_longitude,omitempty"`

	// Occurrences are the concrete start/end intervals of this event.
	// A recurring event has many; the store treats each independently.
	Occurrences []EventOccurrence `json:"occurrences,omitempty"`
}

// UnknownEventType is the label/code pair substituted when the upstream
// record carries no event type.
const (
	UnknownEventTypeLabel = "Unknown"
	UnknownEventTypeCode  = "none"
)

// EventOccurrence is one concrete start/end interval belonging to an Event.
// ID is a store-assigned surrogate key. EndTime > StartTime is expected but
// not enforced; anomalous intervals are stored as-is and surfaced through
// the importer's anomaly counter.
type EventOccurrence struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Duration returns the length of the occurrence interval.
func (o EventOccurrence) Duration() time.Duration {
	return o.EndTime.Sub(o.StartTime)
}

// IsHappening reports whether the occurrence is in progress at now,
// using the half-open convention start <= now < end.
func (o EventOccurrence) IsHappening(now time.Time) bool {
	return !o.StartTime.After(now) && now.Before(o.EndTime)
}

// HasEnded reports whether the occurrence has finished by now.
func (o EventOccurrence) HasEnded(now time.Time) bool {
	return !now.Before(o.EndTime)
}

// IsFuture reports whether the occurrence has not yet started at now.
func (o EventOccurrence) IsFuture(now time.Time) bool {
	return now.Before(o.StartTime)
}

// EventOccurrenceRow is the read-model joining one Event with exactly one of
// its occurrences. Almost every temporal query returns this shape: a 7-day
// recurring event produces 7 rows, one per occurrence, never a row with a
// day list.
type EventOccurrenceRow struct {
	Event      Event           `json:"event"`
	Occurrence EventOccurrence `json:"occurrence"`
}

// Start returns the occurrence start time.
func (r EventOccurrenceRow) Start() time.Time { return r.Occurrence.StartTime }

// End returns the occurrence end time.
func (r EventOccurrenceRow) End() time.Time { return r.Occurrence.EndTime }
