// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

package models

// DataObject is a tagged union over the three entity kinds. Exactly one of
// Art, Camp, or Event is non-nil, indicated by Type. Mixed-kind query
// results (bounding-box, search, favorites) use this instead of a runtime
// interface so callers never need type assertions.
type DataObject struct {
	Type  ObjectType `json:"type"`
	Art   *Art       `json:"art,omitempty"`
	Camp  *Camp      `json:"camp,omitempty"`
	Event *Event     `json:"event,omitempty"`
}

// ArtObject wraps an Art record as a DataObject.
func ArtObject(a Art) DataObject {
	return DataObject{Type: ObjectTypeArt, Art: &a}
}

// CampObject wraps a Camp record as a DataObject.
func CampObject(c Camp) DataObject {
	return DataObject{Type: ObjectTypeCamp, Camp: &c}
}

// EventObject wraps an Event record as a DataObject.
func EventObject(e Event) DataObject {
	return DataObject{Type: ObjectTypeEvent, Event: &e}
}

// UID returns the wrapped object's upstream identifier.
func (d DataObject) UID() string {
	switch d.Type {
	case ObjectTypeArt:
		return d.Art.UID
	case ObjectTypeCamp:
		return d.Camp.UID
	case ObjectTypeEvent:
		return d.Event.UID
	}
	return ""
}

// Name returns the wrapped object's display name.
func (d DataObject) Name() string {
	switch d.Type {
	case ObjectTypeArt:
		return d.Art.Name
	case ObjectTypeCamp:
		return d.Camp.Name
	case ObjectTypeEvent:
		return d.Event.Name
	}
	return ""
}

// Location returns the wrapped object's GPS point, or ok=false when the
// object carries no coordinates.
func (d DataObject) Location() (lat, lon float64, ok bool) {
	var pLat, pLon *float64
	switch d.Type {
	case ObjectTypeArt:
		pLat, pLon = d.Art.GPSLatitude, d.Art.GPSLongitude
	case ObjectTypeCamp:
		pLat, pLon = d.Camp.GPSLatitude, d.Camp.GPSLongitude
	case ObjectTypeEvent:
		pLat, pLon = d.Event.GPSLatitude, d.Event.GPSLongitude
	}
	if pLat == nil || pLon == nil {
		return 0, 0, false
	}
	return *pLat, *pLon, true
}

// BoundingBox is an axis-aligned lat/lon rectangle. It is a plain rectangle
// in coordinate space, not a great-circle region; at Black Rock City scale
// the difference is irrelevant.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies within the box, bounds inclusive.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Valid reports whether the box's bounds are ordered.
func (b BoundingBox) Valid() bool {
	return b.MinLat <= b.MaxLat && b.MinLon <= b.MaxLon
}
