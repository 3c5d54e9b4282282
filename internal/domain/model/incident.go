// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/paulmach/orb"
)

// Category labels an incident type, e.g. "Shootings" or "Assaults".
type Category string

// IncidentRecord is one historical incident at a location. Records are
// immutable once loaded.
type IncidentRecord struct {
	Category   Category
	Latitude   float64
	Longitude  float64
	OccurredAt time.Time // zero when the source carries no timestamp
}

// Point returns the record location as an orb point (longitude, latitude).
func (r IncidentRecord) Point() orb.Point {
	return orb.Point{r.Longitude, r.Latitude}
}
