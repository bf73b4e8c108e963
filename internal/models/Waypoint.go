package models

import (
	"gorm.io/gorm"
)

// Waypoint represents a single stop along a saved route.
// Position is the zero-based, contiguous traversal order within the route;
// it is always re-derived from array order when a waypoint set is written.
// Coordinates use decimal columns with 8 fractional digits so that stored
// points round-trip without losing sub-meter precision.
type Waypoint struct {
	gorm.Model

	RouteID   uint    `json:"route_id" gorm:"index"`
	Position  int     `json:"position"`
	Latitude  float64 `json:"latitude" gorm:"type:decimal(11,8)"`
	Longitude float64 `json:"longitude" gorm:"type:decimal(12,8)"`
	Name      string  `json:"name"`
}
