package models

import (
	"gorm.io/gorm"
)

// Route represents a saved trip owned by a single user.
// A route exclusively owns its waypoints; deleting a route deletes them with it.
type Route struct {
	gorm.Model

	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	UserID      uint   `json:"user_id" gorm:"index"`

	// Associations
	Waypoints []Waypoint `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"waypoints,omitempty"`
}
