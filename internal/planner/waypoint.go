package planner

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Waypoint is a single user-placed stop in the working sequence. IDs are
// client-generated and stable until the sequence is persisted, at which point
// storage assigns its own identifiers.
type Waypoint struct {
	ID          string  `json:"id"`
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`
	Name        string  `json:"name"`
	NamePending bool    `json:"name_pending"`
}

// WaypointUpdate carries the fields of a waypoint that may be merged in
// place. Nil fields are left untouched.
type WaypointUpdate struct {
	Longitude   *float64
	Latitude    *float64
	Name        *string
	NamePending *bool
}

// FallbackLabel synthesizes a display name from raw coordinates. Used when
// reverse geocoding fails so a waypoint never ends up unnamed.
func FallbackLabel(lng, lat float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, lng)
}

// Store holds the ordered waypoint sequence for one planning session.
// All operations are synchronous; readers always get a copied snapshot, so
// no caller ever observes a half-mutated sequence.
type Store struct {
	mu        sync.Mutex
	waypoints []Waypoint
}

func NewStore() *Store {
	return &Store{}
}

// Add appends a new waypoint at the end of the sequence and returns it.
// The name starts pending; the owner of the store is expected to backfill it
// (or the coordinate fallback) via Update.
func (s *Store) Add(lng, lat float64) Waypoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	wp := Waypoint{
		ID:          uuid.NewString(),
		Longitude:   lng,
		Latitude:    lat,
		NamePending: true,
	}
	s.waypoints = append(s.waypoints, wp)
	return wp
}

// Remove deletes the waypoint with the given id. Removing an unknown id is a
// no-op, not an error.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, wp := range s.waypoints {
		if wp.ID == id {
			s.waypoints = append(s.waypoints[:i], s.waypoints[i+1:]...)
			return true
		}
	}
	return false
}

// Update merges the given fields into the waypoint with the matching id.
// Unknown ids are a no-op.
func (s *Store) Update(id string, u WaypointUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.waypoints {
		if s.waypoints[i].ID != id {
			continue
		}
		if u.Longitude != nil {
			s.waypoints[i].Longitude = *u.Longitude
		}
		if u.Latitude != nil {
			s.waypoints[i].Latitude = *u.Latitude
		}
		if u.Name != nil {
			s.waypoints[i].Name = *u.Name
		}
		if u.NamePending != nil {
			s.waypoints[i].NamePending = *u.NamePending
		}
		return true
	}
	return false
}

// Clear empties the sequence.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waypoints = nil
}

// Waypoints returns a copy of the current sequence in traversal order.
func (s *Store) Waypoints() []Waypoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Waypoint, len(s.waypoints))
	copy(out, s.waypoints)
	return out
}

// Len returns the number of waypoints in the sequence.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waypoints)
}
