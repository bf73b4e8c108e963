package planner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
)

// ErrInvalidCoordinate is returned when a longitude/latitude pair is out of
// range. Invalid coordinates never reach the resolver.
var ErrInvalidCoordinate = errors.New("coordinate out of range")

// ValidCoordinate reports whether a longitude/latitude pair is within range.
func ValidCoordinate(lng, lat float64) bool {
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// Estimate is the derived fuel figure set for the currently resolved route.
type Estimate struct {
	Miles   float64 `json:"miles"`
	Gallons float64 `json:"gallons"`
	Cost    float64 `json:"cost"`
	Hours   int     `json:"hours"`
	Minutes int     `json:"minutes"`
}

// Snapshot is a consistent view of a session handed to the presentation
// layer. Route is nil while unresolved or when no route exists; Estimate is
// nil whenever Route is.
type Snapshot struct {
	Waypoints []Waypoint `json:"waypoints"`
	Route     *RouteData `json:"route"`
	Resolving bool       `json:"resolving"`
	Settings  Settings   `json:"settings"`
	Estimate  *Estimate  `json:"estimate"`
}

// Session owns the reactive planning pipeline for one user session: the
// waypoint store, the cached resolver result, and the cost settings. Every
// sequence mutation triggers a new resolution; results from superseded
// resolutions are discarded by comparing a generation counter captured when
// the resolution started.
type Session struct {
	mu        sync.Mutex
	store     *Store
	settings  Settings
	resolver  Resolver
	namer     Namer
	timeout   time.Duration
	route     *RouteData
	resolving bool
	gen       uint64
	onChange  func(Snapshot)
}

// NewSession creates a session with default settings. namer may be nil, in
// which case waypoints are labeled from their coordinates immediately.
func NewSession(resolver Resolver, namer Namer) *Session {
	return &Session{
		store:    NewStore(),
		settings: DefaultSettings,
		resolver: resolver,
		namer:    namer,
		timeout:  10 * time.Second,
	}
}

// SetOnChange registers a callback invoked with a fresh snapshot after every
// observable state change.
func (s *Session) SetOnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// AddWaypoint appends a stop, kicks off asynchronous naming and triggers a
// new resolution.
func (s *Session) AddWaypoint(lng, lat float64) (Waypoint, error) {
	if !ValidCoordinate(lng, lat) {
		return Waypoint{}, ErrInvalidCoordinate
	}
	wp := s.store.Add(lng, lat)
	s.nameAsync(wp)
	s.recompute()
	return wp, nil
}

// RemoveWaypoint deletes a stop. Unknown ids are a no-op.
func (s *Session) RemoveWaypoint(id string) {
	if s.store.Remove(id) {
		s.recompute()
	}
}

// UpdateWaypoint merges fields into a stop. A coordinate change (drag)
// triggers a new resolution; a name edit only refreshes the snapshot.
func (s *Session) UpdateWaypoint(id string, u WaypointUpdate) error {
	if u.Longitude != nil && (*u.Longitude < -180 || *u.Longitude > 180) {
		return ErrInvalidCoordinate
	}
	if u.Latitude != nil && (*u.Latitude < -90 || *u.Latitude > 90) {
		return ErrInvalidCoordinate
	}
	if !s.store.Update(id, u) {
		return nil
	}
	if u.Longitude != nil || u.Latitude != nil {
		s.recompute()
	} else {
		s.notify()
	}
	return nil
}

// ClearWaypoints empties the sequence and drops any resolved route.
func (s *Session) ClearWaypoints() {
	s.store.Clear()
	s.recompute()
}

// SetSettings replaces the fuel settings after validating them.
func (s *Session) SetSettings(st Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = st
	s.mu.Unlock()
	s.notify()
	return nil
}

// Snapshot returns a consistent copy of the current session state with
// derived cost figures filled in.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Waypoints: s.store.Waypoints(),
		Route:     s.route,
		Resolving: s.resolving,
		Settings:  s.settings,
	}
	if s.route != nil {
		miles := MetersToMiles(s.route.Distance)
		gallons, gerr := GallonsNeeded(miles, s.settings.MPG)
		cost, cerr := FuelCost(miles, s.settings)
		if gerr == nil && cerr == nil {
			hours, minutes := SplitDuration(s.route.Duration)
			snap.Estimate = &Estimate{
				Miles:   Round2(miles),
				Gallons: gallons,
				Cost:    cost,
				Hours:   hours,
				Minutes: minutes,
			}
		}
	}
	return snap
}

// nameAsync backfills the waypoint's display name. Failures degrade to the
// coordinate label; the sequence is never left with a blank name.
func (s *Session) nameAsync(wp Waypoint) {
	done := func(name string) {
		pending := false
		s.store.Update(wp.ID, WaypointUpdate{Name: &name, NamePending: &pending})
		s.notify()
	}

	if s.namer == nil {
		done(FallbackLabel(wp.Longitude, wp.Latitude))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		name, err := s.namer.ReverseName(ctx, wp.Longitude, wp.Latitude)
		if err != nil || name == "" {
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"lng": wp.Longitude,
					"lat": wp.Latitude,
				}).Warn("reverse geocoding failed, using coordinate label")
			}
			name = FallbackLabel(wp.Longitude, wp.Latitude)
		}
		done(name)
	}()
}

// recompute starts a new resolution for the current sequence. Bumping the
// generation counter first means any still-running resolution finds itself
// stale on completion and discards its result.
func (s *Session) recompute() {
	s.mu.Lock()
	s.gen++
	gen := s.gen

	waypoints := s.store.Waypoints()
	if len(waypoints) < 2 {
		s.route = nil
		s.resolving = false
		s.mu.Unlock()
		s.notify()
		return
	}

	points := make([]geom.Coord, len(waypoints))
	for i, wp := range waypoints {
		points[i] = geom.Coord{wp.Longitude, wp.Latitude}
	}
	s.resolving = true
	s.mu.Unlock()
	s.notify()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		route, err := s.resolver.Resolve(ctx, points)

		s.mu.Lock()
		if gen != s.gen {
			// A newer sequence superseded this resolution.
			s.mu.Unlock()
			return
		}
		if err != nil {
			if !errors.Is(err, ErrNoRoute) {
				logrus.WithError(err).Warn("route resolution failed")
			}
			s.route = nil
		} else {
			s.route = route
		}
		s.resolving = false
		s.mu.Unlock()
		s.notify()
	}()
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onChange
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
