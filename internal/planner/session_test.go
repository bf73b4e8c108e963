package planner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/twpayne/go-geom"
)

// countingResolver returns a fixed result (or error) and counts invocations.
type countingResolver struct {
	calls int32
	route *RouteData
	err   error
}

func (r *countingResolver) Resolve(ctx context.Context, pts []geom.Coord) (*RouteData, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.err != nil {
		return nil, r.err
	}
	return r.route, nil
}

func (r *countingResolver) count() int32 {
	return atomic.LoadInt32(&r.calls)
}

// gatedResolver blocks each invocation until the test releases it, so tests
// can control completion order of overlapping resolutions.
type gatedResolver struct {
	gates chan chan *RouteData
}

func newGatedResolver() *gatedResolver {
	return &gatedResolver{gates: make(chan chan *RouteData, 8)}
}

func (r *gatedResolver) Resolve(ctx context.Context, pts []geom.Coord) (*RouteData, error) {
	gate := make(chan *RouteData)
	r.gates <- gate
	select {
	case route := <-gate:
		if route == nil {
			return nil, ErrNoRoute
		}
		return route, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type staticNamer struct {
	name string
	err  error
}

func (n staticNamer) ReverseName(ctx context.Context, lng, lat float64) (string, error) {
	return n.name, n.err
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNoResolutionBelowTwoWaypoints(t *testing.T) {
	resolver := &countingResolver{route: &RouteData{Distance: 1000}}
	s := NewSession(resolver, nil)

	if _, err := s.AddWaypoint(10.0, 50.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if resolver.count() != 0 {
		t.Errorf("resolver called %d times for a single waypoint, want 0", resolver.count())
	}
	if snap := s.Snapshot(); snap.Route != nil {
		t.Error("single waypoint must have no route")
	}
}

func TestResolutionProducesEstimate(t *testing.T) {
	// 160934.4 m is 100 miles; defaults are 25 MPG at $3.50.
	resolver := &countingResolver{route: &RouteData{Distance: 160934.4, Duration: 3725}}
	s := NewSession(resolver, nil)

	s.AddWaypoint(10.0, 50.0)
	s.AddWaypoint(11.0, 51.0)

	waitFor(t, "route resolution", func() bool {
		snap := s.Snapshot()
		return snap.Route != nil && !snap.Resolving
	})

	snap := s.Snapshot()
	if snap.Estimate == nil {
		t.Fatal("expected an estimate for a resolved route")
	}
	if snap.Estimate.Gallons != 4.0 {
		t.Errorf("gallons = %v, want 4.0", snap.Estimate.Gallons)
	}
	if snap.Estimate.Cost != 14.0 {
		t.Errorf("cost = %v, want 14.0", snap.Estimate.Cost)
	}
	if snap.Estimate.Hours != 1 || snap.Estimate.Minutes != 2 {
		t.Errorf("duration = %d:%d, want 1:2", snap.Estimate.Hours, snap.Estimate.Minutes)
	}
}

func TestStaleResolutionDiscarded(t *testing.T) {
	resolver := newGatedResolver()
	s := NewSession(resolver, nil)

	s.AddWaypoint(10.0, 50.0)
	s.AddWaypoint(11.0, 51.0)

	var gateA chan *RouteData
	select {
	case gateA = <-resolver.gates:
	case <-time.After(time.Second):
		t.Fatal("first resolution never started")
	}

	// Mutate the sequence before the first resolution completes.
	s.AddWaypoint(12.0, 52.0)

	var gateB chan *RouteData
	select {
	case gateB = <-resolver.gates:
	case <-time.After(time.Second):
		t.Fatal("second resolution never started")
	}

	// The newer resolution completes first.
	gateB <- &RouteData{Distance: 3000}
	waitFor(t, "second resolution to land", func() bool {
		snap := s.Snapshot()
		return snap.Route != nil && snap.Route.Distance == 3000 && !snap.Resolving
	})

	// The stale result arrives late; it must be discarded.
	gateA <- &RouteData{Distance: 2000}
	time.Sleep(100 * time.Millisecond)

	if snap := s.Snapshot(); snap.Route == nil || snap.Route.Distance != 3000 {
		t.Errorf("stale resolution overwrote the current route: %+v", snap.Route)
	}
}

func TestFailedResolutionYieldsNoRoute(t *testing.T) {
	resolver := &countingResolver{err: errors.New("provider unreachable")}
	s := NewSession(resolver, nil)

	s.AddWaypoint(10.0, 50.0)
	s.AddWaypoint(11.0, 51.0)

	waitFor(t, "failed resolution to settle", func() bool {
		snap := s.Snapshot()
		return resolver.count() > 0 && !snap.Resolving
	})

	if snap := s.Snapshot(); snap.Route != nil {
		t.Error("a failed resolution must yield no route, not an error state")
	}
}

func TestClearDropsRoute(t *testing.T) {
	resolver := &countingResolver{route: &RouteData{Distance: 1000}}
	s := NewSession(resolver, nil)

	s.AddWaypoint(10.0, 50.0)
	s.AddWaypoint(11.0, 51.0)
	waitFor(t, "initial resolution", func() bool {
		return s.Snapshot().Route != nil
	})

	s.ClearWaypoints()
	waitFor(t, "clear to settle", func() bool {
		snap := s.Snapshot()
		return snap.Route == nil && len(snap.Waypoints) == 0 && !snap.Resolving
	})
}

func TestAddWaypointRejectsOutOfRange(t *testing.T) {
	s := NewSession(&countingResolver{}, nil)

	if _, err := s.AddWaypoint(200.0, 50.0); err == nil {
		t.Error("longitude 200 should be rejected")
	}
	if _, err := s.AddWaypoint(10.0, -95.0); err == nil {
		t.Error("latitude -95 should be rejected")
	}
	if len(s.Snapshot().Waypoints) != 0 {
		t.Error("rejected waypoints must not enter the sequence")
	}
}

func TestNamingWithNilNamerUsesCoordinateLabel(t *testing.T) {
	s := NewSession(&countingResolver{}, nil)

	wp, err := s.AddWaypoint(10.39510, 63.43050)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := s.Snapshot().Waypoints[0]
	if got.NamePending {
		t.Error("name should not stay pending without a namer")
	}
	if got.Name != FallbackLabel(wp.Longitude, wp.Latitude) {
		t.Errorf("name = %q, want coordinate label", got.Name)
	}
}

func TestNamingBackfill(t *testing.T) {
	s := NewSession(&countingResolver{}, staticNamer{name: "Main Street"})

	s.AddWaypoint(10.0, 50.0)
	waitFor(t, "name backfill", func() bool {
		wps := s.Snapshot().Waypoints
		return len(wps) == 1 && !wps[0].NamePending
	})

	if got := s.Snapshot().Waypoints[0].Name; got != "Main Street" {
		t.Errorf("name = %q, want %q", got, "Main Street")
	}
}

func TestNamingFailureFallsBack(t *testing.T) {
	s := NewSession(&countingResolver{}, staticNamer{err: errors.New("lookup failed")})

	wp, _ := s.AddWaypoint(10.0, 50.0)
	waitFor(t, "fallback name", func() bool {
		wps := s.Snapshot().Waypoints
		return len(wps) == 1 && !wps[0].NamePending
	})

	if got := s.Snapshot().Waypoints[0].Name; got != FallbackLabel(wp.Longitude, wp.Latitude) {
		t.Errorf("name = %q, want coordinate label", got)
	}
}

func TestSetSettingsValidation(t *testing.T) {
	s := NewSession(&countingResolver{}, nil)

	if err := s.SetSettings(Settings{MPG: 0, PricePerGallon: 3.5}); err == nil {
		t.Error("mpg = 0 settings should be rejected")
	}
	if err := s.SetSettings(Settings{MPG: 30, PricePerGallon: 4.0}); err != nil {
		t.Errorf("valid settings rejected: %v", err)
	}
	if got := s.Snapshot().Settings; got.MPG != 30 || got.PricePerGallon != 4.0 {
		t.Errorf("settings not applied: %+v", got)
	}
}

func TestUpdateWaypointMoveRetriggersResolution(t *testing.T) {
	resolver := &countingResolver{route: &RouteData{Distance: 1000}}
	s := NewSession(resolver, nil)

	wp, _ := s.AddWaypoint(10.0, 50.0)
	s.AddWaypoint(11.0, 51.0)
	waitFor(t, "initial resolution", func() bool {
		return s.Snapshot().Route != nil
	})
	before := resolver.count()

	lng := 10.5
	if err := s.UpdateWaypoint(wp.ID, WaypointUpdate{Longitude: &lng}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, "re-resolution after move", func() bool {
		return resolver.count() > before
	})

	// A pure rename must not trigger another resolution.
	name := "Renamed"
	s.UpdateWaypoint(wp.ID, WaypointUpdate{Name: &name})
	time.Sleep(50 * time.Millisecond)
	if resolver.count() != before+1 {
		t.Errorf("rename triggered a resolution: %d calls, want %d", resolver.count(), before+1)
	}
}
