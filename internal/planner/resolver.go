package planner

import (
	"context"
	"errors"

	"github.com/twpayne/go-geom"
)

// RouteData is the resolved path connecting a waypoint sequence in input
// order. It is derived state: recomputed whenever the sequence changes and
// never persisted.
type RouteData struct {
	Distance float64      `json:"distance"` // meters
	Duration float64      `json:"duration"` // seconds
	Geometry []geom.Coord `json:"geometry"` // lng/lat pairs along the driven path
}

// ErrNoRoute is returned by a Resolver when the provider could not connect
// the given points. Callers treat it as an ordinary "no route" state, not a
// failure.
var ErrNoRoute = errors.New("no route found")

// Resolver obtains a single best fixed-order path through the given points.
// Implementations must preserve input order (multi-stop routing, not a
// traveling-salesman optimization) and must return ErrNoRoute for fewer than
// two points without contacting any external service.
type Resolver interface {
	Resolve(ctx context.Context, points []geom.Coord) (*RouteData, error)
}

// Namer resolves a human-readable label for a coordinate. Used for the
// asynchronous waypoint naming side effect.
type Namer interface {
	ReverseName(ctx context.Context, lng, lat float64) (string, error)
}
