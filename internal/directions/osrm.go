package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"

	"trip_planner/internal/planner"
)

// OSRMClient resolves fixed-order multi-stop driving routes against an OSRM
// instance. It issues exactly one request per invocation and reads only the
// first candidate route.
type OSRMClient struct {
	baseURL string
	client  *http.Client
}

func NewOSRMClient(baseURL string) *OSRMClient {
	return &OSRMClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type osrmRoute struct {
	Distance float64         `json:"distance"` // meters
	Duration float64         `json:"duration"` // seconds
	Geometry json.RawMessage `json:"geometry"` // GeoJSON LineString
}

type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

// Resolve implements planner.Resolver. OSRM visits the coordinates in the
// order given, so the input sequence is the traversal order.
func (c *OSRMClient) Resolve(ctx context.Context, points []geom.Coord) (*planner.RouteData, error) {
	if len(points) < 2 {
		return nil, planner.ErrNoRoute
	}

	pairs := make([]string, len(points))
	for i, p := range points {
		pairs[i] = fmt.Sprintf("%.6f,%.6f", p[0], p[1])
	}
	url := fmt.Sprintf("%s/route/v1/driving/%s?overview=full&geometries=geojson",
		c.baseURL, strings.Join(pairs, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions service returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("directions response decode failed: %w", err)
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return nil, planner.ErrNoRoute
	}

	best := parsed.Routes[0]

	var g geom.T
	if err := gjson.Unmarshal(best.Geometry, &g); err != nil {
		return nil, fmt.Errorf("invalid route geometry: %w", err)
	}
	line, ok := g.(*geom.LineString)
	if !ok {
		return nil, fmt.Errorf("unexpected geometry type %T", g)
	}

	return &planner.RouteData{
		Distance: best.Distance,
		Duration: best.Duration,
		Geometry: line.Coords(),
	}, nil
}
