package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the provider has no result for a query.
var ErrNotFound = errors.New("no matching place found")

// Suggestion is one ranked candidate from a place search. Ref is an opaque
// reference that can later be handed to Lookup to resolve the coordinate.
type Suggestion struct {
	Ref        string  `json:"ref"`
	Name       string  `json:"name"`
	Class      string  `json:"class"`
	Type       string  `json:"type"`
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
	Importance float64 `json:"importance"`
}

// ClassPriority orders suggestion feature classes for display: boundaries and
// populated places before points of interest. Unlisted classes sort last.
// This is product policy, not a contract; same-class results keep the
// provider's relative order.
var ClassPriority = map[string]int{
	"boundary": 0,
	"place":    1,
	"highway":  2,
}

const unlistedClassPriority = 3

// NominatimClient talks to a Nominatim-style geocoding service.
type NominatimClient struct {
	baseURL string
	client  *http.Client
}

func NewNominatimClient(baseURL string) *NominatimClient {
	return &NominatimClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimPlace struct {
	OsmType     string  `json:"osm_type"`
	OsmID       int64   `json:"osm_id"`
	DisplayName string  `json:"display_name"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Importance  float64 `json:"importance"`
}

func (p nominatimPlace) ref() string {
	if p.OsmType == "" {
		return ""
	}
	// "node" -> N, "way" -> W, "relation" -> R, matching the lookup API
	return strings.ToUpper(p.OsmType[:1]) + strconv.FormatInt(p.OsmID, 10)
}

func (c *NominatimClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("format", "jsonv2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "trip-planner/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoding service returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ReverseName implements planner.Namer: best-effort display name for a
// coordinate.
func (c *NominatimClient) ReverseName(ctx context.Context, lng, lat float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 8, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', 8, 64))

	var place nominatimPlace
	if err := c.get(ctx, "/reverse", params, &place); err != nil {
		return "", err
	}
	if place.DisplayName == "" {
		return "", ErrNotFound
	}
	return place.DisplayName, nil
}

// Search returns ranked place suggestions for a partial query, re-ranked so
// administrative results come before points of interest. sessionToken groups
// the keystrokes of one interactive search for the provider's billing and is
// passed through opaquely.
func (c *NominatimClient) Search(ctx context.Context, query, sessionToken string) ([]Suggestion, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "10")
	if sessionToken != "" {
		params.Set("sessiontoken", sessionToken)
	}

	var places []nominatimPlace
	if err := c.get(ctx, "/search", params, &places); err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(places))
	for _, p := range places {
		lat, laterr := strconv.ParseFloat(p.Lat, 64)
		lng, lngerr := strconv.ParseFloat(p.Lon, 64)
		if laterr != nil || lngerr != nil {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Ref:        p.ref(),
			Name:       p.DisplayName,
			Class:      p.Class,
			Type:       p.Type,
			Longitude:  lng,
			Latitude:   lat,
			Importance: p.Importance,
		})
	}

	Rerank(suggestions)
	return suggestions, nil
}

// Lookup resolves a suggestion reference back to its place.
func (c *NominatimClient) Lookup(ctx context.Context, ref string) (*Suggestion, error) {
	params := url.Values{}
	params.Set("osm_ids", ref)

	var places []nominatimPlace
	if err := c.get(ctx, "/lookup", params, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, ErrNotFound
	}

	p := places[0]
	lat, laterr := strconv.ParseFloat(p.Lat, 64)
	lng, lngerr := strconv.ParseFloat(p.Lon, 64)
	if laterr != nil || lngerr != nil {
		return nil, fmt.Errorf("place %s has unparseable coordinates", ref)
	}
	return &Suggestion{
		Ref:        p.ref(),
		Name:       p.DisplayName,
		Class:      p.Class,
		Type:       p.Type,
		Longitude:  lng,
		Latitude:   lat,
		Importance: p.Importance,
	}, nil
}

// Rerank sorts suggestions by feature-class priority. The sort is stable:
// same-class results keep their provider order.
func Rerank(suggestions []Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		return classRank(suggestions[i].Class) < classRank(suggestions[j].Class)
	})
}

func classRank(class string) int {
	if rank, ok := ClassPriority[class]; ok {
		return rank
	}
	return unlistedClassPriority
}
