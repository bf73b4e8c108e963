package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"

	"trip_planner/internal/config"
	"trip_planner/internal/directions"
	"trip_planner/internal/geocoder"
	"trip_planner/internal/planner"
)

// Shared provider clients. Tests swap these for fakes.
var (
	routeResolver planner.Resolver
	placeSearch   *geocoder.NominatimClient
)

// InitServices wires the external provider clients from configuration.
// Called once from main after the environment is loaded.
func InitServices() {
	osrm := directions.NewOSRMClient(config.OSRMBaseURL())
	routeResolver = osrm
	placeSearch = geocoder.NewNominatimClient(config.NominatimBaseURL())
}

// PlanPreview resolves a waypoint sequence and derives fuel figures without
// touching storage. "No route" is an ordinary outcome, not an error: the
// response then carries a null route and estimate.
func PlanPreview(c *gin.Context) {
	var input struct {
		Waypoints []waypointInput  `json:"waypoints"`
		Settings  planner.Settings `json:"settings"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateWaypoints(input.Waypoints); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := input.Settings.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(input.Waypoints) < 2 {
		c.JSON(http.StatusOK, gin.H{"route": nil, "estimate": nil})
		return
	}

	points := make([]geom.Coord, len(input.Waypoints))
	for i, wp := range input.Waypoints {
		points[i] = geom.Coord{wp.Longitude, wp.Latitude}
	}

	route, err := routeResolver.Resolve(c.Request.Context(), points)
	if err != nil {
		if !errors.Is(err, planner.ErrNoRoute) {
			logrus.WithError(err).Warn("PlanPreview: route resolution failed")
		}
		c.JSON(http.StatusOK, gin.H{"route": nil, "estimate": nil})
		return
	}

	miles := planner.Round2(planner.MetersToMiles(route.Distance))
	gallons, _ := planner.GallonsNeeded(miles, input.Settings.MPG)
	cost, _ := planner.FuelCost(miles, input.Settings)
	hours, minutes := planner.SplitDuration(route.Duration)

	c.JSON(http.StatusOK, gin.H{
		"route": gin.H{
			"distance": route.Distance,
			"duration": route.Duration,
			"geometry": lineStringJSON(route.Geometry),
		},
		"estimate": planner.Estimate{
			Miles:   miles,
			Gallons: gallons,
			Cost:    cost,
			Hours:   hours,
			Minutes: minutes,
		},
	})
}

// SearchPlaces proxies a place search. The session token groups the
// keystrokes of one interactive search; one is minted here when the client
// has not started a session yet, and echoed back so the client can reuse it.
func SearchPlaces(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter 'q'"})
		return
	}

	session := c.Query("session")
	if session == "" {
		session = uuid.NewString()
	}

	suggestions, err := placeSearch.Search(c.Request.Context(), query, session)
	if err != nil {
		logrus.WithError(err).Warn("SearchPlaces: provider error")
		c.JSON(http.StatusOK, gin.H{"suggestions": []geocoder.Suggestion{}, "session": session})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "session": session})
}

// ReverseGeocode labels a coordinate. Provider failures degrade to the
// deterministic coordinate label so the response always carries a name.
func ReverseGeocode(c *gin.Context) {
	lat, laterr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngerr := strconv.ParseFloat(c.Query("lng"), 64)
	if laterr != nil || lngerr != nil || !planner.ValidCoordinate(lng, lat) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
		return
	}

	name, err := placeSearch.ReverseName(c.Request.Context(), lng, lat)
	if err != nil {
		logrus.WithError(err).Warn("ReverseGeocode: provider error, using coordinate label")
		name = planner.FallbackLabel(lng, lat)
	}

	c.JSON(http.StatusOK, gin.H{"name": name})
}

// LookupPlace resolves a previously returned suggestion reference to its
// coordinate.
func LookupPlace(c *gin.Context) {
	ref := c.Param("ref")

	place, err := placeSearch.Lookup(c.Request.Context(), ref)
	if err != nil {
		if errors.Is(err, geocoder.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Place not found"})
		} else {
			logrus.WithError(err).Warn("LookupPlace: provider error")
			c.JSON(http.StatusBadGateway, gin.H{"error": "place lookup failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"place": place})
}

// lineStringJSON renders resolved route geometry as a GeoJSON LineString.
func lineStringJSON(coords []geom.Coord) json.RawMessage {
	if len(coords) < 2 {
		return nil
	}
	line := geom.NewLineString(geom.XY)
	if _, err := line.SetCoords(coords); err != nil {
		logrus.WithError(err).Warn("failed to build route geometry")
		return nil
	}
	b, err := gjson.Marshal(line)
	if err != nil {
		logrus.WithError(err).Warn("failed to encode route geometry")
		return nil
	}
	return b
}
