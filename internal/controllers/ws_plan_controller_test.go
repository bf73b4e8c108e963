package controllers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/twpayne/go-geom"

	"trip_planner/internal/middleware"
	"trip_planner/internal/planner"
)

type wsState struct {
	Type      string             `json:"type"`
	Waypoints []planner.Waypoint `json:"waypoints"`
	Route     *planner.RouteData `json:"route"`
	Resolving bool               `json:"resolving"`
	Estimate  *planner.Estimate  `json:"estimate"`
	Error     string             `json:"error"`
}

func dialPlanSocket(t *testing.T, resolver planner.Resolver, token string) (*websocket.Conn, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	routeResolver = resolver

	r := gin.New()
	r.GET("/ws/plan", PlanSocket)
	srv := httptest.NewServer(r)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/plan?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("websocket dial failed: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, what string, cond func(wsState) bool) wsState {
	t.Helper()
	for {
		var msg wsState
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("reading for %s: %v", what, err)
		}
		if cond(msg) {
			return msg
		}
	}
}

func TestPlanSocketRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/plan", PlanSocket)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/plan"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake to fail without a token")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Errorf("expected 401 handshake response, got %+v", resp)
	}
}

func TestPlanSocketSession(t *testing.T) {
	resolver := &stubResolver{route: &planner.RouteData{
		Distance: 160934.4,
		Duration: 3725,
		Geometry: []geom.Coord{{10.39, 63.43}, {5.32, 60.39}},
	}}
	token, err := middleware.GenerateToken(42)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	conn, cleanup := dialPlanSocket(t, resolver, token)
	defer cleanup()

	// Initial state: empty.
	first := readUntil(t, conn, "initial state", func(m wsState) bool { return m.Type == "state" })
	if len(first.Waypoints) != 0 || first.Route != nil {
		t.Errorf("initial state not empty: %+v", first)
	}

	// One waypoint: named, but no route yet.
	conn.WriteJSON(map[string]interface{}{"action": "add", "longitude": 10.39, "latitude": 63.43})
	readUntil(t, conn, "first waypoint", func(m wsState) bool {
		return m.Type == "state" && len(m.Waypoints) == 1
	})

	// Second waypoint: resolution runs and an estimate appears.
	conn.WriteJSON(map[string]interface{}{"action": "add", "longitude": 5.32, "latitude": 60.39})
	resolved := readUntil(t, conn, "resolved route", func(m wsState) bool {
		return m.Type == "state" && m.Route != nil && !m.Resolving
	})
	if resolved.Estimate == nil || resolved.Estimate.Cost != 14.0 {
		t.Errorf("estimate = %+v, want cost 14.0", resolved.Estimate)
	}

	// Settings change updates the estimate without a new resolution.
	conn.WriteJSON(map[string]interface{}{
		"action":   "settings",
		"settings": map[string]float64{"mpg": 50, "price_per_gallon": 3.5},
	})
	updated := readUntil(t, conn, "updated estimate", func(m wsState) bool {
		return m.Type == "state" && m.Estimate != nil && m.Estimate.Cost == 7.0
	})
	if updated.Estimate.Gallons != 2.0 {
		t.Errorf("gallons = %v, want 2.0", updated.Estimate.Gallons)
	}

	// Clearing drops route and waypoints.
	conn.WriteJSON(map[string]interface{}{"action": "clear"})
	readUntil(t, conn, "cleared state", func(m wsState) bool {
		return m.Type == "state" && len(m.Waypoints) == 0 && m.Route == nil
	})
}

func TestPlanSocketReportsInvalidIntent(t *testing.T) {
	token, _ := middleware.GenerateToken(7)
	conn, cleanup := dialPlanSocket(t, &stubResolver{}, token)
	defer cleanup()

	conn.WriteJSON(map[string]interface{}{"action": "add", "longitude": 200.0, "latitude": 0.0})
	msg := readUntil(t, conn, "error message", func(m wsState) bool { return m.Type == "error" })
	if msg.Error == "" {
		t.Error("error message has no detail")
	}

	conn.WriteJSON(map[string]interface{}{"action": "teleport"})
	readUntil(t, conn, "unknown action error", func(m wsState) bool { return m.Type == "error" })
}
