package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"trip_planner/internal/middleware"
	"trip_planner/internal/planner"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for development (restrict in production!)
	},
}

// planIntent is one user action sent over the planning socket.
type planIntent struct {
	Action    string            `json:"action"` // add, remove, update, clear, settings
	ID        string            `json:"id,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	Latitude  *float64          `json:"latitude,omitempty"`
	Name      *string           `json:"name,omitempty"`
	Settings  *planner.Settings `json:"settings,omitempty"`
}

type stateMessage struct {
	Type string `json:"type"`
	planner.Snapshot
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// PlanSocket runs a live planning session over a WebSocket. The client sends
// waypoint and settings intents; the server runs the reactive pipeline
// (resolution, naming, cost derivation) and pushes a state snapshot after
// every change. Authentication uses a token query parameter since browsers
// cannot set headers on WebSocket connects.
func PlanSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
		return
	}
	userID, err := middleware.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("PlanSocket: upgrade failed")
		return
	}
	defer conn.Close()

	log := logrus.WithField("user_id", userID)
	log.Info("planning session opened")

	var namer planner.Namer
	if placeSearch != nil {
		namer = placeSearch
	}
	session := planner.NewSession(routeResolver, namer)

	// Snapshots arrive from resolver and naming goroutines; a single writer
	// goroutine serializes them onto the connection.
	outbound := make(chan interface{}, 16)
	done := make(chan struct{})

	session.SetOnChange(func(snap planner.Snapshot) {
		select {
		case outbound <- stateMessage{Type: "state", Snapshot: snap}:
		case <-done:
		default:
			log.Warn("planning socket send buffer full, dropping snapshot")
		}
	})

	go func() {
		for {
			select {
			case msg := <-outbound:
				if err := conn.WriteJSON(msg); err != nil {
					if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
						log.WithError(err).Warn("failed to write to planning socket")
					}
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Initial snapshot so the client starts from known state.
	outbound <- stateMessage{Type: "state", Snapshot: session.Snapshot()}

	for {
		var intent planIntent
		if err := conn.ReadJSON(&intent); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("planning socket read error")
			}
			break
		}
		if err := applyIntent(session, intent); err != nil {
			select {
			case outbound <- errorMessage{Type: "error", Error: err.Error()}:
			default:
			}
		}
	}

	close(done)
	log.Info("planning session closed")
}

func applyIntent(session *planner.Session, intent planIntent) error {
	switch intent.Action {
	case "add":
		if intent.Longitude == nil || intent.Latitude == nil {
			return planner.ErrInvalidCoordinate
		}
		_, err := session.AddWaypoint(*intent.Longitude, *intent.Latitude)
		return err
	case "remove":
		session.RemoveWaypoint(intent.ID)
		return nil
	case "update":
		return session.UpdateWaypoint(intent.ID, planner.WaypointUpdate{
			Longitude: intent.Longitude,
			Latitude:  intent.Latitude,
			Name:      intent.Name,
		})
	case "clear":
		session.ClearWaypoints()
		return nil
	case "settings":
		if intent.Settings == nil {
			return planner.ErrInvalidMPG
		}
		return session.SetSettings(*intent.Settings)
	default:
		return fmt.Errorf("unknown action: %s", intent.Action)
	}
}
