package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"trip_planner/internal/config"
	"trip_planner/internal/models"
	"trip_planner/internal/planner"
)

// waypointInput is one stop as supplied by the client. Position is never
// accepted from the outside; it is always derived from array order.
type waypointInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

func validateWaypoints(waypoints []waypointInput) error {
	for _, wp := range waypoints {
		if !planner.ValidCoordinate(wp.Longitude, wp.Latitude) {
			return planner.ErrInvalidCoordinate
		}
	}
	return nil
}

func authedUserID(c *gin.Context) uint {
	return uint(c.MustGet("user_id").(float64))
}

// findOwnedRoute fetches a route only if the caller owns it. A route owned
// by someone else is reported exactly like a missing one, so route ids
// cannot be probed.
func findOwnedRoute(c *gin.Context, routeID uint64, userID uint, route *models.Route) bool {
	err := config.DB.Where("id = ? AND user_id = ?", routeID, userID).First(route).Error
	if err == nil {
		return true
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	} else {
		logrus.WithError(err).Error("route lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
	}
	return false
}

// CreateRoute persists a new named route and its waypoint sequence in one
// transaction. Waypoint positions come from array order.
func CreateRoute(c *gin.Context) {
	var input struct {
		Name        string          `json:"name" binding:"required"`
		Description string          `json:"description"`
		Waypoints   []waypointInput `json:"waypoints"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if err := validateWaypoints(input.Waypoints); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := authedUserID(c)

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}

	route := models.Route{Name: input.Name, Description: input.Description, UserID: userID}
	if err := tx.Create(&route).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create route failed: " + err.Error()})
		return
	}

	for i, wp := range input.Waypoints {
		waypoint := models.Waypoint{
			RouteID:   route.ID,
			Position:  i,
			Latitude:  wp.Latitude,
			Longitude: wp.Longitude,
			Name:      wp.Name,
		}
		if err := tx.Create(&waypoint).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Create waypoint failed: " + err.Error()})
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	preloadRoute(&route)
	c.JSON(http.StatusCreated, gin.H{"route": route})
}

// ListRoutes returns the caller's routes, newest first.
func ListRoutes(c *gin.Context) {
	userID := authedUserID(c)

	var routes []models.Route
	if err := config.DB.
		Preload("Waypoints", orderByPosition).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&routes).Error; err != nil {
		logrus.WithError(err).Error("ListRoutes: query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

// GetRoute returns a single owned route with waypoints in traversal order.
func GetRoute(c *gin.Context) {
	userID := authedUserID(c)
	routeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var route models.Route
	if err := config.DB.
		Preload("Waypoints", orderByPosition).
		Where("id = ? AND user_id = ?", routeID, userID).
		First(&route).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": route})
}

// UpdateRoute merges metadata changes and, when a waypoints array is
// supplied, atomically replaces the whole waypoint set. Partial waypoint
// edits are not supported; full replacement keeps positions contiguous
// without reconciliation.
func UpdateRoute(c *gin.Context) {
	userID := authedUserID(c)
	routeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var route models.Route
	if !findOwnedRoute(c, routeID, userID, &route) {
		return
	}

	var input struct {
		Name        *string          `json:"name"`
		Description *string          `json:"description"`
		Waypoints   *[]waypointInput `json:"waypoints"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		if *input.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be empty"})
			return
		}
		route.Name = *input.Name
	}
	if input.Description != nil {
		route.Description = *input.Description
	}
	if input.Waypoints != nil {
		if err := validateWaypoints(*input.Waypoints); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}

	if err := tx.Save(&route).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
		return
	}

	if input.Waypoints != nil {
		if err := tx.Unscoped().Where("route_id = ?", route.ID).Delete(&models.Waypoint{}).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace waypoints: " + err.Error()})
			return
		}
		for i, wp := range *input.Waypoints {
			waypoint := models.Waypoint{
				RouteID:   route.ID,
				Position:  i,
				Latitude:  wp.Latitude,
				Longitude: wp.Longitude,
				Name:      wp.Name,
			}
			if err := tx.Create(&waypoint).Error; err != nil {
				tx.Rollback()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace waypoints: " + err.Error()})
				return
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	preloadRoute(&route)
	c.JSON(http.StatusOK, gin.H{"route": route})
}

// DeleteRoute removes an owned route and all of its waypoints.
func DeleteRoute(c *gin.Context) {
	userID := authedUserID(c)
	routeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var route models.Route
	if !findOwnedRoute(c, routeID, userID, &route) {
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}

	if err := tx.Unscoped().Where("route_id = ?", route.ID).Delete(&models.Waypoint{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete waypoints: " + err.Error()})
		return
	}
	if err := tx.Unscoped().Delete(&route).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete route: " + err.Error()})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Route deleted successfully"})
}

// AddWaypoint appends a single stop to an owned route at the next position.
func AddWaypoint(c *gin.Context) {
	userID := authedUserID(c)
	routeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var route models.Route
	if !findOwnedRoute(c, routeID, userID, &route) {
		return
	}

	var input waypointInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !planner.ValidCoordinate(input.Longitude, input.Latitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": planner.ErrInvalidCoordinate.Error()})
		return
	}

	// Next position after the current tail. COALESCE covers the empty route.
	var next int
	if err := config.DB.Model(&models.Waypoint{}).
		Where("route_id = ?", route.ID).
		Select("COALESCE(MAX(position) + 1, 0)").
		Scan(&next).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	waypoint := models.Waypoint{
		RouteID:   route.ID,
		Position:  next,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Name:      input.Name,
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	if err := tx.Create(&waypoint).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create waypoint failed: " + err.Error()})
		return
	}
	if err := tx.Save(&route).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to touch route: " + err.Error()})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"waypoint": waypoint})
}

// RemoveWaypoint deletes a single stop after verifying the caller owns its
// parent route.
func RemoveWaypoint(c *gin.Context) {
	userID := authedUserID(c)
	waypointID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid waypoint ID"})
		return
	}

	var waypoint models.Waypoint
	if err := config.DB.First(&waypoint, waypointID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Waypoint not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		}
		return
	}

	var route models.Route
	if !findOwnedRoute(c, uint64(waypoint.RouteID), userID, &route) {
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	if err := tx.Unscoped().Delete(&waypoint).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete waypoint: " + err.Error()})
		return
	}
	if err := tx.Save(&route).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to touch route: " + err.Error()})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Waypoint deleted successfully"})
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("waypoints.position ASC")
}

func preloadRoute(route *models.Route) {
	config.DB.Preload("Waypoints", orderByPosition).First(route, route.ID)
}
