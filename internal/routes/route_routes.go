package routes

import (
	"trip_planner/internal/controllers"
	"trip_planner/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RouteRoutes registers the saved-route endpoints. Every operation requires
// an authenticated caller; there is no anonymous route access.
func RouteRoutes(r *gin.Engine) {
	routes := r.Group("/routes")
	routes.Use(middleware.RequireAuth())
	{
		routes.POST("", controllers.CreateRoute)
		routes.GET("", controllers.ListRoutes)
		routes.GET("/:id", controllers.GetRoute)
		routes.PUT("/:id", controllers.UpdateRoute)
		routes.DELETE("/:id", controllers.DeleteRoute)
		routes.POST("/:id/waypoints", controllers.AddWaypoint)
	}

	waypoints := r.Group("/waypoints")
	waypoints.Use(middleware.RequireAuth())
	{
		waypoints.DELETE("/:id", controllers.RemoveWaypoint)
	}
}
