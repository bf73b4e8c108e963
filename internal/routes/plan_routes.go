package routes

import (
	"trip_planner/internal/controllers"

	"github.com/gin-gonic/gin"
)

// PlanRoutes registers the stateless planning endpoints. These are open:
// previewing a route and searching places work without an account.
func PlanRoutes(r *gin.Engine) {
	plan := r.Group("/plan")
	{
		plan.POST("/preview", controllers.PlanPreview)
		plan.GET("/search", controllers.SearchPlaces)
		plan.GET("/reverse", controllers.ReverseGeocode)
		plan.GET("/place/:ref", controllers.LookupPlace)
	}
}
