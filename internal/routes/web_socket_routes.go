package routes

import (
	"trip_planner/internal/controllers"

	"github.com/gin-gonic/gin"
)

func WebSocketRoutes(r *gin.Engine) {
	r.GET("/ws/plan", controllers.PlanSocket)
}
