package routes

import (
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	AuthRoutes(r)
	RouteRoutes(r)
	PlanRoutes(r)
	WebSocketRoutes(r)

	return r
}
