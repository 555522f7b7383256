package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Queries *QueryHandler
	Health  *HealthHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/queries", deps.Queries.Submit)
	api.GET("/queries/:id", deps.Queries.Poll)
	api.GET("/health", deps.Health.Health)
}
