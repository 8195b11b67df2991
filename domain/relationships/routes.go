package relationships

import (
	"github.com/labstack/echo/v4"

	"github.com/latticehq/lattice-core/pkg/auth"
)

// RegisterRoutes registers all relationship and graph routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	api := e.Group("/api")
	api.Use(authMiddleware.RequireAuth())

	rels := api.Group("/relationships")
	rels.POST("", h.Create)
	rels.GET("", h.List)
	rels.POST("/bulk", h.BulkCreate)
	rels.POST("/path", h.FindPath)
	rels.GET("/:id", h.Get)
	rels.PUT("/:id", h.Update)
	rels.DELETE("/:id", h.Delete)

	shards := api.Group("/shards/:shardId")
	shards.GET("/relationships", h.GetShardRelationships)
	shards.GET("/relationships/summary", h.GetSummary)
	shards.GET("/related", h.GetRelatedShards)
	shards.POST("/graph", h.Traverse)
}
