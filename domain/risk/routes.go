package risk

import (
	"github.com/labstack/echo/v4"

	"github.com/latticehq/lattice-core/pkg/auth"
)

// RegisterRoutes registers all risk routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/risk")
	g.Use(authMiddleware.RequireAuth())

	opps := g.Group("/opportunities/:opportunityId")
	opps.POST("/evaluate", h.Evaluate)
	opps.POST("/evaluate/async", h.EnqueueEvaluation)
	opps.GET("/evaluation", h.GetEvaluation)
	opps.POST("/simulate", h.Simulate)

	g.GET("/jobs/:id", h.GetJob)
	g.GET("/revenue-at-risk", h.RevenueAtRisk)
	g.POST("/sweep", h.RunSweep)
}
