package risk

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/latticehq/lattice-core/pkg/apperror"
	"github.com/latticehq/lattice-core/pkg/auth"
)

// Handler handles HTTP requests for the risk pipeline.
type Handler struct {
	svc     *Service
	sweeper *Sweeper
}

// NewHandler creates a new risk handler.
func NewHandler(svc *Service, sweeper *Sweeper) *Handler {
	return &Handler{svc: svc, sweeper: sweeper}
}

func opportunityID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("opportunityId"))
	if err != nil {
		return uuid.Nil, apperror.ErrBadRequest.WithMessage("invalid opportunity id")
	}
	return id, nil
}

// Evaluate runs a synchronous evaluation.
// POST /api/risk/opportunities/:opportunityId/evaluate
func (h *Handler) Evaluate(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	oppID, err := opportunityID(c)
	if err != nil {
		return err
	}

	eval, err := h.svc.Evaluate(c.Request().Context(), tenantID, oppID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, eval)
}

// enqueueRequest is the async evaluation request body.
type enqueueRequest struct {
	Priority int `json:"priority"`
}

// EnqueueEvaluation queues an async evaluation and returns the job.
// POST /api/risk/opportunities/:opportunityId/evaluate/async
func (h *Handler) EnqueueEvaluation(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	oppID, err := opportunityID(c)
	if err != nil {
		return err
	}

	var req enqueueRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	job, err := h.svc.EnqueueEvaluation(c.Request().Context(), tenantID, oppID, req.Priority)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, job)
}

// GetEvaluation returns the latest stored evaluation.
// GET /api/risk/opportunities/:opportunityId/evaluation
func (h *Handler) GetEvaluation(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	oppID, err := opportunityID(c)
	if err != nil {
		return err
	}

	eval, err := h.svc.GetEvaluation(c.Request().Context(), tenantID, oppID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, eval)
}

// GetJob returns an async evaluation job.
// GET /api/risk/jobs/:id
func (h *Handler) GetJob(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid job id")
	}

	job, err := h.svc.GetJob(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, job)
}

// RevenueAtRisk returns the portfolio rollup for a scope.
// GET /api/risk/revenue-at-risk?scope=user|team|tenant&scopeId=
func (h *Handler) RevenueAtRisk(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	scope := AggregationScope(c.QueryParam("scope"))
	if scope == "" {
		scope = ScopeTenantWide
	}

	var scopeID *uuid.UUID
	if v := c.QueryParam("scopeId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("invalid scopeId")
		}
		scopeID = &id
	}

	report, err := h.svc.RevenueAtRisk(c.Request().Context(), tenantID, scope, scopeID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}

// Simulate runs a what-if evaluation without persisting anything.
// POST /api/risk/opportunities/:opportunityId/simulate
func (h *Handler) Simulate(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	oppID, err := opportunityID(c)
	if err != nil {
		return err
	}

	var overrides ScenarioOverrides
	if err := c.Bind(&overrides); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	result, err := h.svc.SimulateScenario(c.Request().Context(), tenantID, oppID, &overrides)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// RunSweep triggers the early-warning sweep outside its schedule.
// POST /api/risk/sweep
func (h *Handler) RunSweep(c echo.Context) error {
	if _, err := auth.GetTenantID(c); err != nil {
		return err
	}

	flagged, err := h.sweeper.RunOnce(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]int{"flagged": flagged})
}
