package relationships

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/latticehq/lattice-core/pkg/apperror"
	"github.com/latticehq/lattice-core/pkg/auth"
	"github.com/latticehq/lattice-core/pkg/monitoring"
)

// Handler handles HTTP requests for relationship and graph operations.
type Handler struct {
	svc        *Service
	traverser  *Traverser
	pathfinder *Pathfinder
}

// NewHandler creates a new relationship handler.
func NewHandler(svc *Service, traverser *Traverser, pathfinder *Pathfinder) *Handler {
	return &Handler{svc: svc, traverser: traverser, pathfinder: pathfinder}
}

// Create creates a relationship.
// POST /api/relationships
func (h *Handler) Create(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	var req CreateRelationshipRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	resp, err := h.svc.Create(c.Request().Context(), tenantID, &req)
	if err != nil {
		return err
	}

	monitoring.RelationshipMutations.WithLabelValues("create").Inc()
	return c.JSON(http.StatusCreated, resp)
}

// Get returns a relationship by id.
// GET /api/relationships/:id
func (h *Handler) Get(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid relationship id")
	}

	resp, err := h.svc.Get(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Update mutates a relationship's label, weight, order or metadata.
// PUT /api/relationships/:id
func (h *Handler) Update(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid relationship id")
	}

	var req UpdateRelationshipRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	resp, err := h.svc.Update(c.Request().Context(), tenantID, id, &req)
	if err != nil {
		return err
	}

	monitoring.RelationshipMutations.WithLabelValues("update").Inc()
	return c.JSON(http.StatusOK, resp)
}

// Delete removes a relationship and, by default, its inverse.
// DELETE /api/relationships/:id?deleteInverse=false
func (h *Handler) Delete(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid relationship id")
	}

	deleteInverse := true
	if v := c.QueryParam("deleteInverse"); v != "" {
		deleteInverse = v != "false"
	}

	if err := h.svc.Delete(c.Request().Context(), tenantID, id, deleteInverse); err != nil {
		return err
	}

	monitoring.RelationshipMutations.WithLabelValues("delete").Inc()
	return c.NoContent(http.StatusNoContent)
}

// List returns a filtered, cursor-paginated page of relationships.
// GET /api/relationships
func (h *Handler) List(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	params := QueryParams{
		TenantID: tenantID,
		Limit:    DefaultQueryLimit,
	}

	if v := c.QueryParam("sourceShardId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("invalid sourceShardId")
		}
		params.SourceShardID = &id
	}

	if v := c.QueryParam("targetShardId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("invalid targetShardId")
		}
		params.TargetShardID = &id
	}

	if v := c.QueryParam("relationshipType"); v != "" {
		t := RelationshipType(v)
		if !t.IsValid() {
			return apperror.ErrBadRequest.WithMessage("unknown relationshipType")
		}
		params.Type = &t
	}

	if v := c.QueryParam("sourceShardTypeId"); v != "" {
		params.SourceShardType = &v
	}
	if v := c.QueryParam("targetShardTypeId"); v != "" {
		params.TargetShardType = &v
	}

	if v := c.QueryParam("bidirectional"); v != "" {
		b := v == "true"
		params.Bidirectional = &b
	}

	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return apperror.ErrBadRequest.WithMessage("invalid limit")
		}
		params.Limit = limit
	}

	if v := c.QueryParam("continuationToken"); v != "" {
		params.Cursor = &v
	}

	resp, err := h.svc.Query(c.Request().Context(), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// BulkCreate creates up to 100 relationships in one request. Returns 201
// when every edge succeeded and 207 when results are mixed.
// POST /api/relationships/bulk
func (h *Handler) BulkCreate(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	var req BulkCreateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	resp, err := h.svc.BulkCreate(c.Request().Context(), tenantID, &req)
	if err != nil {
		return err
	}

	monitoring.RelationshipMutations.WithLabelValues("bulk_create").Inc()

	status := http.StatusCreated
	if resp.Failed > 0 {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, resp)
}

// FindPath finds the shortest path between two shards.
// POST /api/relationships/path
func (h *Handler) FindPath(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	var req FindPathRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	resp, err := h.pathfinder.FindPath(c.Request().Context(), tenantID, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// shardScope parses the shard id plus direction/type query filters
// shared by the per-shard read endpoints.
func shardScope(c echo.Context) (uuid.UUID, Direction, []RelationshipType, error) {
	shardID, err := uuid.Parse(c.Param("shardId"))
	if err != nil {
		return uuid.Nil, "", nil, apperror.ErrBadRequest.WithMessage("invalid shard id")
	}

	direction := Direction(c.QueryParam("direction"))

	var types []RelationshipType
	if v := c.QueryParam("relationshipType"); v != "" {
		types = append(types, RelationshipType(v))
	}

	return shardID, direction, types, nil
}

// GetShardRelationships lists the edges attached to a shard.
// GET /api/shards/:shardId/relationships
func (h *Handler) GetShardRelationships(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	shardID, direction, types, err := shardScope(c)
	if err != nil {
		return err
	}

	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return apperror.ErrBadRequest.WithMessage("invalid limit")
		}
	}

	resp, err := h.svc.GetShardRelationships(c.Request().Context(), tenantID, shardID, direction, types, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// GetRelatedShards lists the shards connected to a shard.
// GET /api/shards/:shardId/related
func (h *Handler) GetRelatedShards(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	shardID, direction, types, err := shardScope(c)
	if err != nil {
		return err
	}

	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return apperror.ErrBadRequest.WithMessage("invalid limit")
		}
	}

	resp, err := h.svc.GetRelatedShards(c.Request().Context(), tenantID, shardID, direction, types,
		c.QueryParam("targetShardTypeId"), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// GetSummary returns per-type edge counts for a shard.
// GET /api/shards/:shardId/relationships/summary
func (h *Handler) GetSummary(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	shardID, err := uuid.Parse(c.Param("shardId"))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid shard id")
	}

	resp, err := h.svc.GetSummary(c.Request().Context(), tenantID, shardID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Traverse expands the subgraph around a shard.
// POST /api/shards/:shardId/graph
func (h *Handler) Traverse(c echo.Context) error {
	tenantID, err := auth.GetTenantID(c)
	if err != nil {
		return err
	}

	shardID, err := uuid.Parse(c.Param("shardId"))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid shard id")
	}

	var req TraverseRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	resp, err := h.traverser.Traverse(c.Request().Context(), tenantID, shardID, &req)
	if err != nil {
		return err
	}

	monitoring.GraphTraversals.Inc()
	return c.JSON(http.StatusOK, resp)
}
