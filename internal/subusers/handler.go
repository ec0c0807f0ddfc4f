package subusers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/middleware"
	"github.com/eventvote/backend/pkg/response"
	"github.com/eventvote/backend/pkg/validation"
)

// Handler handles sub-user management endpoints. Mount behind JWT and RequireRole(owner, admin).
type Handler struct {
	svc *Service
}

// NewHandler creates a sub-users handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, apperr.NotFound("sub-user"))
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /api/sub-users.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /api/sub-users.
func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := validation.BindJSON(c, &in); err != nil {
		response.Fail(c, err)
		return
	}
	sub, err := h.svc.Create(c.Request.Context(), middleware.OwnerID(c), in)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, sub)
}

// Update handles PUT /api/sub-users/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in UpdateInput
	if err := validation.BindJSON(c, &in); err != nil {
		response.Fail(c, err)
		return
	}
	sub, err := h.svc.Update(c.Request.Context(), middleware.OwnerID(c), id, in)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, sub)
}

// Delete handles DELETE /api/sub-users/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.OwnerID(c), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.NoContent(c)
}
