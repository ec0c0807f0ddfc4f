package users

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/auth"
	"github.com/eventvote/backend/internal/middleware"
	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/response"
	"github.com/eventvote/backend/pkg/validation"
)

// Store reads and updates account profiles.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p auth.UpdateProfileParams) (*models.User, error)
}

// Profile is the response of GET /api/users.
type Profile struct {
	User      models.UserPublic `json:"user"`
	Role      string            `json:"role"`
	SubUserID *uuid.UUID        `json:"subUserId,omitempty"`
}

// UpdateRequest is the body for PUT /api/users. Absent fields are left unchanged.
type UpdateRequest struct {
	Username     *string `json:"username" binding:"omitempty,max=64"`
	Organization *string `json:"organization" binding:"omitempty,max=200"`
	ContactName  *string `json:"contactName" binding:"omitempty,max=200"`
	Phone        *string `json:"phone" binding:"omitempty,max=32"`
}

// Handler serves the caller's account profile.
type Handler struct {
	store Store
}

// NewHandler creates a users handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Get handles GET /api/users. Sub-users see the account they belong to.
func (h *Handler) Get(c *gin.Context) {
	id, err := middleware.Identity(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	u, err := h.store.GetByID(c.Request.Context(), id.UserID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, Profile{User: u.ToPublic(), Role: id.Role, SubUserID: id.SubUserID})
}

// Update handles PUT /api/users. Only the account owner may change the profile.
func (h *Handler) Update(c *gin.Context) {
	id, err := middleware.Identity(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if id.SubUserID != nil {
		response.Fail(c, apperr.New(apperr.Forbidden, "only the account owner can edit the profile"))
		return
	}
	var req UpdateRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" {
			response.Fail(c, apperr.Invalid("username", "username cannot be empty"))
			return
		}
		req.Username = &name
	}
	u, err := h.store.UpdateProfile(c.Request.Context(), id.UserID, auth.UpdateProfileParams{
		Organization: req.Organization,
		ContactName:  req.ContactName,
		Phone:        req.Phone,
		Username:     req.Username,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, Profile{User: u.ToPublic(), Role: id.Role})
}
