package emaillogs

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eventvote/backend/internal/middleware"
	"github.com/eventvote/backend/pkg/response"
)

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /api/email-logs?limit=. Returns the caller account's delivery log.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.repo.ListByUser(c.Request.Context(), middleware.OwnerID(c), limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, logs)
}
