package results

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/events"
	"github.com/eventvote/backend/pkg/response"
)

// Handler serves results and raw votes. Routes must run behind events.RequireOwnership.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a results handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Results handles GET /api/events/:id/results.
func (h *Handler) Results(c *gin.Context) {
	e := events.EventFrom(c)
	t, err := h.svc.TallyEvent(c.Request.Context(), e)
	if err != nil {
		h.logger.Error("tally failed", zap.String("event_id", e.ID), zap.Error(err))
		response.Fail(c, err)
		return
	}
	response.OK(c, t)
}

// Votes handles GET /api/votes/:id.
func (h *Handler) Votes(c *gin.Context) {
	e := events.EventFrom(c)
	list, err := h.svc.VotesOf(c.Request.Context(), e)
	if err != nil {
		h.logger.Error("list votes failed", zap.String("event_id", e.ID), zap.Error(err))
		response.Fail(c, err)
		return
	}
	response.OK(c, list)
}
