package voting

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/pkg/response"
)

// VerifyRequest is the body for POST /api/verify-id/:eventId. The id may be a string or a number.
type VerifyRequest struct {
	ID json.RawMessage `json:"id"`
}

// VoteRequest is the body for POST /api/vote/:eventId.
type VoteRequest struct {
	VoterID   json.RawMessage `json:"voterId"`
	Candidate string          `json:"candidate"`
}

// Handler serves the public voter endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a voting handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// bind decodes an optional JSON body. An empty body leaves dst zero so the service
// can report the missing fields.
func bind(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.MalformedField("body", err)
	}
	return nil
}

// VerifyID handles POST /api/verify-id/:eventId.
func (h *Handler) VerifyID(c *gin.Context) {
	var req VerifyRequest
	if err := bind(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	res, err := h.svc.VerifyID(c.Request.Context(), c.Param("eventId"), req.ID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, res)
}

// Vote handles POST /api/vote/:eventId.
func (h *Handler) Vote(c *gin.Context) {
	var req VoteRequest
	if err := bind(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	v, err := h.svc.SubmitVote(c.Request.Context(), c.Param("eventId"), req.VoterID, req.Candidate)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			h.logger.Error("submit vote failed", zap.String("event_id", c.Param("eventId")), zap.Error(err))
		}
		response.Fail(c, err)
		return
	}
	response.Created(c, v)
}

// PublicEvent handles GET /api/public/events/:eventId.
func (h *Handler) PublicEvent(c *gin.Context) {
	view, err := h.svc.PublicView(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, view)
}
