package subscriptions

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/middleware"
	"github.com/eventvote/backend/pkg/response"
	"github.com/eventvote/backend/pkg/validation"
)

// Handler handles subscription endpoints. Sub-users act on their owner's account.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a subscriptions handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Get handles GET /api/subscriptions.
func (h *Handler) Get(c *gin.Context) {
	st, err := h.svc.Current(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, st)
}

// CreateOrder handles POST /api/subscriptions/order.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req OrderRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	out, err := h.svc.CreateOrder(c.Request.Context(), middleware.OwnerID(c), req)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			h.logger.Error("create order failed", zap.Error(err))
		}
		response.Fail(c, err)
		return
	}
	response.Created(c, out)
}

// Verify handles POST /api/subscriptions/verify.
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	st, err := h.svc.Verify(c.Request.Context(), middleware.OwnerID(c), req)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			h.logger.Error("verify payment failed", zap.Error(err))
		}
		response.Fail(c, err)
		return
	}
	response.OK(c, st)
}
