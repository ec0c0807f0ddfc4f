package auth

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventvote/backend/pkg/response"
	"github.com/eventvote/backend/pkg/validation"
)

// RegisterRequest is the body for POST /create-account.
type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Username     string `json:"username" binding:"required,notblank,max=64"`
	Password     string `json:"password" binding:"required,min=6"`
	Organization string `json:"organization" binding:"max=200"`
	ContactName  string `json:"contactName" binding:"max=200"`
	Phone        string `json:"phone" binding:"max=32"`
}

// LoginRequest is the body for POST /login. Email may also carry a username.
type LoginRequest struct {
	Email    string `json:"email" binding:"required_without=Username"`
	Username string `json:"username" binding:"required_without=Email"`
	Password string `json:"password" binding:"required"`
}

// ForgotPasswordRequest is the body for POST /forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body for POST /reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required,notblank"`
	Password string `json:"password" binding:"required,min=6"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register handles POST /create-account.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	sess, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, sess)
}

// Login handles POST /login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	login := req.Email
	if login == "" {
		login = req.Username
	}
	sess, err := h.svc.Login(c.Request.Context(), login, req.Password)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, sess)
}

// ForgotPassword handles POST /forgot-password.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.logger.Error("forgot password", zap.Error(err))
		response.Fail(c, err)
		return
	}
	response.OKMessage(c, "if the address is registered, a reset link has been sent")
}

// ResetPassword handles POST /reset-password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		response.Fail(c, err)
		return
	}
	response.OKMessage(c, "password updated")
}
