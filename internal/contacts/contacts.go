// Package contacts stores messages left through the public contact form.
package contacts

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/queue"
	"github.com/eventvote/backend/pkg/response"
	"github.com/eventvote/backend/pkg/validation"
)

// Repository persists contact messages.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a contacts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores c and fills its id and creation time.
func (r *Repository) Insert(ctx context.Context, c *models.Contact) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contacts (name, email, subject, message) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		c.Name, c.Email, c.Subject, c.Message).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// Store is the contact persistence used by the handler.
type Store interface {
	Insert(ctx context.Context, c *models.Contact) error
}

// EmailQueue enqueues outgoing email.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Request is the contact form body.
type Request struct {
	Name    string `json:"name" binding:"required,notblank,max=200"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"max=200"`
	Message string `json:"message" binding:"required,notblank,max=5000"`
}

// Handler serves POST /contact.
type Handler struct {
	store  Store
	emails EmailQueue
	logger *zap.Logger
}

// NewHandler creates a contact handler. emails may be nil to skip receipts.
func NewHandler(store Store, emails EmailQueue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, emails: emails, logger: logger}
}

func (req Request) contact() *models.Contact {
	return &models.Contact{
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
}

// Submit handles POST /contact.
func (h *Handler) Submit(c *gin.Context) {
	var req Request
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	msg := req.contact()
	ctx := c.Request.Context()
	if err := h.store.Insert(ctx, msg); err != nil {
		h.logger.Error("store contact failed", zap.Error(err))
		response.Fail(c, err)
		return
	}
	if h.emails != nil {
		err := h.emails.EnqueueEmail(ctx, queue.EmailPayload{
			EmailType:      models.EmailTypeContactReceipt,
			RecipientEmail: msg.Email,
			Subject:        "We received your message",
			BodyHTML: fmt.Sprintf("<p>Hi %s,</p><p>Thanks for getting in touch. We will reply to you shortly.</p>",
				html.EscapeString(msg.Name)),
		})
		if err != nil {
			h.logger.Warn("enqueue contact receipt", zap.String("contact_id", msg.ID.String()), zap.Error(err))
		}
	}
	h.logger.Info("contact message stored", zap.String("contact_id", msg.ID.String()))
	response.Created(c, gin.H{"id": msg.ID})
}
