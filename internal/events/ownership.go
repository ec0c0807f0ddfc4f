package events

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventvote/backend/internal/middleware"
	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/response"
)

// ContextEvent is the context key for the owned event loaded by RequireOwnership.
const ContextEvent = "event"

// OwnedLookup resolves an event scoped to its owner.
type OwnedLookup interface {
	Get(ctx context.Context, id string, ownerID uuid.UUID) (*models.Event, error)
}

// RequireOwnership loads the event named by the :id path parameter for the caller's
// account and aborts with 404 when it is absent or owned by someone else.
// Call after JWT.
func RequireOwnership(lookup OwnedLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := lookup.Get(c.Request.Context(), c.Param("id"), middleware.OwnerID(c))
		if err != nil {
			response.Fail(c, err)
			return
		}
		c.Set(ContextEvent, e)
		c.Next()
	}
}

// EventFrom returns the event stored by RequireOwnership.
func EventFrom(c *gin.Context) *models.Event {
	return c.MustGet(ContextEvent).(*models.Event)
}
