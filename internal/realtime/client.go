package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/auth"
	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/response"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TokenValidator validates the token passed as a query parameter.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// OwnedLookup resolves an event for its owner.
type OwnedLookup interface {
	Get(ctx context.Context, id string, ownerID uuid.UUID) (*models.Event, error)
}

// Client represents a single WebSocket connection watching an event.
type Client struct {
	ID       string
	EventID  string
	UserID   uuid.UUID
	JoinedAt time.Time
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	logger   *zap.Logger
}

// Server upgrades owner connections to the live vote feed of one event.
type Server struct {
	hub      *Hub
	tokens   TokenValidator
	events   OwnedLookup
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer creates the websocket endpoint. allowedOrigins empty or containing "*" accepts any origin.
func NewServer(hub *Hub, tokens TokenValidator, events OwnedLookup, allowedOrigins []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{hub: hub, tokens: tokens, events: events, logger: logger}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return s
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// ServeWs handles GET /ws?event_id=&token=. Only the event's owner (or its sub-users) may watch.
func (s *Server) ServeWs(c *gin.Context) {
	eventID := c.Query("event_id")
	token := c.Query("token")
	if eventID == "" || token == "" {
		response.BadRequest(c, "event_id and token required")
		return
	}
	claims, err := s.tokens.Validate(token)
	if errors.Is(err, auth.ErrMisconfigured) {
		response.Fail(c, err)
		return
	}
	if err != nil {
		response.Forbidden(c, "invalid or expired token")
		return
	}
	if _, err := s.events.Get(c.Request.Context(), eventID, claims.UserID); err != nil {
		response.Fail(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{
		ID:       uuid.New().String(),
		EventID:  eventID,
		UserID:   claims.UserID,
		JoinedAt: time.Now(),
		hub:      s.hub,
		conn:     conn,
		send:     make(chan WSMessage, 256),
		logger:   s.logger,
	}
	s.hub.Register(client)
	go client.writePump()
	client.readPump()
}

// readPump only keeps the connection alive: the feed is server-to-client.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "join":
			data, _ := json.Marshal(map[string]int{"watchers": c.hub.Watchers(c.EventID)})
			select {
			case c.send <- WSMessage{Event: "watchers", Data: data}:
			default:
			}
		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("websocket write failed", zap.String("client_id", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
