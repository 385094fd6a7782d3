package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/realtime"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"go.uber.org/zap"
)

const frameTimeout = 10 * time.Second

// TypingBroadcaster relays typing frames
type TypingBroadcaster interface {
	BroadcastTyping(ctx context.Context, currentUser, conversationID uuid.UUID, isTyping bool) error
}

// WSHandler handles WebSocket connections
type WSHandler struct {
	hub      *realtime.Hub
	auth     ChannelAuthorizer
	typing   TypingBroadcaster
	tokens   middleware.TokenValidator
	revoked  middleware.RevocationChecker
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewWSHandler(
	hub *realtime.Hub,
	auth ChannelAuthorizer,
	typing TypingBroadcaster,
	tokens middleware.TokenValidator,
	revoked middleware.RevocationChecker,
	allowedOrigins []string,
	log *logger.Logger,
) *WSHandler {
	if log == nil {
		log = logger.Global()
	}
	return &WSHandler{
		hub:     hub,
		auth:    auth,
		typing:  typing,
		tokens:  tokens,
		revoked: revoked,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.Named("ws"),
	}
}

// originChecker allows requests without an Origin header, any origin for "*", and the listed origins otherwise
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleWebSocket upgrades HTTP to WebSocket and manages the connection.
// Client connects with: ws://host/ws?token=<jwt_token>
// The connection starts subscribed to the user's own chat channel.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// WebSocket can't use the Authorization header from browsers
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized", Message: "token required"})
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized", Message: "invalid or expired token"})
		return
	}
	if h.revoked != nil {
		revoked, err := h.revoked.IsRevoked(c.Request.Context(), token)
		if err != nil || revoked {
			c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized", Message: "token has been revoked"})
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := realtime.NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)
	h.hub.Subscribe(client, realtime.ChatChannel(claims.UserID))

	h.log.Info("websocket connected", zap.String("user_id", claims.UserID.String()))

	go client.WritePump()
	go client.ReadPump(h.HandleFrame)
}

// HandleFrame processes one inbound frame: subscribe, unsubscribe or typing
func (h *WSHandler) HandleFrame(client *realtime.Client, frame realtime.InboundFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch frame.Type {
	case realtime.FrameSubscribe:
		ch, err := h.auth.Authorize(ctx, client.UserID, frame.Channel)
		if err != nil {
			client.Send(errorFrame(realtime.EventSubscriptionError, frame.Channel, err))
			return
		}
		h.hub.Subscribe(client, ch)
		client.Send(realtime.Event{Name: realtime.EventSubscribed, Channel: ch.String()})

	case realtime.FrameUnsubscribe:
		if ch, err := realtime.ParseChannel(frame.Channel); err == nil {
			h.hub.Unsubscribe(client, ch)
		}
		client.Send(realtime.Event{Name: realtime.EventUnsubscribed, Channel: frame.Channel})

	case realtime.FrameTyping:
		if err := h.typing.BroadcastTyping(ctx, client.UserID, frame.ConversationID, frame.IsTyping); err != nil {
			client.Send(errorFrame(realtime.EventError, "", err))
		}

	default:
		client.Send(errorFrame(realtime.EventError, "", apperror.Validation("unknown frame type %q", frame.Type)))
	}
}

func errorFrame(name, channel string, err error) realtime.Event {
	data, _ := json.Marshal(realtime.ErrorPayload{
		Error:   string(apperror.KindOf(err)),
		Message: apperror.MessageOf(err),
	})
	return realtime.Event{Name: name, Channel: channel, Data: data}
}
