package ws

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/hub"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
)

// TokenValidator verifies a session token and returns the user id.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// ChatFeedHandler serves live message-snapshot feeds for a chat.
type ChatFeedHandler struct {
	hub      *hub.Hub
	chatRepo repositories.ChatRepository
	tokens   TokenValidator
}

// NewChatFeedHandler constructs a ChatFeedHandler.
func NewChatFeedHandler(h *hub.Hub, chatRepo repositories.ChatRepository, tokens TokenValidator) *ChatFeedHandler {
	return &ChatFeedHandler{hub: h, chatRepo: chatRepo, tokens: tokens}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and streams message snapshots until the
// client disconnects or the subscription ends.
func (h *ChatFeedHandler) Handle(c *gin.Context) {
	chatID := c.Param("chat_id")

	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := validateToken(c, h.tokens)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	chat, err := h.chatRepo.GetChat(c.Request.Context(), chatID)
	if err != nil || !chat.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for chat"})
		return
	}

	sub, err := h.hub.SubscribeToChat(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to subscribe"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Cancel()
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	observability.IncWSActive("chat")
	publishWSEvent(ctx, "chat", chatID, "ws_connect", "", info)

	// Pump snapshots to the client until the subscription ends.
	go func() {
		for snap := range sub.Updates() {
			event := models.ChatEvent{Type: "snapshot", Messages: snap}
			if err := conn.WriteJSON(event); err != nil {
				publishWSEvent(ctx, "chat", chatID, "ws_error", err.Error(), info)
				sub.Cancel()
				conn.Close()
				return
			}
		}
		if err := sub.Err(); err != nil {
			publishWSEvent(ctx, "chat", chatID, "ws_error", err.Error(), info)
		}
		conn.Close()
	}()

	// Drain the client side and clean up on close.
	go func() {
		var closeReason string
		defer func() {
			sub.Cancel()
			observability.DecWSActive("chat")
			publishWSEvent(ctx, "chat", chatID, "ws_disconnect", closeReason, info)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(ctx, "chat", chatID, "ws_error", closeReason, info)
				}
				return
			}
		}
	}()
}

func validateToken(c *gin.Context, tokens TokenValidator) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			header = "Bearer " + token
		}
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("invalid token")
	}
	return tokens.Validate(parts[1])
}
