package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/hub"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// ChatListFeedHandler serves live chat-list snapshot feeds for a user.
type ChatListFeedHandler struct {
	hub    *hub.Hub
	tokens TokenValidator
}

// NewChatListFeedHandler constructs a ChatListFeedHandler.
func NewChatListFeedHandler(h *hub.Hub, tokens TokenValidator) *ChatListFeedHandler {
	return &ChatListFeedHandler{hub: h, tokens: tokens}
}

// Handle upgrades the connection and streams chat-list snapshots reduced to
// the caller's viewpoint.
func (h *ChatListFeedHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := validateToken(c, h.tokens)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	sub, err := h.hub.SubscribeToUserChats(c.Request.Context(), userID)
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

	observability.IncWSActive("chat_list")
	publishWSEvent(ctx, "chat_list", userID, "ws_connect", "", info)

	go func() {
		for snap := range sub.Updates() {
			summaries := make([]models.ChatSummary, 0, len(snap))
			for _, chat := range snap {
				summaries = append(summaries, chat.SummaryFor(userID))
			}
			event := models.ChatListEvent{Type: "snapshot", Chats: summaries}
			if err := conn.WriteJSON(event); err != nil {
				publishWSEvent(ctx, "chat_list", userID, "ws_error", err.Error(), info)
				sub.Cancel()
				conn.Close()
				return
			}
		}
		if err := sub.Err(); err != nil {
			publishWSEvent(ctx, "chat_list", userID, "ws_error", err.Error(), info)
		}
		conn.Close()
	}()

	go func() {
		var closeReason string
		defer func() {
			sub.Cancel()
			observability.DecWSActive("chat_list")
			publishWSEvent(ctx, "chat_list", userID, "ws_disconnect", closeReason, info)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(ctx, "chat_list", userID, "ws_error", closeReason, info)
				}
				return
			}
		}
	}()
}
