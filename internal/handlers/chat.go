package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
	"messenger-service/internal/service"
	"messenger-service/internal/telemetry"
)

// ChatAPI is the chat orchestration surface the handlers depend on.
type ChatAPI interface {
	CreateOrGetChat(ctx context.Context, callerUID, otherUID string) (models.Chat, error)
	SendMessage(ctx context.Context, callerUID, chatID, text string) (models.Message, error)
	AddUserToGroup(ctx context.Context, callerUID, chatID, newUID string) (models.Chat, error)
	GetChatInfo(ctx context.Context, chatID string) (models.Chat, error)
	ListMessages(ctx context.Context, callerUID, chatID string) ([]models.Message, error)
	ListChats(ctx context.Context, callerUID string) ([]models.ChatSummary, error)
}

// ChatHandler manages chat endpoints.
type ChatHandler struct {
	chats ChatAPI
	audit *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats ChatAPI, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{chats: chats, audit: audit}
}

// StartChat creates or returns the 1:1 chat with another user.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	chat, err := h.chats.CreateOrGetChat(c.Request.Context(), userID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfChat):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		case errors.Is(err, repositories.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			h.emitAudit(c, "ERROR", "could not create chat")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_id": chat.ID})
}

// ListChats returns the caller's chat list, most recent activity first.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetString("userID")

	chats, err := h.chats.ListChats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// GetChatInfo returns the chat record for a participant.
func (h *ChatHandler) GetChatInfo(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	chat, err := h.chats.GetChatInfo(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}
	if !chat.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	c.JSON(http.StatusOK, chat)
}

// GetChatMessages returns the full ordered history of a chat.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	msgs, err := h.chats.ListMessages(c.Request.Context(), userID, chatID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrChatNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		case errors.Is(err, service.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage appends a message to the chat.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.chats.SendMessage(c.Request.Context(), userID, chatID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "message text is empty"})
		case errors.Is(err, repositories.ErrChatNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		case errors.Is(err, service.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		default:
			h.emitAudit(c, "ERROR", "failed to store message")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		}
		return
	}

	observability.IncMessagesSent()
	c.JSON(http.StatusCreated, msg)
}

// AddMember adds a user to the chat, turning it into a group chat.
func (h *ChatHandler) AddMember(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.chats.AddUserToGroup(c.Request.Context(), userID, chatID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrChatNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		case errors.Is(err, repositories.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, repositories.ErrAlreadyMember):
			c.JSON(http.StatusConflict, gin.H{"error": "user is already in the chat"})
		case errors.Is(err, service.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		default:
			h.emitAudit(c, "ERROR", "could not add member")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add member"})
		}
		return
	}

	h.emitAudit(c, "INFO", "member added to group")
	c.JSON(http.StatusOK, chat)
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
