package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

var (
	ErrSelfChat       = errors.New("cannot create chat with self")
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrNotParticipant = errors.New("not a chat participant")
)

// Notifier receives change notifications after successful writes.
type Notifier interface {
	NotifyChat(ctx context.Context, chatID string)
	NotifyUserChats(ctx context.Context, uids ...string)
}

// ChatService orchestrates chat creation, message sends and group
// membership over the user, chat and message stores.
type ChatService struct {
	users    repositories.UserRepository
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	notifier Notifier
}

// NewChatService constructs a ChatService.
func NewChatService(users repositories.UserRepository, chats repositories.ChatRepository, messages repositories.MessageRepository, notifier Notifier) *ChatService {
	return &ChatService{
		users:    users,
		chats:    chats,
		messages: messages,
		notifier: notifier,
	}
}

// CreateOrGetChat resolves both users and returns their 1:1 chat, creating
// it on first use. Calling it twice with the same pair, in either order,
// yields the same chat.
func (s *ChatService) CreateOrGetChat(ctx context.Context, callerUID, otherUID string) (models.Chat, error) {
	if callerUID == otherUID {
		return models.Chat{}, ErrSelfChat
	}

	caller, err := s.users.GetUser(ctx, callerUID)
	if err != nil {
		return models.Chat{}, err
	}
	other, err := s.users.GetUser(ctx, otherUID)
	if err != nil {
		return models.Chat{}, err
	}

	chat, err := s.chats.CreateOrGetChat(ctx, caller, other)
	if err != nil {
		return models.Chat{}, err
	}

	s.notifier.NotifyUserChats(ctx, chat.Participants...)
	return chat, nil
}

// SendMessage appends a message to the chat and updates the chat summary.
// The append is the durable step: a summary update failure after a
// successful append is logged, not returned, since the summary can be
// rederived from the log.
func (s *ChatService) SendMessage(ctx context.Context, callerUID, chatID, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}

	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return models.Message{}, err
	}
	if !chat.HasParticipant(callerUID) {
		return models.Message{}, ErrNotParticipant
	}

	sender, err := s.users.GetUser(ctx, callerUID)
	if err != nil {
		return models.Message{}, err
	}

	msg, err := s.messages.AppendMessage(ctx, chatID, sender.UID, sender.Nickname, sender.ProfileImageURL, text)
	if err != nil {
		return models.Message{}, fmt.Errorf("append message: %w", err)
	}

	if err := s.chats.UpdateSummary(ctx, chatID, msg.Text, msg.SenderID, msg.CreatedAt, msg.Seq); err != nil {
		log.Printf("warn: summary update for chat %s after message %d failed: %v", chatID, msg.Seq, err)
	}

	s.notifier.NotifyChat(ctx, chatID)
	s.notifier.NotifyUserChats(ctx, chat.Participants...)
	return msg, nil
}

// AddUserToGroup appends a member to the chat, making it a group chat, and
// records a system message announcing the join. A failure of the system
// message does not roll back the membership change.
func (s *ChatService) AddUserToGroup(ctx context.Context, callerUID, chatID, newUID string) (models.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	if !chat.HasParticipant(callerUID) {
		return models.Chat{}, ErrNotParticipant
	}

	newUser, err := s.users.GetUser(ctx, newUID)
	if err != nil {
		return models.Chat{}, err
	}

	chat, err = s.chats.AddParticipant(ctx, chatID, newUser)
	if err != nil {
		return models.Chat{}, err
	}

	notice := fmt.Sprintf("%s joined the group", newUser.Nickname)
	msg, err := s.messages.AppendMessage(ctx, chatID, models.SystemSenderID, "System", "", notice)
	if err != nil {
		log.Printf("warn: system message for chat %s failed: %v", chatID, err)
	} else if err := s.chats.UpdateSummary(ctx, chatID, msg.Text, msg.SenderID, msg.CreatedAt, msg.Seq); err != nil {
		log.Printf("warn: summary update for chat %s after message %d failed: %v", chatID, msg.Seq, err)
	}

	s.notifier.NotifyChat(ctx, chatID)
	s.notifier.NotifyUserChats(ctx, chat.Participants...)
	return chat, nil
}

// GetChatInfo returns the chat record.
func (s *ChatService) GetChatInfo(ctx context.Context, chatID string) (models.Chat, error) {
	return s.chats.GetChat(ctx, chatID)
}

// ListMessages returns the chat history for a participant.
func (s *ChatService) ListMessages(ctx context.Context, callerUID, chatID string) ([]models.Message, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(callerUID) {
		return nil, ErrNotParticipant
	}
	return s.messages.ListMessages(ctx, chatID)
}

// ListChats returns the caller's chat list reduced to display entries.
func (s *ChatService) ListChats(ctx context.Context, callerUID string) ([]models.ChatSummary, error) {
	chats, err := s.chats.ListChatsForUser(ctx, callerUID)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summaries = append(summaries, chat.SummaryFor(callerUID))
	}
	return summaries, nil
}
