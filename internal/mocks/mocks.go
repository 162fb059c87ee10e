package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, uid string) (models.User, error) {
	args := m.Called(ctx, uid)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByNickname(ctx context.Context, nickname string) (models.User, error) {
	args := m.Called(ctx, nickname)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfile(ctx context.Context, uid, nickname, profession, profileImageURL string) (models.User, error) {
	args := m.Called(ctx, uid, nickname, profession, profileImageURL)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) PageUsers(ctx context.Context, callerUID, afterUID string, limit int) ([]models.User, error) {
	args := m.Called(ctx, callerUID, afterUID, limit)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) SearchUsers(ctx context.Context, callerUID, query string) ([]models.User, error) {
	args := m.Called(ctx, callerUID, query)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateOrGetChat(ctx context.Context, userA, userB models.User) (models.Chat, error) {
	args := m.Called(ctx, userA, userB)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListChatsForUser(ctx context.Context, uid string) ([]models.Chat, error) {
	args := m.Called(ctx, uid)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *ChatRepositoryMock) AddParticipant(ctx context.Context, chatID string, user models.User) (models.Chat, error) {
	args := m.Called(ctx, chatID, user)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) UpdateSummary(ctx context.Context, chatID, lastMessage, senderID string, sentAt time.Time, seq int64) error {
	args := m.Called(ctx, chatID, lastMessage, senderID, sentAt, seq)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) AppendMessage(ctx context.Context, chatID, senderID, senderNickname, senderImageURL, text string) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, senderNickname, senderImageURL, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) NotifyChat(ctx context.Context, chatID string) {
	m.Called(ctx, chatID)
}

func (m *NotifierMock) NotifyUserChats(ctx context.Context, uids ...string) {
	m.Called(ctx, uids)
}

type ChatAPIMock struct {
	mock.Mock
}

func (m *ChatAPIMock) CreateOrGetChat(ctx context.Context, callerUID, otherUID string) (models.Chat, error) {
	args := m.Called(ctx, callerUID, otherUID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatAPIMock) SendMessage(ctx context.Context, callerUID, chatID, text string) (models.Message, error) {
	args := m.Called(ctx, callerUID, chatID, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ChatAPIMock) AddUserToGroup(ctx context.Context, callerUID, chatID, newUID string) (models.Chat, error) {
	args := m.Called(ctx, callerUID, chatID, newUID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatAPIMock) GetChatInfo(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatAPIMock) ListMessages(ctx context.Context, callerUID, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, callerUID, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *ChatAPIMock) ListChats(ctx context.Context, callerUID string) ([]models.ChatSummary, error) {
	args := m.Called(ctx, callerUID)
	var chats []models.ChatSummary
	if val := args.Get(0); val != nil {
		chats = val.([]models.ChatSummary)
	}
	return chats, args.Error(1)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
