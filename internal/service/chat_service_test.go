package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/service"
)

func newService() (*service.ChatService, *mocks.UserRepositoryMock, *mocks.ChatRepositoryMock, *mocks.MessageRepositoryMock, *mocks.NotifierMock) {
	users := new(mocks.UserRepositoryMock)
	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	notifier := new(mocks.NotifierMock)
	return service.NewChatService(users, chats, messages, notifier), users, chats, messages, notifier
}

func TestCreateOrGetChatRejectsSelf(t *testing.T) {
	svc, users, chats, _, _ := newService()

	_, err := svc.CreateOrGetChat(context.Background(), "ana", "ana")
	assert.ErrorIs(t, err, service.ErrSelfChat)
	users.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	chats.AssertNotCalled(t, "CreateOrGetChat", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrGetChatResolvesUsersAndNotifies(t *testing.T) {
	svc, users, chats, _, notifier := newService()
	ctx := context.Background()

	ana := models.User{UID: "ana", Nickname: "Ana"}
	givi := models.User{UID: "givi", Nickname: "Givi"}
	chat := models.Chat{ID: "ana_givi", Participants: []string{"ana", "givi"}}

	users.On("GetUser", ctx, "givi").Return(givi, nil)
	users.On("GetUser", ctx, "ana").Return(ana, nil)
	chats.On("CreateOrGetChat", ctx, givi, ana).Return(chat, nil)
	notifier.On("NotifyUserChats", ctx, []string{"ana", "givi"}).Return()

	got, err := svc.CreateOrGetChat(ctx, "givi", "ana")
	require.NoError(t, err)
	assert.Equal(t, "ana_givi", got.ID)

	notifier.AssertExpectations(t)
	chats.AssertExpectations(t)
}

func TestCreateOrGetChatUnknownUser(t *testing.T) {
	svc, users, chats, _, _ := newService()
	ctx := context.Background()

	users.On("GetUser", ctx, "ana").Return(models.User{UID: "ana"}, nil)
	users.On("GetUser", ctx, "ghost").Return(nil, repositories.ErrUserNotFound)

	_, err := svc.CreateOrGetChat(ctx, "ana", "ghost")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
	chats.AssertNotCalled(t, "CreateOrGetChat", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageEmptyText(t *testing.T) {
	svc, _, chats, messages, _ := newService()

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.SendMessage(context.Background(), "ana", "ana_givi", text)
		assert.ErrorIs(t, err, service.ErrEmptyMessage)
	}
	chats.AssertNotCalled(t, "GetChat", mock.Anything, mock.Anything)
	messages.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageNotParticipant(t *testing.T) {
	svc, _, chats, messages, _ := newService()
	ctx := context.Background()

	chats.On("GetChat", ctx, "ana_givi").Return(models.Chat{
		ID:           "ana_givi",
		Participants: []string{"ana", "givi"},
	}, nil)

	_, err := svc.SendMessage(ctx, "mara", "ana_givi", "hi")
	assert.ErrorIs(t, err, service.ErrNotParticipant)
	messages.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageAppendsAndUpdatesSummary(t *testing.T) {
	svc, users, chats, messages, notifier := newService()
	ctx := context.Background()
	sentAt := time.Now()

	chats.On("GetChat", ctx, "ana_givi").Return(models.Chat{
		ID:           "ana_givi",
		Participants: []string{"ana", "givi"},
	}, nil)
	users.On("GetUser", ctx, "ana").Return(models.User{
		UID: "ana", Nickname: "Ana", ProfileImageURL: "http://img/ana",
	}, nil)
	messages.On("AppendMessage", ctx, "ana_givi", "ana", "Ana", "http://img/ana", "hello").Return(models.Message{
		Seq: 7, ChatID: "ana_givi", Text: "hello", SenderID: "ana", CreatedAt: sentAt,
	}, nil)
	chats.On("UpdateSummary", ctx, "ana_givi", "hello", "ana", sentAt, int64(7)).Return(nil)
	notifier.On("NotifyChat", ctx, "ana_givi").Return()
	notifier.On("NotifyUserChats", ctx, []string{"ana", "givi"}).Return()

	msg, err := svc.SendMessage(ctx, "ana", "ana_givi", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.Seq)
	assert.Equal(t, "hello", msg.Text)

	messages.AssertExpectations(t)
	chats.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSendMessageSummaryFailureIsNotFatal(t *testing.T) {
	svc, users, chats, messages, notifier := newService()
	ctx := context.Background()

	chats.On("GetChat", ctx, "ana_givi").Return(models.Chat{
		ID:           "ana_givi",
		Participants: []string{"ana", "givi"},
	}, nil)
	users.On("GetUser", ctx, "ana").Return(models.User{UID: "ana", Nickname: "Ana"}, nil)
	messages.On("AppendMessage", ctx, "ana_givi", "ana", "Ana", "", "hello").Return(models.Message{
		Seq: 1, ChatID: "ana_givi", Text: "hello", SenderID: "ana",
	}, nil)
	chats.On("UpdateSummary", ctx, "ana_givi", "hello", "ana", mock.Anything, int64(1)).Return(errors.New("db down"))
	notifier.On("NotifyChat", ctx, "ana_givi").Return()
	notifier.On("NotifyUserChats", ctx, []string{"ana", "givi"}).Return()

	msg, err := svc.SendMessage(ctx, "ana", "ana_givi", "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.Seq)
	notifier.AssertExpectations(t)
}

func TestSendMessageAppendFailureIsFatal(t *testing.T) {
	svc, users, chats, messages, notifier := newService()
	ctx := context.Background()

	chats.On("GetChat", ctx, "ana_givi").Return(models.Chat{
		ID:           "ana_givi",
		Participants: []string{"ana", "givi"},
	}, nil)
	users.On("GetUser", ctx, "ana").Return(models.User{UID: "ana", Nickname: "Ana"}, nil)
	boom := errors.New("insert failed")
	messages.On("AppendMessage", ctx, "ana_givi", "ana", "Ana", "", "hello").Return(nil, boom)

	_, err := svc.SendMessage(ctx, "ana", "ana_givi", "hello")
	assert.ErrorIs(t, err, boom)
	chats.AssertNotCalled(t, "UpdateSummary", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "NotifyChat", mock.Anything, mock.Anything)
}

func TestAddUserToGroupRecordsSystemMessage(t *testing.T) {
	svc, users, chats, messages, notifier := newService()
	ctx := context.Background()

	chats.On("GetChat", ctx, "ana_givi").Return(models.Chat{
		ID:           "ana_givi",
		Participants: []string{"ana", "givi"},
	}, nil)
	users.On("GetUser", ctx, "mara").Return(models.User{UID: "mara", Nickname: "Mara"}, nil)
	grown := models.Chat{
		ID:           "ana_givi",
		Participants: []string{"ana", "givi", "mara"},
		IsGroupChat:  true,
	}
	chats.On("AddParticipant", ctx, "ana_givi", models.User{UID: "mara", Nickname: "Mara"}).Return(grown, nil)
	messages.On("AppendMessage", ctx, "ana_givi", models.SystemSenderID, "System", "", "Mara joined the group").Return(models.Message{
		Seq: 4, ChatID: "ana_givi", Text: "Mara joined the group", SenderID: models.SystemSenderID,
	}, nil)
	chats.On("UpdateSummary", ctx, "ana_givi", "Mara joined the group", models.SystemSenderID, mock.Anything, int64(4)).Return(nil)
	notifier.On("NotifyChat", ctx, "ana_givi").Return()
	notifier.On("NotifyUserChats", ctx, []string{"ana", "givi", "mara"}).Return()

	got, err := svc.AddUserToGroup(ctx, "ana", "ana_givi", "mara")
	require.NoError(t, err)
	assert.True(t, got.IsGroupChat)
	assert.Len(t, got.Participants, 3)

	messages.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestAddUserToGroupSystemMessageFailureIsNotFatal(t *testing.T) {
	svc, users, chats, messages, notifier := newService()
	ctx := context.Background()

	chats.On("GetChat", ctx, "ana_givi").Return(models.Chat{
		ID:           "ana_givi",
		Participants: []string{"ana", "givi"},
	}, nil)
	users.On("GetUser", ctx, "mara").Return(models.User{UID: "mara", Nickname: "Mara"}, nil)
	grown := models.Chat{
		ID:           "ana_givi",
		Participants: []string{"ana", "givi", "mara"},
		IsGroupChat:  true,
	}
	chats.On("AddParticipant", ctx, "ana_givi", mock.Anything).Return(grown, nil)
	messages.On("AppendMessage", ctx, "ana_givi", models.SystemSenderID, "System", "", "Mara joined the group").Return(nil, errors.New("insert failed"))
	notifier.On("NotifyChat", ctx, "ana_givi").Return()
	notifier.On("NotifyUserChats", ctx, []string{"ana", "givi", "mara"}).Return()

	got, err := svc.AddUserToGroup(ctx, "ana", "ana_givi", "mara")
	require.NoError(t, err)
	assert.True(t, got.IsGroupChat)
	chats.AssertNotCalled(t, "UpdateSummary", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertExpectations(t)
}

func TestAddUserToGroupCallerMustBeMember(t *testing.T) {
	svc, _, chats, _, _ := newService()
	ctx := context.Background()

	chats.On("GetChat", ctx, "ana_givi").Return(models.Chat{
		ID:           "ana_givi",
		Participants: []string{"ana", "givi"},
	}, nil)

	_, err := svc.AddUserToGroup(ctx, "mara", "ana_givi", "lado")
	assert.ErrorIs(t, err, service.ErrNotParticipant)
	chats.AssertNotCalled(t, "AddParticipant", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddUserToGroupAlreadyMember(t *testing.T) {
	svc, users, chats, messages, _ := newService()
	ctx := context.Background()

	chats.On("GetChat", ctx, "ana_givi").Return(models.Chat{
		ID:           "ana_givi",
		Participants: []string{"ana", "givi"},
	}, nil)
	users.On("GetUser", ctx, "givi").Return(models.User{UID: "givi", Nickname: "Givi"}, nil)
	chats.On("AddParticipant", ctx, "ana_givi", mock.Anything).Return(nil, repositories.ErrAlreadyMember)

	_, err := svc.AddUserToGroup(ctx, "ana", "ana_givi", "givi")
	assert.ErrorIs(t, err, repositories.ErrAlreadyMember)
	messages.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListMessagesRequiresMembership(t *testing.T) {
	svc, _, chats, messages, _ := newService()
	ctx := context.Background()

	chats.On("GetChat", ctx, "ana_givi").Return(models.Chat{
		ID:           "ana_givi",
		Participants: []string{"ana", "givi"},
	}, nil)

	_, err := svc.ListMessages(ctx, "mara", "ana_givi")
	assert.ErrorIs(t, err, service.ErrNotParticipant)
	messages.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything)
}

func TestListChatsMapsToSummaries(t *testing.T) {
	svc, _, chats, _, _ := newService()
	ctx := context.Background()

	chats.On("ListChatsForUser", ctx, "givi").Return([]models.Chat{
		{
			ID:                "ana_givi",
			Participants:      []string{"ana", "givi"},
			ParticipantNames:  models.StringMap{"ana": "Ana", "givi": "Givi"},
			ParticipantImages: models.StringMap{"ana": "http://img/ana"},
			LastMessage:       "hello",
		},
	}, nil)

	summaries, err := svc.ListChats(ctx, "givi")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Ana", summaries[0].DisplayName)
	assert.Equal(t, "http://img/ana", summaries[0].PhotoURL)
	assert.Equal(t, "hello", summaries[0].LastMessage)
}
