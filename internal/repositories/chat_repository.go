package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

var (
	ErrChatNotFound  = errors.New("chat not found")
	ErrAlreadyMember = errors.New("user is already in the chat")
)

const chatColumns = `id, participants, participant_names, participant_images,
    last_message, last_message_time, last_message_sender_id, last_message_seq,
    is_group_chat, created_at`

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	CreateOrGetChat(ctx context.Context, userA, userB models.User) (models.Chat, error)
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	ListChatsForUser(ctx context.Context, uid string) ([]models.Chat, error)
	AddParticipant(ctx context.Context, chatID string, user models.User) (models.Chat, error)
	UpdateSummary(ctx context.Context, chatID, lastMessage, senderID string, sentAt time.Time, seq int64) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateOrGetChat creates the 1:1 chat for the pair if it does not exist and
// returns it. The id is canonical in the pair, so concurrent calls for the
// same two users converge on one row.
func (r *ChatRepo) CreateOrGetChat(ctx context.Context, userA, userB models.User) (models.Chat, error) {
	chatID := models.DirectChatID(userA.UID, userB.UID)

	names := models.StringMap{userA.UID: userA.Nickname, userB.UID: userB.Nickname}
	images := models.StringMap{userA.UID: userA.ProfileImageURL, userB.UID: userB.ProfileImageURL}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chats (id, participants, participant_names, participant_images)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (id) DO NOTHING`,
		chatID, pq.StringArray{userA.UID, userB.UID}, names, images)
	if err != nil {
		return models.Chat{}, err
	}

	return r.GetChat(ctx, chatID)
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// ListChatsForUser returns the chats the user participates in, most recent
// activity first.
func (r *ChatRepo) ListChatsForUser(ctx context.Context, uid string) ([]models.Chat, error) {
	chats := []models.Chat{}
	err := r.db.SelectContext(ctx, &chats,
		`SELECT `+chatColumns+` FROM chats WHERE $1 = ANY(participants) ORDER BY last_message_time DESC`,
		uid)
	return chats, err
}

// AddParticipant appends the user to the chat and marks it a group chat. The
// chat row is locked so concurrent joins serialize.
func (r *ChatRepo) AddParticipant(ctx context.Context, chatID string, user models.User) (models.Chat, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var chat models.Chat
	err = tx.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1 FOR UPDATE`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrChatNotFound
		return models.Chat{}, err
	}
	if err != nil {
		return models.Chat{}, err
	}
	if chat.HasParticipant(user.UID) {
		err = ErrAlreadyMember
		return models.Chat{}, err
	}

	patch := models.StringMap{user.UID: user.Nickname}
	imagePatch := models.StringMap{user.UID: user.ProfileImageURL}
	err = tx.QueryRowxContext(ctx,
		`UPDATE chats SET
            participants = array_append(participants, $2),
            participant_names = participant_names || $3::jsonb,
            participant_images = participant_images || $4::jsonb,
            is_group_chat = TRUE
         WHERE id=$1
         RETURNING `+chatColumns,
		chatID, user.UID, patch, imagePatch).StructScan(&chat)
	if err != nil {
		return models.Chat{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// UpdateSummary applies the last-message summary with a compare-and-set on
// the message seq, so a summary from an older message never overwrites one
// from a newer message regardless of arrival order.
func (r *ChatRepo) UpdateSummary(ctx context.Context, chatID, lastMessage, senderID string, sentAt time.Time, seq int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chats SET
            last_message=$2, last_message_time=$3, last_message_sender_id=$4, last_message_seq=$5
         WHERE id=$1 AND last_message_seq < $5`,
		chatID, lastMessage, sentAt, senderID, seq)
	if err != nil {
		return err
	}
	// Zero rows means either the chat vanished or a newer summary is already
	// in place; both are fine to ignore.
	_, err = res.RowsAffected()
	return err
}
