package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

// MessageRepository abstracts the append-only message log.
type MessageRepository interface {
	AppendMessage(ctx context.Context, chatID, senderID, senderNickname, senderImageURL, text string) (models.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendMessage stores a message with the next seq for the chat. Appends to
// the same chat serialize on a transaction-scoped advisory lock keyed by the
// chat id, so seq assignment is never duplicated under concurrent senders.
func (r *MessageRepo) AppendMessage(ctx context.Context, chatID, senderID, senderNickname, senderImageURL, text string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, chatID); err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (chat_id, seq, sender_id, sender_nickname, sender_image_url, content)
         VALUES ($1, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE chat_id=$1), $2, $3, $4, $5)
         RETURNING chat_id, seq, sender_id, sender_nickname, sender_image_url, content, created_at`,
		chatID, senderID, senderNickname, senderImageURL, text).StructScan(&msg)
	if err != nil {
		if isForeignKeyViolation(err) {
			err = ErrChatNotFound
		}
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListMessages returns the full chat history in append order.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT chat_id, seq, sender_id, sender_nickname, sender_image_url, content, created_at
         FROM messages WHERE chat_id=$1 ORDER BY seq ASC`,
		chatID)
	return msgs, err
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
