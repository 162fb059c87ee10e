package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            uid TEXT PRIMARY KEY,
            nickname TEXT NOT NULL UNIQUE,
            profession TEXT NOT NULL DEFAULT '',
            profile_image_url TEXT NOT NULL DEFAULT '',
            password_hash TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS chats (
            id TEXT PRIMARY KEY,
            participants TEXT[] NOT NULL,
            participant_names JSONB NOT NULL DEFAULT '{}',
            participant_images JSONB NOT NULL DEFAULT '{}',
            last_message TEXT NOT NULL DEFAULT '',
            last_message_time TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
            last_message_sender_id TEXT NOT NULL DEFAULT '',
            last_message_seq BIGINT NOT NULL DEFAULT 0,
            is_group_chat BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            chat_id TEXT NOT NULL REFERENCES chats(id),
            seq BIGINT NOT NULL,
            sender_id TEXT NOT NULL,
            sender_nickname TEXT NOT NULL DEFAULT '',
            sender_image_url TEXT NOT NULL DEFAULT '',
            content TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (chat_id, seq)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_chats_participants ON chats USING GIN (participants);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
