package models

import "time"

// Message is an immutable entry in a chat's log. Seq is assigned by the
// store and strictly increasing within the chat, starting at 1. Sender
// nickname and image are snapshots taken at send time.
type Message struct {
	Seq            int64     `db:"seq" json:"seq"`
	ChatID         string    `db:"chat_id" json:"chat_id"`
	Text           string    `db:"content" json:"text"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	SenderNickname string    `db:"sender_nickname" json:"sender_nickname"`
	SenderImageURL string    `db:"sender_image_url" json:"sender_image_url"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ChatEvent is emitted over message-feed websocket connections.
type ChatEvent struct {
	Type     string    `json:"type"`
	Messages []Message `json:"messages"`
}

// ChatListEvent is emitted over chat-list websocket connections.
type ChatListEvent struct {
	Type  string        `json:"type"`
	Chats []ChatSummary `json:"chats"`
}
