package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// SystemSenderID is the reserved sender id used for membership notices.
const SystemSenderID = "system"

// DirectChatID derives the canonical id of a 1:1 chat. It is symmetric in
// its arguments, so both participants compute the same id.
func DirectChatID(uidA, uidB string) string {
	if uidB < uidA {
		uidA, uidB = uidB, uidA
	}
	return uidA + "_" + uidB
}

// StringMap is a map[string]string stored as a JSONB column.
type StringMap map[string]string

// Value implements driver.Valuer.
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *StringMap) Scan(src interface{}) error {
	if src == nil {
		*m = StringMap{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringMap", src)
	}
	return json.Unmarshal(data, m)
}

// Chat is a conversation between two or more users. Participant names and
// images are snapshot copies taken when the member joined; they may lag a
// later profile edit.
type Chat struct {
	ID                  string         `db:"id" json:"id"`
	Participants        pq.StringArray `db:"participants" json:"participants"`
	ParticipantNames    StringMap      `db:"participant_names" json:"participant_names"`
	ParticipantImages   StringMap      `db:"participant_images" json:"participant_images"`
	LastMessage         string         `db:"last_message" json:"last_message"`
	LastMessageTime     time.Time      `db:"last_message_time" json:"last_message_time"`
	LastMessageSenderID string         `db:"last_message_sender_id" json:"last_message_sender_id"`
	LastMessageSeq      int64          `db:"last_message_seq" json:"-"`
	IsGroupChat         bool           `db:"is_group_chat" json:"is_group_chat"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
}

// HasParticipant reports whether uid is a member of the chat.
func (c Chat) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// ChatSummary is the reduced chat-list entry served to clients. For 1:1
// chats the display fields resolve to the other participant.
type ChatSummary struct {
	ChatID          string    `json:"chat_id"`
	DisplayName     string    `json:"display_name"`
	PhotoURL        string    `json:"photo_url"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	IsGroupChat     bool      `json:"is_group_chat"`
}

// SummaryFor reduces the chat to a list entry from the viewpoint of uid.
func (c Chat) SummaryFor(uid string) ChatSummary {
	s := ChatSummary{
		ChatID:          c.ID,
		LastMessage:     c.LastMessage,
		LastMessageTime: c.LastMessageTime,
		IsGroupChat:     c.IsGroupChat,
	}
	if c.IsGroupChat {
		for _, p := range c.Participants {
			if s.DisplayName != "" {
				s.DisplayName += ", "
			}
			s.DisplayName += c.ParticipantNames[p]
		}
		return s
	}
	for _, p := range c.Participants {
		if p != uid {
			s.DisplayName = c.ParticipantNames[p]
			s.PhotoURL = c.ParticipantImages[p]
			return s
		}
	}
	return s
}
