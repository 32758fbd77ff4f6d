package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID        uuid.UUID  `json:"id"`
	Title     *string    `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Messages  []*Message `json:"messages"`
}

type Message struct {
	ID             uuid.UUID     `json:"id"`
	ConversationID uuid.UUID     `json:"conversation_id"`
	Role           string        `json:"role"` // "user" or "assistant"
	Content        string        `json:"content"`
	Attachments    []*Attachment `json:"images"`
	CreatedAt      time.Time     `json:"created_at"`
}

type Attachment struct {
	ID        uuid.UUID `json:"id"`
	MessageID uuid.UUID `json:"message_id"`
	FilePath  string    `json:"file_path"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationListItem is a conversation summary row for the sidebar list.
type ConversationListItem struct {
	ID           uuid.UUID `json:"id"`
	Title        *string   `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ChatResponse is the reply to a sent message: the persisted user turn and
// the generated assistant turn.
type ChatResponse struct {
	UserMessage      *Message  `json:"user_message"`
	AssistantMessage *Message  `json:"assistant_message"`
	ConversationID   uuid.UUID `json:"conversation_id"`
}
