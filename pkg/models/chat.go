package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Chat Authors
// ============================================================================

// ChatAuthor identifies who wrote a chat message.
type ChatAuthor string

const (
	ChatAuthorUser ChatAuthor = "user"
	ChatAuthorBot  ChatAuthor = "bot"
)

// ============================================================================
// Chat Message
// ============================================================================

// ChatMessage is one entry of a chat transcript.
type ChatMessage struct {
	Author ChatAuthor `json:"author"`
	Text   string     `json:"text"`
}

// IsFromUser returns true if the message is from the user.
func (m ChatMessage) IsFromUser() bool {
	return m.Author == ChatAuthorUser
}

// ============================================================================
// Conversation
// ============================================================================

// Conversation is a snapshot of a chat session. Transcript is what the user
// sees, oldest first, including the greeting and apology messages; the model
// only ever sees turns that completed successfully.
type Conversation struct {
	ID           uuid.UUID     `json:"id"`
	Transcript   []ChatMessage `json:"transcript"`
	StartedAt    time.Time     `json:"startedAt"`
	LastActiveAt time.Time     `json:"lastActiveAt"`
}
