package entity

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two roles the store accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// MediaType marks a message that originated as a media attachment.
type MediaType string

const (
	MediaVoice MediaType = "voice"
	MediaImage MediaType = "image"
)

// Message is one turn of a WhatsApp conversation. Messages are immutable
// once written; the store assigns ID and Timestamp, and ID order is
// temporal order within a conversation.
type Message struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	MediaType string    `json:"media_type,omitempty"`
	MediaURL  string    `json:"media_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatTurn is the projection of a Message handed to an LLM provider:
// role and content only, storage metadata dropped.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turn converts a stored message to its LLM projection.
func (m *Message) Turn() ChatTurn {
	return ChatTurn{Role: m.Role, Content: m.Content}
}
