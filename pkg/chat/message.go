package chat

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
)

// Instructional reports whether messages with this role are instructions
// rather than dialogue.
func (r Role) Instructional() bool {
	return r == RoleSystem || r == RoleDeveloper
}

// ChatMessage is a single conversational turn.
type ChatMessage struct {
	ID      string
	Role    Role
	Content Content
}

// WireMessage is a history entry as sent to the backend.
type WireMessage struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewID returns a fresh message identifier.
func NewID() string {
	return uuid.NewString()
}

// NewMessage creates a message with a fresh identifier.
func NewMessage(role Role, content Content) ChatMessage {
	return ChatMessage{ID: NewID(), Role: role, Content: content}
}

type messageJSON struct {
	ID      string          `json:"id,omitempty"`
	Role    Role            `json:"role"`
	Content json.RawMessage `json:"content,omitempty"`
}

// MarshalJSON encodes the message, omitting content when there is none.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	out := messageJSON{ID: m.ID, Role: m.Role}
	if m.Content != nil {
		data, err := EncodeContent(m.Content)
		if err != nil {
			return nil, err
		}
		out.Content = data
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the message and its heterogeneous content.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var in messageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.ID = in.ID
	m.Role = in.Role
	m.Content = DecodeContent(in.Content)
	return nil
}
