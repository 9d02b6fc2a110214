package session

import (
	"fmt"
	"slices"
	"strings"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// ParseRole accepts "user", "model" and the "assistant" alias used by
// OpenAI and Anthropic style transcripts.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "model", "assistant":
		return RoleModel, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Message is one entry of the conversation history.
type Message struct {
	Role  Role
	Parts []string
}

// NewMessage creates a Message from one or more text parts.
func NewMessage(role Role, parts ...string) Message {
	return Message{Role: role, Parts: slices.Clone(parts)}
}

// Text joins the parts with newlines.
func (m Message) Text() string {
	return strings.Join(m.Parts, "\n")
}

func (m Message) clone() Message {
	return Message{Role: m.Role, Parts: slices.Clone(m.Parts)}
}

func cloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.clone()
	}
	return out
}
