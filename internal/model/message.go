// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// ParseRole converts a string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q: must be one of user, assistant, system", s)
	}
	return r, nil
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Messages are values. Parts are append-only: streaming assistant output grows
// the trailing text part, it never rewrites earlier parts.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, parts ...Part) Message {
	return Message{
		ID:        generateID(),
		Role:      role,
		Parts:     parts,
		CreatedAt: time.Now(),
	}
}

// NewUserMessage creates a user message holding a single text part.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, TextPart{Text: text})
}

// NewAssistantMessage creates an assistant message with no parts yet.
func NewAssistantMessage() Message {
	return NewMessage(RoleAssistant)
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Text returns the newline-joined text of all text parts.
// Reasoning and source parts are display-only and excluded.
func (m Message) Text() string {
	var texts []string
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// AppendText returns a copy of m with chunk appended to its trailing text part.
// A text part is added when the message does not end with one.
func (m Message) AppendText(chunk string) Message {
	parts := make([]Part, len(m.Parts), len(m.Parts)+1)
	copy(parts, m.Parts)

	if n := len(parts); n > 0 {
		if tp, ok := parts[n-1].(TextPart); ok {
			parts[n-1] = TextPart{Text: tp.Text + chunk}
			m.Parts = parts
			return m
		}
	}
	m.Parts = append(parts, TextPart{Text: chunk})
	return m
}

// LastText returns the text of the last text part, if any.
func (m Message) LastText() (string, bool) {
	for i := len(m.Parts) - 1; i >= 0; i-- {
		if tp, ok := m.Parts[i].(TextPart); ok {
			return tp.Text, true
		}
	}
	return "", false
}

// Sources returns the source-url parts of the message in order.
func (m Message) Sources() []SourceURLPart {
	var sources []SourceURLPart
	for _, p := range m.Parts {
		if sp, ok := p.(SourceURLPart); ok {
			sources = append(sources, sp)
		}
	}
	return sources
}

// IsEmpty returns true if the message has no parts.
func (m Message) IsEmpty() bool {
	return len(m.Parts) == 0
}

// Clone returns a copy of m that shares no slice storage with it.
func (m Message) Clone() Message {
	if m.Parts != nil {
		parts := make([]Part, len(m.Parts))
		copy(parts, m.Parts)
		m.Parts = parts
	}
	return m
}

// UnmarshalJSON decodes a message and its tagged parts.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string            `json:"id"`
		Role      string            `json:"role"`
		Parts     []json.RawMessage `json:"parts"`
		CreatedAt time.Time         `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	role, err := ParseRole(raw.Role)
	if err != nil {
		return err
	}

	parts := make([]Part, 0, len(raw.Parts))
	for i, rp := range raw.Parts {
		p, err := DecodePart(rp)
		if err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
		parts = append(parts, p)
	}

	*m = Message{ID: raw.ID, Role: role, Parts: parts, CreatedAt: raw.CreatedAt}
	return nil
}

// generateID generates a unique message ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}
