// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// WireMessage is a message flattened to plain content.
type WireMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RequestPayload is the JSON body POSTed to the relay's chat endpoint.
type RequestPayload struct {
	Messages  []WireMessage `json:"messages"`
	Model     string        `json:"model"`
	WebSearch bool          `json:"webSearch,omitempty"`
}

// Flatten converts messages into wire messages, keeping order and role.
func Flatten(messages []Message) []WireMessage {
	out := make([]WireMessage, len(messages))
	for i, m := range messages {
		out[i] = WireMessage{Role: m.Role, Content: m.Text()}
	}
	return out
}

// NewRequestPayload builds the relay payload for a full message list.
func NewRequestPayload(messages []Message, model string, webSearch bool) RequestPayload {
	return RequestPayload{
		Messages:  Flatten(messages),
		Model:     model,
		WebSearch: webSearch,
	}
}
