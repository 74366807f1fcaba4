// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_Text(t *testing.T) {
	msg := NewMessage(RoleAssistant,
		ReasoningPart{Text: "thinking"},
		TextPart{Text: "first"},
		SourceURLPart{URL: "https://example.com"},
		TextPart{Text: "second"},
	)

	if got := msg.Text(); got != "first\nsecond" {
		t.Errorf("Text() = %q, want %q", got, "first\nsecond")
	}
	if got := NewAssistantMessage().Text(); got != "" {
		t.Errorf("Text() on empty message = %q, want empty", got)
	}
}

func TestMessage_AppendText(t *testing.T) {
	msg := NewAssistantMessage()
	msg = msg.AppendText("Hel")
	msg = msg.AppendText("lo")

	if len(msg.Parts) != 1 {
		t.Fatalf("len(Parts) = %d, want 1", len(msg.Parts))
	}
	if got := msg.Text(); got != "Hello" {
		t.Errorf("Text() = %q, want %q", got, "Hello")
	}

	withReasoning := NewMessage(RoleAssistant, ReasoningPart{Text: "r"})
	withReasoning = withReasoning.AppendText("answer")
	if len(withReasoning.Parts) != 2 {
		t.Fatalf("len(Parts) = %d, want 2", len(withReasoning.Parts))
	}
	if _, ok := withReasoning.Parts[1].(TextPart); !ok {
		t.Errorf("Parts[1] = %T, want TextPart", withReasoning.Parts[1])
	}
}

func TestMessage_AppendTextDoesNotAlias(t *testing.T) {
	original := NewMessage(RoleAssistant, TextPart{Text: "a"})
	updated := original.AppendText("b")

	if original.Text() != "a" {
		t.Errorf("original changed to %q", original.Text())
	}
	if updated.Text() != "ab" {
		t.Errorf("updated = %q, want %q", updated.Text(), "ab")
	}
}

func TestMessage_IDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewUserMessage("x").ID
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	msg := NewMessage(RoleAssistant,
		TextPart{Text: "hi"},
		ReasoningPart{Text: "why"},
		SourceURLPart{URL: "https://go.dev", Title: "Go"},
	)

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, want := range []string{`"type":"text"`, `"type":"reasoning"`, `"type":"source-url"`, `"url":"https://go.dev"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("encoded message missing %s: %s", want, data)
		}
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(decoded.Parts) != 3 {
		t.Fatalf("len(Parts) = %d, want 3", len(decoded.Parts))
	}
	if sp, ok := decoded.Parts[2].(SourceURLPart); !ok || sp.Title != "Go" {
		t.Errorf("Parts[2] = %#v, want SourceURLPart with title", decoded.Parts[2])
	}
}

func TestMessage_UnmarshalRejectsUnknown(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"id":"1","role":"user","parts":[{"type":"file"}]}`), &msg)
	if !errors.Is(err, ErrUnknownPartType) {
		t.Errorf("err = %v, want ErrUnknownPartType", err)
	}

	err = json.Unmarshal([]byte(`{"id":"1","role":"tool","parts":[]}`), &msg)
	if err == nil {
		t.Error("expected error for unknown role")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestTitleFromText(t *testing.T) {
	sixty := strings.Repeat("x", 60)
	ten := strings.Repeat("y", 10)

	if got := TitleFromText(sixty); got != strings.Repeat("x", 50)+"..." {
		t.Errorf("TitleFromText(60 chars) = %q", got)
	}
	if got := TitleFromText(ten); got != ten {
		t.Errorf("TitleFromText(10 chars) = %q, want unchanged", got)
	}
}

func TestConversation_WithMessages(t *testing.T) {
	conv := NewConversation("chat-1", time.Now())
	if conv.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", conv.Title, DefaultTitle)
	}

	first := NewUserMessage(strings.Repeat("a", 60))
	conv = conv.WithMessages([]Message{first})
	want := strings.Repeat("a", 50) + "..."
	if conv.Title != want {
		t.Errorf("Title = %q, want %q", conv.Title, want)
	}

	// Later user messages never change the title.
	conv = conv.WithMessages(append(conv.Messages, NewUserMessage("second question")))
	if conv.Title != want {
		t.Errorf("Title after second message = %q, want %q", conv.Title, want)
	}
}

func TestSubmissionText(t *testing.T) {
	attachments := []Attachment{{Name: "a.png", MediaType: "image/png", Size: 10}}

	tests := []struct {
		name        string
		text        string
		attachments []Attachment
		want        string
		wantOK      bool
	}{
		{"empty", "", nil, "", false},
		{"whitespace", "  \n\t", nil, "", false},
		{"text", "hi", nil, "hi", true},
		{"attachments only", "", attachments, AttachmentOnlyText, true},
		{"text and attachments", "look", attachments, "look", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SubmissionText(tt.text, tt.attachments)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("SubmissionText() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// =============================================================================
// PAYLOAD TESTS
// =============================================================================

func TestNewRequestPayload(t *testing.T) {
	messages := []Message{
		NewUserMessage("hi"),
		NewMessage(RoleAssistant, ReasoningPart{Text: "hidden"}, TextPart{Text: "hello"}),
	}

	payload := NewRequestPayload(messages, "openai/gpt-4o", true)

	if len(payload.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(payload.Messages))
	}
	if payload.Messages[1] != (WireMessage{Role: RoleAssistant, Content: "hello"}) {
		t.Errorf("Messages[1] = %+v", payload.Messages[1])
	}
	if payload.Model != "openai/gpt-4o" || !payload.WebSearch {
		t.Errorf("payload = %+v", payload)
	}
}

func TestNextModelOption(t *testing.T) {
	opts := DefaultModelOptions()

	next, ok := NextModelOption(opts, "openai/gpt-4o")
	if !ok || next.Value != "deepseek/deepseek-r1" {
		t.Errorf("NextModelOption() = %+v", next)
	}
	next, _ = NextModelOption(opts, "deepseek/deepseek-r1")
	if next.Value != "openai/gpt-4o" {
		t.Errorf("NextModelOption() did not wrap: %+v", next)
	}
	if _, ok := NextModelOption(nil, "x"); ok {
		t.Error("NextModelOption(nil) ok = true")
	}
	if _, ok := FindModelOption(opts, "missing/model"); ok {
		t.Error("FindModelOption() found unknown value")
	}
}
