// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/chatrelay/internal/cloud"
	"github.com/jeranaias/chatrelay/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages  []InboundMessage `json:"messages"`
	Model     string           `json:"model"`
	WebSearch bool             `json:"webSearch,omitempty"`
}

// InboundMessage is a message as sent by a caller: either already flattened
// to content or carrying parts.
type InboundMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content,omitempty"`
	Parts   []InboundPart   `json:"parts,omitempty"`
}

// InboundPart is one part of an inbound message. Only text parts are relayed.
type InboundPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// NormalizeMessages flattens inbound messages to role and content. A message
// with parts contributes its text parts joined by newline; otherwise its
// string content is used, defaulting to "". Order and role are preserved.
// Roles other than user, assistant, and system are rejected rather than
// passed through.
func NormalizeMessages(messages []InboundMessage) ([]model.WireMessage, error) {
	out := make([]model.WireMessage, 0, len(messages))
	for i, m := range messages {
		role, err := model.ParseRole(m.Role)
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		out = append(out, model.WireMessage{Role: role, Content: m.text()})
	}
	return out, nil
}

// text returns the normalized content of a single message.
func (m InboundMessage) text() string {
	if m.Parts != nil {
		var texts []string
		for _, p := range m.Parts {
			if p.Type == string(model.PartText) {
				texts = append(texts, p.Text)
			}
		}
		return strings.Join(texts, "\n")
	}
	var content string
	if len(m.Content) > 0 && json.Unmarshal(m.Content, &content) == nil {
		return content
	}
	return ""
}

// SelectModel resolves a "provider/model-name" identifier to the concrete
// upstream model. The segment after the first "/" is used when present and
// non-empty; otherwise, or when webSearch is set, fallback is returned.
func SelectModel(identifier string, webSearch bool, fallback string) string {
	if webSearch {
		return fallback
	}
	parts := strings.Split(identifier, "/")
	if len(parts) > 1 && parts[1] != "" {
		return parts[1]
	}
	return fallback
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// handleChat handles POST /api/chat.
//
// A missing credential is reported before the body is read, so it wins over
// any request validation error. Roles are narrowed to user, assistant, and
// system instead of passing through unchanged; anything else is a 400, since
// the upstream API would reject it mid-call.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := s.cfg.Upstream.LookupAPIKey()
	if !ok {
		s.metrics.recordOutcome(OutcomeNoCredential)
		log.Printf("CHAT_NO_CREDENTIAL | env=%s", s.cfg.Upstream.APIKeyEnv)
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("%s environment variable is not set", s.cfg.Upstream.APIKeyEnv))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.recordOutcome(OutcomeBadRequest)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if len(req.Messages) == 0 {
		s.metrics.recordOutcome(OutcomeBadRequest)
		writeError(w, http.StatusBadRequest, "messages array is required")
		return
	}

	messages, err := NormalizeMessages(req.Messages)
	if err != nil {
		s.metrics.recordOutcome(OutcomeBadRequest)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	selected := SelectModel(req.Model, req.WebSearch, s.cfg.Upstream.DefaultModel)
	upstream := cloud.Request{
		Model:    selected,
		System:   s.cfg.Upstream.SystemPrompt,
		Messages: messages,
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Server.RequestTimeout())
	defer cancel()

	s.metrics.inFlight.Inc()
	defer s.metrics.inFlight.Dec()

	out := newTextStreamer(w)
	start := time.Now()
	err = s.factory(apiKey).Stream(ctx, upstream, out.write)
	s.metrics.observeUpstream(selected, time.Since(start))
	s.metrics.recordBytes(selected, out.bytes)

	if err == nil {
		s.metrics.recordOutcome(OutcomeOK)
		log.Printf("CHAT_COMPLETE | model=%s messages=%d bytes=%d", selected, len(messages), out.bytes)
		return
	}

	if !out.started {
		s.metrics.recordOutcome(OutcomeUpstreamError)
		log.Printf("CHAT_UPSTREAM_ERROR | model=%s error=%v", selected, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The status line is already on the wire; abort the connection so the
	// caller sees a broken stream instead of a truncated success.
	s.metrics.recordOutcome(OutcomeAborted)
	log.Printf("CHAT_STREAM_ABORTED | model=%s bytes=%d error=%v", selected, out.bytes, err)
	panic(http.ErrAbortHandler)
}

// =============================================================================
// TEXT STREAMING
// =============================================================================

// textStreamer writes deltas as a plain text body. Headers are committed on
// the first delta so failures before any output can still be reported as JSON.
type textStreamer struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	bytes   int
}

func newTextStreamer(w http.ResponseWriter) *textStreamer {
	return &textStreamer{w: w, rc: http.NewResponseController(w)}
}

func (t *textStreamer) write(delta string) error {
	if !t.started {
		h := t.w.Header()
		h.Set("Content-Type", "text/plain; charset=utf-8")
		h.Set("X-Accel-Buffering", "no")
		t.w.WriteHeader(http.StatusOK)
		t.started = true
	}

	n, err := io.WriteString(t.w, delta)
	t.bytes += n
	if err != nil {
		return err
	}
	if err := t.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
