// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/chatrelay/internal/model"
)

// =============================================================================
// PROVIDER INTERFACE
// =============================================================================

// DeltaFunc receives one text delta. Returning an error stops the stream.
type DeltaFunc func(delta string) error

// Provider streams a single completion.
type Provider interface {
	// Stream issues one streaming completion and calls onDelta for every
	// non-empty text delta, in order. It returns when the upstream stream
	// ends, fails, or ctx is done.
	Stream(ctx context.Context, req Request, onDelta DeltaFunc) error
}

// Factory builds a Provider for a credential. The relay calls it per request
// so the credential is always the one currently in the environment.
type Factory func(apiKey string) Provider

// Request is one upstream completion call.
type Request struct {
	// Model is the concrete upstream model name (e.g. "gpt-4o")
	Model string

	// System is prepended as a system message when non-empty
	System string

	// Messages is the flattened conversation
	Messages []model.WireMessage
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("upstream API key not configured")

	// ErrEmptyConversation indicates a request without messages.
	ErrEmptyConversation = errors.New("conversation has no messages")
)

// StreamError represents an error that occurred during streaming,
// preserving any partial content received before the error.
type StreamError struct {
	Partial string // Content received before error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}
