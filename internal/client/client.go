// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/jeranaias/chatrelay/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// RelayError is a non-200 response from the relay. Message is taken from the
// JSON {"error"} body when present.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay returned HTTP %d: %s", e.StatusCode, e.Message)
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeStreamBroken
)

// ClientError represents a transport failure talking to the relay.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// =============================================================================
// CLIENT
// =============================================================================

// ReadChunkSize is the size of each body read while streaming.
const ReadChunkSize = 4096

// Client talks to a chat relay.
//
// The Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the relay at baseURL. Request lifetimes are
// governed by the caller's context, so the default HTTP client has no timeout.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the relay base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Stream posts payload to the relay's chat endpoint and calls onChunk for each
// piece of text as it is read. It returns nil when the body ends cleanly.
// Text already delivered stays delivered when an error is returned.
func (c *Client) Stream(ctx context.Context, payload model.RequestPayload, onChunk func(string)) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, ErrTypeConnection, "failed to reach relay", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeRelayError(resp)
	}

	buf := make([]byte, ReadChunkSize)
	var carry []byte
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			data := append(carry, buf[:n]...)
			complete, rest := splitUTF8(data)
			carry = append([]byte(nil), rest...)
			if len(complete) > 0 {
				onChunk(string(complete))
			}
		}
		if readErr == io.EOF {
			if len(carry) > 0 {
				onChunk(string(carry))
			}
			return nil
		}
		if readErr != nil {
			return transportError(ctx, ErrTypeStreamBroken, "relay stream broken", readErr)
		}
	}
}

// Diagnostic is the relay's credential report.
type Diagnostic struct {
	HasAPIKey bool   `json:"hasApiKey"`
	Message   string `json:"message"`
}

// Check calls the relay's diagnostic endpoint.
func (c *Client) Check(ctx context.Context) (Diagnostic, error) {
	var d Diagnostic

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/test", nil)
	if err != nil {
		return d, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return d, transportError(ctx, ErrTypeConnection, "failed to reach relay", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return d, decodeRelayError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return d, fmt.Errorf("failed to decode diagnostic: %w", err)
	}
	return d, nil
}

// transportError classifies a transport failure. Context expiry wins over the
// raw network error so callers can match context.DeadlineExceeded.
func transportError(ctx context.Context, typ ErrorType, msg string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		typ = ErrTypeUnknown
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			typ = ErrTypeTimeout
		}
		return &ClientError{Type: typ, Message: msg, Cause: ctxErr}
	}
	return &ClientError{Type: typ, Message: msg, Cause: err}
}

// decodeRelayError builds a RelayError from a non-200 response.
func decodeRelayError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &RelayError{StatusCode: resp.StatusCode, Message: msg}
}

// splitUTF8 splits b before a trailing incomplete UTF-8 sequence.
func splitUTF8(b []byte) (complete, rest []byte) {
	n := len(b)
	for i := 1; i < utf8.UTFMax && i <= n; i++ {
		if !utf8.RuneStart(b[n-i]) {
			continue
		}
		if !utf8.FullRune(b[n-i:]) {
			return b[:n-i], b[n-i:]
		}
		break
	}
	return b, nil
}
