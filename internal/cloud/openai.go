// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jeranaias/chatrelay/internal/model"
)

// =============================================================================
// OPENAI PROVIDER
// =============================================================================

// OpenAIProvider streams completions from an OpenAI-compatible API.
type OpenAIProvider struct {
	client     openai.Client
	configured bool
}

// ProviderOption configures an OpenAIProvider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the provider at an OpenAI-compatible gateway.
func WithBaseURL(baseURL string) ProviderOption {
	return func(o *providerOptions) {
		o.baseURL = strings.TrimSpace(baseURL)
	}
}

// WithHTTPClient replaces the HTTP client used for upstream calls.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(o *providerOptions) {
		o.httpClient = c
	}
}

// NewOpenAIProvider creates a provider for apiKey. SDK retries are disabled.
func NewOpenAIProvider(apiKey string, opts ...ProviderOption) *OpenAIProvider {
	var po providerOptions
	for _, opt := range opts {
		opt(&po)
	}

	apiKey = strings.TrimSpace(apiKey)
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if po.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(ensureTrailingSlash(po.baseURL)))
	}
	if po.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(po.httpClient))
	}

	return &OpenAIProvider{
		client:     openai.NewClient(reqOpts...),
		configured: apiKey != "",
	}
}

// NewOpenAIFactory returns a Factory producing OpenAIProviders with opts.
func NewOpenAIFactory(opts ...ProviderOption) Factory {
	return func(apiKey string) Provider {
		return NewOpenAIProvider(apiKey, opts...)
	}
}

// IsConfigured returns true if the provider has an API key.
func (p *OpenAIProvider) IsConfigured() bool {
	return p.configured
}

// Stream implements Provider.
func (p *OpenAIProvider) Stream(ctx context.Context, req Request, onDelta DeltaFunc) error {
	if !p.configured {
		return ErrNotConfigured
	}
	if len(req.Messages) == 0 {
		return ErrEmptyConversation
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: toOpenAIMessages(req.System, req.Messages),
	}

	start := time.Now()
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var partial strings.Builder
	chunks := 0
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		partial.WriteString(delta)
		chunks++
		if err := onDelta(delta); err != nil {
			return &StreamError{Partial: partial.String(), Err: err}
		}
	}

	if err := stream.Err(); err != nil {
		err = describeError(err)
		log.Printf("UPSTREAM_STREAM_ERROR | model=%s chunks=%d error=%v", req.Model, chunks, err)
		if partial.Len() > 0 {
			return &StreamError{Partial: partial.String(), Err: err}
		}
		return err
	}

	log.Printf("UPSTREAM_STREAM_COMPLETE | model=%s chunks=%d chars=%d latency=%dms",
		req.Model, chunks, partial.Len(), time.Since(start).Milliseconds())
	return nil
}

// toOpenAIMessages converts the flattened conversation to SDK message params.
func toOpenAIMessages(system string, messages []model.WireMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// describeError reduces SDK API errors to the upstream message text.
func describeError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Errorf("upstream returned HTTP %d: %s", apiErr.StatusCode, apiErr.Message)
	}
	return err
}

func ensureTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
