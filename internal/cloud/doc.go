// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the upstream completion provider used by the relay.
//
// The relay talks to any OpenAI-compatible Chat Completions endpoint
// (api.openai.com by default, or a gateway such as OpenRouter via a base URL)
// in streaming mode, handing each text delta to a callback as it arrives.
// Requests are never retried.
//
// # Key Types
//
//   - Provider: Streams one completion, delta by delta
//   - Request: Model, system instruction, and flattened conversation
//   - Factory: Builds a Provider bound to a credential read at request time
//   - OpenAIProvider: Provider backed by github.com/openai/openai-go
//   - StreamError: Failure after some text was already delivered
//
// # Usage
//
//	provider := cloud.NewOpenAIProvider(apiKey, cloud.WithBaseURL(baseURL))
//	err := provider.Stream(ctx, cloud.Request{
//	    Model:    "gpt-4o",
//	    System:   "You are a helpful assistant",
//	    Messages: []model.WireMessage{{Role: model.RoleUser, Content: "Hello"}},
//	}, func(delta string) error {
//	    fmt.Print(delta)
//	    return nil
//	})
package cloud
