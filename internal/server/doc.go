// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the chat relay HTTP server.
//
// The relay accepts a conversation and a model identifier, flattens the
// messages to plain content, and streams the upstream completion back to the
// caller as plain text as it arrives.
//
// # Endpoints
//
//   - POST /api/chat   - Stream a completion for {messages, model, webSearch?}
//   - GET  /api/test   - Report whether the upstream credential is configured
//   - GET  /health     - Liveness probe
//   - GET  /metrics    - Prometheus metrics
//
// # Failure Handling
//
// A missing credential is answered with 500 and a JSON {"error"} body before
// any upstream call. Upstream failures before the first byte are answered the
// same way. Once text has been streamed the connection is aborted instead.
//
// # Key Types
//
//   - Server: HTTP server with router, middleware, and metrics
//   - ChatRequest: Inbound request body
//   - Metrics: Per-server Prometheus registry
//
// # Usage
//
//	srv := server.New(cfg, cloud.NewOpenAIFactory())
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
