// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package client provides the HTTP client for the chat relay.
//
// Stream posts a conversation to the relay and delivers the completion text
// in chunks as the body arrives. Chunks never split a UTF-8 sequence.
//
// # Key Types
//
//   - Client: Relay client
//   - RelayError: Non-200 response from the relay
//   - ClientError: Transport or stream failure
//   - Diagnostic: Credential report from the relay
//
// # Usage
//
//	c := client.New("http://127.0.0.1:8787")
//	err := c.Stream(ctx, payload, func(chunk string) {
//		fmt.Print(chunk)
//	})
package client
