// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the chat client's conversation state and drives
// turns against the relay.
//
// State is an immutable snapshot. Every transition is a value method that
// returns a new State, so a snapshot handed to the UI never changes under it.
// Stream updates are keyed by the conversation id captured at submission, so
// switching conversations mid-stream cannot misroute output.
//
// # Turn Lifecycle
//
//	idle -> submitted -> streaming -> idle
//	            \            \
//	             +------------+-> error
//
// # Key Types
//
//   - State: Sidebar, active conversation, input, model selection, turn status
//   - Status: Turn status enum
//   - Session: Mutex-guarded State that runs turns through a Streamer
//   - Turn: Handle for one in-flight turn
//
// # Usage
//
//	sess := conversation.NewSession(conversation.NewState(models, "openai/gpt-4o"), relay,
//		conversation.WithOnChange(func(s conversation.State) { p.Send(StateMsg{s}) }))
//	turn, err := sess.Submit(ctx, "hello", nil)
package conversation
