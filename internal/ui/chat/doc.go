// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the terminal chat interface.
//
// The Model renders a conversation.Session: a sidebar of conversations, a
// header with the selected model, the active message list, and an input area.
// The session publishes snapshots through StateMsg; the Model never mutates
// conversation state itself.
//
// # Key Types
//
//   - Model: Bubble Tea model for the chat screen
//   - KeyMap: Keyboard bindings
//   - StateMsg: Session snapshot delivered to the program
//
// # Usage
//
//	p := chat.NewProgram(sess, theme, keys)
//	if _, err := p.Run(); err != nil {
//		log.Fatal(err)
//	}
package chat
