// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/chatrelay/internal/conversation"

// StateMsg delivers a session snapshot to the program.
type StateMsg struct {
	State conversation.State
}

// TurnDoneMsg is sent when a submitted turn ends.
type TurnDoneMsg struct {
	ConversationID string
	Err            error
}

// CopiedMsg reports the result of a clipboard copy.
type CopiedMsg struct {
	Chars int
	Err   error
}

// NoticeMsg shows a transient line in the status bar.
type NoticeMsg struct {
	Text  string
	IsErr bool
}
