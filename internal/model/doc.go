// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the domain types shared by the relay server and the
// conversation client: role-tagged messages made of typed parts, the
// conversations that own them, and the JSON payload sent to the relay.
//
// # Key Types
//
//   - Role: Message role enumeration (user, assistant, system)
//   - Part: Closed sum type of message parts (TextPart, ReasoningPart, SourceURLPart)
//   - Message: Role-tagged, append-only sequence of parts
//   - Conversation: Ordered messages plus a title derived from the first user message
//   - RequestPayload: Wire shape POSTed to the relay (/api/chat)
//   - ModelOption: Selectable "provider/model-name" entry
//
// # Usage
//
// Build a user message and flatten it for the relay:
//
//	msg := model.NewUserMessage("Hello!")
//	payload := model.NewRequestPayload([]model.Message{msg}, "openai/gpt-4o", false)
//
// Derive a sidebar title:
//
//	title := model.TitleFromText(msg.Text())
package model
