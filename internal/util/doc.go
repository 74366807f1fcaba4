// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across chatrelay.
//
// # Key Functions
//
// String Utilities:
//   - TruncateWithEllipsis: keep the first N characters and mark the cut with "..."
//   - FitWidth: fit a string into a terminal column budget (CJK aware)
//   - RuneLen: character count of a UTF-8 string
//
// File Operations:
//   - AtomicWriteFile: crash-safe replace of a file
//   - WriteFileIfAbsent: crash-safe create that never clobbers an existing file
//
// # Usage
//
//	title := util.TruncateWithEllipsis(firstMessage, 50)
//	label := util.FitWidth(title, sidebarWidth)
//	created, err := util.WriteFileIfAbsent(".env.local", data, 0600)
package util
