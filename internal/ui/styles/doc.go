// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the chat interface.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - Assistant messages, model badge, active conversation
  - Cyan - Brand, user messages, focus ring
  - Emerald - Success and web search enabled
  - Amber - Reasoning panels and attachments
  - Rose - Errors

Status lines carry ASCII indicators ([OK], [X], [i]) so meaning does not rely
on color alone.

# Theme System (theme.go)

	theme := styles.NewTheme()
	header := theme.Header.Width(width).Render(title)
*/
package styles
