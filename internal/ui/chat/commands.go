// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatrelay/internal/conversation"
	"github.com/jeranaias/chatrelay/internal/model"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command is a parsed slash command.
type command struct {
	name string
	arg  string
}

// parseCommand recognizes input of the form "/name [arg]".
func parseCommand(input string) (command, bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") || len(trimmed) < 2 {
		return command{}, false
	}
	name, arg, _ := strings.Cut(trimmed[1:], " ")
	switch name {
	case "attach", "detach", "new", "model", "search":
		return command{name: name, arg: strings.TrimSpace(arg)}, true
	}
	return command{}, false
}

// runCommand executes a slash command.
func (m Model) runCommand(c command) (tea.Model, tea.Cmd) {
	switch c.name {
	case "attach":
		if c.arg == "" {
			m.setNotice("Usage: /attach <path>", true)
			return m, nil
		}
		att, err := LoadAttachment(c.arg)
		if err != nil {
			m.setNotice(err.Error(), true)
			return m, nil
		}
		m.session.Update(func(s conversation.State) conversation.State { return s.AddAttachment(att) })
		m.setNotice("Attached "+att.Name, false)

	case "detach":
		m.session.Update(func(s conversation.State) conversation.State { return s.ClearAttachments() })
		m.setNotice("Attachments cleared", false)

	case "new":
		m.session.CreateConversation()
		m.sidebarCursor = 1

	case "model":
		if c.arg == "" {
			m.session.Update(func(s conversation.State) conversation.State { return s.CycleModel() })
			break
		}
		var selectErr error
		m.session.Update(func(s conversation.State) conversation.State {
			next, err := s.SelectModel(c.arg)
			selectErr = err
			return next
		})
		if selectErr != nil {
			m.setNotice(selectErr.Error(), true)
			m.sync()
			return m, nil
		}

	case "search":
		m.session.Update(func(s conversation.State) conversation.State { return s.ToggleWebSearch() })
	}

	m.sync()
	if c.name == "model" {
		m.setNotice("Model: "+m.state.SelectedModelName(), false)
	}
	return m, nil
}

// LoadAttachment describes the file at path for staging.
func LoadAttachment(path string) (model.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("cannot attach %s: %w", path, err)
	}
	if info.IsDir() {
		return model.Attachment{}, fmt.Errorf("cannot attach %s: is a directory", path)
	}

	mediaType := mime.TypeByExtension(filepath.Ext(path))
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return model.Attachment{
		Name:      filepath.Base(path),
		MediaType: mediaType,
		Size:      info.Size(),
	}, nil
}
