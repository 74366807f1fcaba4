// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatrelay/internal/client"
	"github.com/jeranaias/chatrelay/internal/config"
	"github.com/jeranaias/chatrelay/internal/conversation"
	"github.com/jeranaias/chatrelay/internal/model"
	"github.com/jeranaias/chatrelay/internal/ui/chat"
	"github.com/jeranaias/chatrelay/internal/ui/styles"
)

// clientFlags are shared by the chat and ask commands.
type clientFlags struct {
	relayURL string
	model    string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.relayURL, "relay", "", "relay base URL (overrides client.relay_url)")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "model value, e.g. openai/gpt-4o-mini")
}

// apply copies explicitly set flags into cfg.
func (f *clientFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("relay") {
		cfg.Client.RelayURL = f.relayURL
	}
	if cmd.Flags().Changed("model") {
		if _, ok := model.FindModelOption(cfg.Client.Models, f.model); !ok {
			return withExitCode(ExitUsageError,
				fmt.Errorf("%w: %q", conversation.ErrUnknownModel, f.model))
		}
		cfg.Client.DefaultModel = f.model
	}
	return nil
}

// newSession builds a conversation session talking to the configured relay.
func newSession(cfg *config.Config, opts ...conversation.SessionOption) *conversation.Session {
	relay := client.New(cfg.Client.RelayURL)
	state := conversation.NewState(cfg.Client.Models, cfg.Client.DefaultModel)
	opts = append([]conversation.SessionOption{conversation.WithTimeout(cfg.Client.Timeout())}, opts...)
	return conversation.NewSession(state, relay, opts...)
}

// =============================================================================
// CHAT
// =============================================================================

func newChatCommand(opts *rootOptions) *cobra.Command {
	var flags clientFlags

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the terminal chat client",
		Long: `Open the full-screen chat client against a running relay.

Keys: enter sends, ctrl+n starts a new chat, tab moves to the sidebar,
ctrl+t cycles the model, ctrl+w toggles web search, ctrl+y copies the last
reply, ctrl+c quits. Type /attach PATH to attach a file.`,
		Example: `  chatrelay chat
  chatrelay chat --relay http://localhost:3000 --model openai/gpt-4o`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			if err := RequiresTTY("run the chat client"); err != nil {
				return withExitCode(ExitUsageError, err)
			}

			logPath, err := chatLogPath(cfg)
			if err != nil {
				return withExitCode(ExitConfigError, err)
			}
			// The alt screen owns the terminal; send log output to a file.
			logFile, err := tea.LogToFile(logPath, "")
			if err != nil {
				return fmt.Errorf("failed to open log file %s: %w", logPath, err)
			}
			defer logFile.Close()

			sess := newSession(cfg)
			p := chat.NewProgram(sess, styles.NewTheme(), chat.DefaultKeyMap(), chat.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("chat client failed: %w", err)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// chatLogPath returns client.log_file, or chatrelay.log in the config dir.
func chatLogPath(cfg *config.Config) (string, error) {
	if cfg.Client.LogFile != "" {
		return cfg.Client.LogFile, nil
	}
	if err := config.EnsureConfigDir(); err != nil {
		return "", err
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chatrelay.log"), nil
}
