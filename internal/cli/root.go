// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatrelay/internal/config"
)

// Version information (set at build time via -ldflags)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds state shared by every subcommand.
type rootOptions struct {
	configPath string
	cfg        *config.Config
}

// NewRootCommand builds the chatrelay command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "chatrelay",
		Short: "Streaming chat relay and terminal chat client",
		Long: `chatrelay relays chat turns to an OpenAI-compatible API and streams the
reply back as plain text. The same binary runs the relay (serve) and a
terminal client (chat, ask) that talks to it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default ~/.chatrelay/config.toml)")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return withExitCode(ExitUsageError, err)
	})

	root.AddCommand(
		newServeCommand(opts),
		newChatCommand(opts),
		newAskCommand(opts),
		newCheckCommand(opts),
		newSetupCommand(opts),
		newVersionCommand(),
	)
	return root
}

// loadConfig reads the config file named by --config, or the default path.
func (o *rootOptions) loadConfig() error {
	path := o.configPath
	if path == "" {
		p, err := config.ConfigPathTOML()
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		path = p
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	config.SetGlobal(cfg)
	o.cfg = cfg
	return nil
}

// Execute runs the root command against os.Args and returns the exit code.
func Execute() int {
	lipgloss.SetColorProfile(GetColorProfile())

	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", RenderConditional(ErrorStyle, "Error:"), err)
		return ExitCodeFor(err)
	}
	return ExitSuccess
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Version works without a readable config file.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatrelay %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
