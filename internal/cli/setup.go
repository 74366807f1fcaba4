// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/chatrelay/internal/config"
	"github.com/jeranaias/chatrelay/internal/setup"
)

func newSetupCommand(opts *rootOptions) *cobra.Command {
	var (
		key    string
		prompt bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the env file holding the upstream credential",
		Long: `Create .env.local with a placeholder credential and instructions.
An existing file is never overwritten.

Use --key to store a key directly, or --prompt to type it without echo.`,
		Example: `  chatrelay setup
  chatrelay setup --prompt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if prompt {
				if err := RequiresTTY("read the API key"); err != nil {
					return withExitCode(ExitUsageError, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ", cfg.Upstream.APIKeyEnv)
				b, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("failed to read key: %w", err)
				}
				key = strings.TrimSpace(string(b))
			}
			return runSetup(cfg, key, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "store this API key in the env file")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "prompt for the API key without echo")
	return cmd
}

// runSetup writes the env file if absent and optionally stores key.
func runSetup(cfg *config.Config, key string, out io.Writer) error {
	path := cfg.Env.File

	created, err := setup.WriteEnvFile(path)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	if created {
		fmt.Fprintf(out, "%s Created %s\n", RenderStatus("ok"), path)
	} else {
		fmt.Fprintf(out, "%s %s already exists; leaving it unchanged\n", RenderStatus("info"), path)
	}

	if key != "" {
		if err := setup.SetKey(path, cfg.Upstream.APIKeyEnv, key); err != nil {
			return withExitCode(ExitConfigError, err)
		}
		fmt.Fprintf(out, "%s Stored %s in %s\n", RenderStatus("ok"), cfg.Upstream.APIKeyEnv, path)
		return nil
	}

	state, err := setup.InspectEnvFile(path, cfg.Upstream.APIKeyEnv)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	if state != setup.KeySet {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Next: edit %s and set %s.\n", path, cfg.Upstream.APIKeyEnv)
		fmt.Fprintf(out, "Get a key from %s\n", setup.APIKeysURL)
	}
	return nil
}
