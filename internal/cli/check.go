// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatrelay/internal/client"
	"github.com/jeranaias/chatrelay/internal/config"
	"github.com/jeranaias/chatrelay/internal/setup"
)

// CheckTimeout bounds the diagnostic request.
const CheckTimeout = 5 * time.Second

// errNoCredential is returned by check when the relay has no usable key.
var errNoCredential = errors.New("relay has no upstream credential")

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var (
		relayURL string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the relay is reachable and has a credential",
		Long: `Call the relay diagnostic endpoint (GET /api/test) and inspect the local
env file. Exits non-zero when the relay is unreachable or has no key.`,
		Example: `  chatrelay check
  chatrelay check --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("relay") {
				cfg.Client.RelayURL = relayURL
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), CheckTimeout)
			defer cancel()
			return runCheck(ctx, cfg, client.New(cfg.Client.RelayURL), asJSON, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&relayURL, "relay", "", "relay base URL (overrides client.relay_url)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw diagnostic response")
	return cmd
}

// runCheck prints the relay diagnostic and the env file state.
func runCheck(ctx context.Context, cfg *config.Config, relay *client.Client, asJSON bool, out io.Writer) error {
	diag, err := relay.Check(ctx)
	if asJSON {
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(diag); err != nil {
			return err
		}
		if !diag.HasAPIKey {
			return withExitCode(ExitConfigError, errNoCredential)
		}
		return nil
	}

	fmt.Fprintln(out, RenderConditional(TitleStyle, "chatrelay check"))

	if err != nil {
		fmt.Fprintf(out, "%s%s %s\n", RenderLabel("Relay"), RenderStatus("fail"), relay.BaseURL())
		fmt.Fprintf(out, "%s%v\n", RenderLabel(""), err)
		return err
	}
	fmt.Fprintf(out, "%s%s %s\n", RenderLabel("Relay"), RenderStatus("ok"), relay.BaseURL())

	credStatus := "ok"
	if !diag.HasAPIKey {
		credStatus = "fail"
	}
	fmt.Fprintf(out, "%s%s %s\n", RenderLabel("Credential"), RenderStatus(credStatus), diag.Message)

	state, envErr := setup.InspectEnvFile(cfg.Env.File, cfg.Upstream.APIKeyEnv)
	envStatus := "ok"
	switch {
	case envErr != nil:
		envStatus = "fail"
	case state != setup.KeySet:
		envStatus = "warn"
	}
	detail := state.String()
	if envErr != nil {
		detail = envErr.Error()
	}
	fmt.Fprintf(out, "%s%s %s (%s)\n", RenderLabel("Env file"), RenderStatus(envStatus), cfg.Env.File, detail)

	if !diag.HasAPIKey {
		fmt.Fprintln(out, RenderConditional(DimStyle, "Run \"chatrelay setup\" and restart or edit the env file."))
		return withExitCode(ExitConfigError, errNoCredential)
	}
	return nil
}
