// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatrelay/internal/cloud"
	"github.com/jeranaias/chatrelay/internal/config"
	"github.com/jeranaias/chatrelay/internal/server"
)

// ShutdownTimeout bounds graceful shutdown of in-flight streams.
const ShutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay HTTP server",
		Long: `Run the relay. POST /api/chat streams a completion as plain text,
GET /api/test reports whether the upstream credential is configured.

The credential is read from .env.local (see "chatrelay setup") or the shell
environment. Edits to .env.local apply to the next request.`,
		Example: `  chatrelay serve
  chatrelay serve --port 3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cloud.NewOpenAIFactory(cloud.WithBaseURL(cfg.Upstream.BaseURL)), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "interface to bind (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

// runServe loads the env file, starts the relay, and blocks until ctx is
// cancelled or the listener fails.
func runServe(ctx context.Context, cfg *config.Config, factory cloud.Factory, out io.Writer) error {
	env := config.NewEnvFile(cfg.Env.File)
	if err := env.Load(); err != nil {
		return withExitCode(ExitConfigError, err)
	}
	if cfg.Env.Watch {
		if err := env.Watch(ctx); err != nil {
			log.Printf("ENV_WATCH_FAILED | file=%s error=%v", env.Path(), err)
		}
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return withExitCode(ExitNetworkError, fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err))
	}

	srv := server.New(cfg, factory)
	fmt.Fprintf(out, "%s http://%s\n", RenderConditional(TitleStyle.UnsetMarginBottom(), "chatrelay listening on"), ln.Addr())
	if _, ok := cfg.Upstream.LookupAPIKey(); !ok {
		fmt.Fprintf(out, "%s %s is not set; chat requests will fail until it is (run \"chatrelay setup\")\n",
			RenderStatus("warn"), cfg.Upstream.APIKeyEnv)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	// Serve may not have registered its http.Server yet.
	ln.Close()
	<-errCh
	log.Printf("SERVER_STOPPED | addr=%s", ln.Addr())
	return nil
}
