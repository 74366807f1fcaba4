// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatrelay/internal/config"
	"github.com/jeranaias/chatrelay/internal/conversation"
	"github.com/jeranaias/chatrelay/internal/model"
	"github.com/jeranaias/chatrelay/internal/ui/chat"
)

// askOptions controls a one-shot turn.
type askOptions struct {
	question    string
	attachments []model.Attachment
	webSearch   bool
	// markdown buffers the reply and renders it with glamour at the end
	// instead of streaming raw text.
	markdown bool
	width    int
}

func newAskCommand(opts *rootOptions) *cobra.Command {
	var (
		flags     clientFlags
		files     []string
		webSearch bool
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the reply",
		Long: `Send one turn to the relay and print the streamed reply.

With no arguments the question is read from stdin. When stdout is a
terminal the reply is rendered as markdown; use --raw to stream it as is.`,
		Example: `  chatrelay ask "What is the capital of France?"
  chatrelay ask --file notes.md "Summarize this"
  git diff | chatrelay ask --raw`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}

			question := strings.Join(args, " ")
			if question == "" && !IsTTY() {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				question = string(data)
			}
			if strings.TrimSpace(question) == "" && len(files) == 0 {
				return withExitCode(ExitUsageError, fmt.Errorf("no question given"))
			}

			ask := askOptions{
				question:  question,
				webSearch: webSearch,
				markdown:  !raw && IsStdoutTTY(),
				width:     GetTerminalWidth(),
			}
			for _, path := range files {
				a, err := chat.LoadAttachment(path)
				if err != nil {
					return withExitCode(ExitUsageError, err)
				}
				ask.attachments = append(ask.attachments, a)
			}

			return runAsk(cmd.Context(), cfg, ask, cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "attach a file (repeatable)")
	cmd.Flags().BoolVar(&webSearch, "web-search", false, "enable web search")
	cmd.Flags().BoolVar(&raw, "raw", false, "stream plain text even on a terminal")
	return cmd
}

// runAsk submits one turn through a fresh session and writes the reply to out.
// Text already written is kept when the turn fails.
func runAsk(ctx context.Context, cfg *config.Config, opts askOptions, out io.Writer) error {
	var (
		mu      sync.Mutex
		printed int
	)
	emit := func(s conversation.State) {
		text, ok := s.LastAssistantText()
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		// Callbacks may arrive out of order; only ever append.
		if len(text) > printed {
			fmt.Fprint(out, text[printed:])
			printed = len(text)
		}
	}

	var sessOpts []conversation.SessionOption
	if !opts.markdown {
		sessOpts = append(sessOpts, conversation.WithOnChange(emit))
	}
	sess := newSession(cfg, sessOpts...)
	if opts.webSearch {
		sess.Update(func(s conversation.State) conversation.State { return s.ToggleWebSearch() })
	}

	turn, err := sess.Submit(ctx, opts.question, opts.attachments)
	if err != nil {
		return err
	}
	if turn == nil {
		return withExitCode(ExitUsageError, fmt.Errorf("no question given"))
	}
	turnErr := turn.Wait()

	text, _ := sess.State().LastAssistantText()
	if opts.markdown {
		if text != "" {
			fmt.Fprint(out, renderMarkdown(text, opts.width))
		}
	} else {
		emit(sess.State())
		if text != "" && !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(out)
		}
	}
	return turnErr
}

// renderMarkdown renders text for the terminal, falling back to the raw text.
func renderMarkdown(text string, width int) string {
	if width > 8 {
		width -= 4
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text + "\n"
	}
	rendered, err := r.Render(text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s markdown rendering failed: %v\n", RenderStatus("warn"), err)
		return text + "\n"
	}
	return rendered
}
