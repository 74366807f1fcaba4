// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli wires the chatrelay subcommands onto a cobra command tree.
//
// Each subcommand is a thin adapter: it loads configuration, builds the
// relay server or the conversation client, and hands control to it.
//
// # Commands
//
//   - serve: run the relay HTTP server
//   - chat: run the terminal chat client against a relay
//   - ask: one-shot turn printed to stdout
//   - check: query the relay diagnostic endpoint and the local env file
//   - setup: create .env.local with a placeholder credential
//   - version: print build information
//
// # Key Types
//
//   - ExitError: error carrying the process exit code
//   - TTYRequiredError: returned when an interactive command has no terminal
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
package cli
