// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatrelay.
//
// Settings live in a TOML file with sensible defaults, environment variable
// overrides, and validation. The upstream credential itself is never stored
// in the config file: it is read from the process environment at request
// time, optionally populated from a .env.local file that is watched for edits.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - ServerConfig: Relay listener, timeouts, CORS
//   - UpstreamConfig: Completion API base URL, default model, system prompt, credential names
//   - ClientConfig: Relay URL, turn timeout, model selector entries
//   - EnvConfig: .env.local location and watch flag
//   - EnvFile: Loader and fsnotify watcher for .env.local
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CHATRELAY_*, OPENAI_BASE_URL)
//   - ~/.chatrelay/config.toml (or the path given with --config)
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Look up the credential for the current request:
//
//	key, ok := cfg.Upstream.LookupAPIKey()
package config
