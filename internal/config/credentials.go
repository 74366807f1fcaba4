// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"strings"
)

// PlaceholderAPIKey is the value the setup command writes into .env.local.
// It is treated as an unset credential.
const PlaceholderAPIKey = "your_openai_api_key_here"

// LookupAPIKey reads the upstream credential from the process environment.
// APIKeyEnv is consulted first, then each of FallbackKeyEnvs. Empty values and
// the setup placeholder count as unset. The environment is read on every call
// so edits picked up by the .env.local watcher apply to the next request.
func (u UpstreamConfig) LookupAPIKey() (string, bool) {
	names := append([]string{u.APIKeyEnv}, u.FallbackKeyEnvs...)
	for _, name := range names {
		if name == "" {
			continue
		}
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" || value == PlaceholderAPIKey {
			continue
		}
		return value, true
	}
	return "", false
}

// IsPlaceholderSet reports whether the primary credential still holds the
// setup placeholder.
func (u UpstreamConfig) IsPlaceholderSet() bool {
	return strings.TrimSpace(os.Getenv(u.APIKeyEnv)) == PlaceholderAPIKey
}
