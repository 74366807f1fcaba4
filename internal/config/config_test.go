// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Upstream.DefaultModel != "gpt-4o" {
		t.Errorf("Upstream.DefaultModel = %q, want gpt-4o", cfg.Upstream.DefaultModel)
	}
	if cfg.Server.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout() = %v, want 30s", cfg.Server.RequestTimeout())
	}
	if len(cfg.Client.Models) != 2 {
		t.Errorf("len(Client.Models) = %d, want 2", len(cfg.Client.Models))
	}
	if !cfg.Env.Watch {
		t.Error("Env.Watch = false, want true by default")
	}
}

func TestLoadFromPath_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = 9000

[upstream]
base_url = "https://openrouter.ai/api/v1"
default_model = "gpt-4o-mini"

[client]
relay_url = "http://localhost:9000/"
default_model = "acme/large"

[[client.models]]
name = "Acme Large"
value = "acme/large"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want default kept", cfg.Server.Host)
	}
	if cfg.Upstream.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("Upstream.BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Client.RelayURL != "http://localhost:9000" {
		t.Errorf("Client.RelayURL = %q, want trailing slash trimmed", cfg.Client.RelayURL)
	}
	if len(cfg.Client.Models) != 1 || cfg.Client.Models[0].Name != "Acme Large" {
		t.Errorf("Client.Models = %+v", cfg.Client.Models)
	}
}

func TestLoadFromPath_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nprot = 1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Error("LoadFromPath() expected error for unknown key")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CHATRELAY_PORT", "9999")
	t.Setenv("CHATRELAY_RELAY_URL", "http://relay.internal:80")
	t.Setenv("CHATRELAY_MODEL", "deepseek/deepseek-r1")
	t.Setenv("OPENAI_BASE_URL", "https://gateway.example/v1")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Client.RelayURL != "http://relay.internal:80" {
		t.Errorf("Client.RelayURL = %q", cfg.Client.RelayURL)
	}
	if cfg.Client.DefaultModel != "deepseek/deepseek-r1" {
		t.Errorf("Client.DefaultModel = %q", cfg.Client.DefaultModel)
	}
	if cfg.Upstream.BaseURL != "https://gateway.example/v1" {
		t.Errorf("Upstream.BaseURL = %q", cfg.Upstream.BaseURL)
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.Server.Port = 8080

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", loaded.Server.Port)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad timeout", func(c *Config) { c.Client.TimeoutSecs = -1 }, "client.timeout_secs"},
		{"bad relay url", func(c *Config) { c.Client.RelayURL = "ftp://x" }, "client.relay_url"},
		{"bad base url", func(c *Config) { c.Upstream.BaseURL = "not a url" }, "upstream.base_url"},
		{"unknown default model", func(c *Config) { c.Client.DefaultModel = "x/y" }, "client.default_model"},
		{"empty key env", func(c *Config) { c.Upstream.APIKeyEnv = "" }, "upstream.api_key_env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() error = %v, want ValidateErrors", err)
			}
			found := false
			for _, v := range verrs {
				if v.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want error for %s", err, tt.field)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

// =============================================================================
// CREDENTIAL TESTS
// =============================================================================

func TestLookupAPIKey(t *testing.T) {
	u := UpstreamConfig{APIKeyEnv: "CHATRELAY_TEST_KEY", FallbackKeyEnvs: []string{"CHATRELAY_TEST_FALLBACK"}}

	t.Setenv("CHATRELAY_TEST_KEY", "")
	t.Setenv("CHATRELAY_TEST_FALLBACK", "")
	if _, ok := u.LookupAPIKey(); ok {
		t.Error("LookupAPIKey() ok = true with nothing set")
	}

	t.Setenv("CHATRELAY_TEST_KEY", PlaceholderAPIKey)
	if _, ok := u.LookupAPIKey(); ok {
		t.Error("LookupAPIKey() ok = true for placeholder")
	}
	if !u.IsPlaceholderSet() {
		t.Error("IsPlaceholderSet() = false, want true")
	}

	t.Setenv("CHATRELAY_TEST_FALLBACK", "gw-key")
	if key, ok := u.LookupAPIKey(); !ok || key != "gw-key" {
		t.Errorf("LookupAPIKey() = (%q, %v), want fallback", key, ok)
	}

	t.Setenv("CHATRELAY_TEST_KEY", "sk-real")
	if key, ok := u.LookupAPIKey(); !ok || key != "sk-real" {
		t.Errorf("LookupAPIKey() = (%q, %v), want primary", key, ok)
	}
}

// =============================================================================
// ENV FILE TESTS
// =============================================================================

func TestEnvFile_LoadRespectsShell(t *testing.T) {
	t.Setenv("CHATRELAY_ENV_SHELL", "from-shell")
	t.Cleanup(func() { os.Unsetenv("CHATRELAY_ENV_FILEONLY") })

	path := filepath.Join(t.TempDir(), ".env.local")
	data := "CHATRELAY_ENV_SHELL=from-file\nCHATRELAY_ENV_FILEONLY=value\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	env := NewEnvFile(path)
	if err := env.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := os.Getenv("CHATRELAY_ENV_SHELL"); got != "from-shell" {
		t.Errorf("shell variable = %q, want shell value kept", got)
	}
	if got := os.Getenv("CHATRELAY_ENV_FILEONLY"); got != "value" {
		t.Errorf("file variable = %q, want %q", got, "value")
	}

	// Removing the key from the file unsets it on reload.
	if err := os.WriteFile(path, []byte("# empty\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := env.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := os.LookupEnv("CHATRELAY_ENV_FILEONLY"); ok {
		t.Error("file variable still set after removal")
	}
}

func TestEnvFile_MissingFile(t *testing.T) {
	env := NewEnvFile(filepath.Join(t.TempDir(), "absent.env"))
	if err := env.Load(); err != nil {
		t.Errorf("Load() error = %v, want nil for missing file", err)
	}
}

func TestEnvFile_WatchReloads(t *testing.T) {
	t.Cleanup(func() { os.Unsetenv("CHATRELAY_ENV_WATCHED") })

	path := filepath.Join(t.TempDir(), ".env.local")
	if err := os.WriteFile(path, []byte("CHATRELAY_ENV_WATCHED=one\n"), 0600); err != nil {
		t.Fatal(err)
	}

	env := NewEnvFile(path)
	env.debounce = 10 * time.Millisecond
	if err := env.Load(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := env.Watch(ctx); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("CHATRELAY_ENV_WATCHED=two\n"), 0600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if os.Getenv("CHATRELAY_ENV_WATCHED") == "two" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("CHATRELAY_ENV_WATCHED = %q after edit, want %q", os.Getenv("CHATRELAY_ENV_WATCHED"), "two")
}

// =============================================================================
// GLOBAL TESTS
// =============================================================================

// TestConfig_ConcurrentAccess checks Global and SetGlobal under -race.
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	SetGlobal(Default())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}
