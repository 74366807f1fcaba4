// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatrelay.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/chatrelay/internal/model"
	"github.com/jeranaias/chatrelay/internal/util"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config is the main configuration structure for chatrelay.
type Config struct {
	Server   ServerConfig   `toml:"server" json:"server"`
	Upstream UpstreamConfig `toml:"upstream" json:"upstream"`
	Client   ClientConfig   `toml:"client" json:"client"`
	Env      EnvConfig      `toml:"env" json:"env"`
}

// ServerConfig configures the relay HTTP server.
type ServerConfig struct {
	// Host is the interface to bind (default 127.0.0.1)
	Host string `toml:"host" json:"host"`

	// Port is the TCP port to listen on
	Port int `toml:"port" json:"port"`

	// RequestTimeoutSecs bounds one upstream completion call
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`

	// MaxBodyBytes caps the size of a chat request body
	MaxBodyBytes int64 `toml:"max_body_bytes" json:"max_body_bytes"`

	// CORSOrigins lists browser origins allowed to call the relay
	CORSOrigins []string `toml:"cors_origins" json:"cors_origins"`
}

// UpstreamConfig configures the completion API the relay forwards to.
type UpstreamConfig struct {
	// BaseURL overrides the API endpoint (empty = api.openai.com)
	BaseURL string `toml:"base_url" json:"base_url"`

	// DefaultModel is used when the requested model has no "provider/" prefix
	DefaultModel string `toml:"default_model" json:"default_model"`

	// SystemPrompt is prepended to every conversation
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`

	// APIKeyEnv names the environment variable holding the credential
	APIKeyEnv string `toml:"api_key_env" json:"api_key_env"`

	// FallbackKeyEnvs are consulted in order when APIKeyEnv is unset
	FallbackKeyEnvs []string `toml:"fallback_key_envs" json:"fallback_key_envs"`
}

// ClientConfig configures the conversation client (chat and ask commands).
type ClientConfig struct {
	// RelayURL is the base URL of a running relay server
	RelayURL string `toml:"relay_url" json:"relay_url"`

	// TimeoutSecs bounds one turn from submission to stream end
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`

	// DefaultModel is the initially selected "provider/model-name"
	DefaultModel string `toml:"default_model" json:"default_model"`

	// Models are the entries offered by the model selector
	Models []model.ModelOption `toml:"models" json:"models"`

	// LogFile receives log output while the terminal UI owns the screen
	LogFile string `toml:"log_file" json:"log_file"`
}

// EnvConfig configures the local environment file.
type EnvConfig struct {
	// File is the dotenv file holding the credential (default .env.local)
	File string `toml:"file" json:"file"`

	// Watch reloads the file when it changes
	Watch bool `toml:"watch" json:"watch"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultPort is the default relay port.
	DefaultPort = 8787

	// DefaultTimeout bounds both the relay's upstream call and a client turn.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodyBytes caps request bodies at 1MB.
	DefaultMaxBodyBytes = 1 << 20

	// DefaultSystemPrompt is prepended to every upstream call.
	DefaultSystemPrompt = "You are a helpful assistant that can answer questions and help with tasks"

	// DefaultEnvFile is the dotenv file written by the setup command.
	DefaultEnvFile = ".env.local"
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "127.0.0.1",
			Port:               DefaultPort,
			RequestTimeoutSecs: int(DefaultTimeout / time.Second),
			MaxBodyBytes:       DefaultMaxBodyBytes,
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			},
		},
		Upstream: UpstreamConfig{
			DefaultModel:    "gpt-4o",
			SystemPrompt:    DefaultSystemPrompt,
			APIKeyEnv:       "OPENAI_API_KEY",
			FallbackKeyEnvs: []string{"AI_GATEWAY_API_KEY"},
		},
		Client: ClientConfig{
			RelayURL:     fmt.Sprintf("http://127.0.0.1:%d", DefaultPort),
			TimeoutSecs:  int(DefaultTimeout / time.Second),
			DefaultModel: "openai/gpt-4o",
			Models:       model.DefaultModelOptions(),
		},
		Env: EnvConfig{
			File:  DefaultEnvFile,
			Watch: true,
		},
	}
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RequestTimeout returns the upstream call bound as a duration.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSecs) * time.Second
}

// Timeout returns the turn bound as a duration.
func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the configuration directory (~/.chatrelay).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".chatrelay"), nil
}

// ConfigPathTOML returns the path to the default TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.chatrelay/config.toml, falling back to
// defaults when the file does not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path with full validation.
// A missing file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# chatrelay configuration file\n")
	buf.WriteString("# The upstream credential is read from the environment, not from this file.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be 1-65535, got %d", c.Server.Port),
		})
	}
	if c.Server.RequestTimeoutSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.request_timeout_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Server.RequestTimeoutSecs),
		})
	}
	if c.Server.MaxBodyBytes < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.max_body_bytes",
			Message: fmt.Sprintf("must be positive, got %d", c.Server.MaxBodyBytes),
		})
	}

	if c.Upstream.BaseURL != "" {
		if err := validateHTTPURL(c.Upstream.BaseURL); err != nil {
			errs = append(errs, ValidationError{Field: "upstream.base_url", Message: err.Error()})
		}
	}
	if c.Upstream.APIKeyEnv == "" {
		errs = append(errs, ValidationError{
			Field:   "upstream.api_key_env",
			Message: "must name an environment variable",
		})
	}

	if err := validateHTTPURL(c.Client.RelayURL); err != nil {
		errs = append(errs, ValidationError{Field: "client.relay_url", Message: err.Error()})
	}
	if c.Client.TimeoutSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "client.timeout_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Client.TimeoutSecs),
		})
	}
	for i, opt := range c.Client.Models {
		if opt.Name == "" || opt.Value == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("client.models[%d]", i),
				Message: "name and value are required",
			})
		}
	}
	if _, ok := model.FindModelOption(c.Client.Models, c.Client.DefaultModel); !ok {
		errs = append(errs, ValidationError{
			Field:   "client.default_model",
			Message: fmt.Sprintf("%q is not one of client.models", c.Client.DefaultModel),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateHTTPURL checks that raw is an absolute http(s) URL.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return nil
}

// SetDefaults fills zero-value fields with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.RequestTimeoutSecs == 0 {
		c.Server.RequestTimeoutSecs = defaults.Server.RequestTimeoutSecs
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}

	if c.Upstream.DefaultModel == "" {
		c.Upstream.DefaultModel = defaults.Upstream.DefaultModel
	}
	if c.Upstream.SystemPrompt == "" {
		c.Upstream.SystemPrompt = defaults.Upstream.SystemPrompt
	}
	if c.Upstream.APIKeyEnv == "" {
		c.Upstream.APIKeyEnv = defaults.Upstream.APIKeyEnv
	}

	if c.Client.RelayURL == "" {
		c.Client.RelayURL = defaults.Client.RelayURL
	}
	c.Client.RelayURL = strings.TrimRight(c.Client.RelayURL, "/")
	if c.Client.TimeoutSecs == 0 {
		c.Client.TimeoutSecs = defaults.Client.TimeoutSecs
	}
	if len(c.Client.Models) == 0 {
		c.Client.Models = defaults.Client.Models
	}
	if c.Client.DefaultModel == "" {
		c.Client.DefaultModel = c.Client.Models[0].Value
	}

	if c.Env.File == "" {
		c.Env.File = defaults.Env.File
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported variables:
//   - CHATRELAY_HOST, CHATRELAY_PORT: override server.host / server.port
//   - CHATRELAY_RELAY_URL: overrides client.relay_url
//   - CHATRELAY_MODEL: overrides client.default_model
//   - CHATRELAY_UPSTREAM_MODEL: overrides upstream.default_model
//   - CHATRELAY_ENV_FILE: overrides env.file
//   - OPENAI_BASE_URL: overrides upstream.base_url
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("CHATRELAY_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("CHATRELAY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if relayURL := os.Getenv("CHATRELAY_RELAY_URL"); relayURL != "" {
		c.Client.RelayURL = relayURL
	}
	if m := os.Getenv("CHATRELAY_MODEL"); m != "" {
		c.Client.DefaultModel = m
	}
	if m := os.Getenv("CHATRELAY_UPSTREAM_MODEL"); m != "" {
		c.Upstream.DefaultModel = m
	}
	if f := os.Getenv("CHATRELAY_ENV_FILE"); f != "" {
		c.Env.File = f
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		c.Upstream.BaseURL = baseURL
	}
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.SetDefaults()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
