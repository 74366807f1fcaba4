// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package setup writes and inspects the local dotenv file that holds the
// upstream credential.
package setup

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jeranaias/chatrelay/internal/config"
	"github.com/jeranaias/chatrelay/internal/util"
)

// APIKeysURL is where OpenAI API keys are created.
const APIKeysURL = "https://platform.openai.com/api-keys"

// EnvTemplate is the content written to a new env file.
var EnvTemplate = `# OpenAI API Key
OPENAI_API_KEY=` + config.PlaceholderAPIKey + `

# Instructions:
# 1. Replace '` + config.PlaceholderAPIKey + `' with your actual OpenAI API key
# 2. Get your API key from: ` + APIKeysURL + `
# 3. Make sure you have credits in your OpenAI account
# 4. Edits are picked up by a running "chatrelay serve" without a restart

# Example:
# OPENAI_API_KEY=sk-1234567890abcdef1234567890abcdef1234567890abcdef
`

// WriteEnvFile creates path with EnvTemplate unless it already exists.
// It reports whether the file was created.
func WriteEnvFile(path string) (bool, error) {
	created, err := util.WriteFileIfAbsent(path, []byte(EnvTemplate), 0600)
	if err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if created {
		log.Printf("ENV_FILE_CREATED | path=%s", path)
	}
	return created, nil
}

// =============================================================================
// KEY STATUS
// =============================================================================

// KeyState describes the credential found in an env file.
type KeyState int

const (
	KeyFileMissing KeyState = iota
	KeyMissing
	KeyPlaceholder
	KeySet
)

// String returns a human-readable description.
func (k KeyState) String() string {
	switch k {
	case KeyFileMissing:
		return "env file not found"
	case KeyMissing:
		return "key not set"
	case KeyPlaceholder:
		return "placeholder value"
	case KeySet:
		return "configured"
	default:
		return "unknown"
	}
}

// InspectEnvFile reports the state of the credential named keyName in path.
func InspectEnvFile(path, keyName string) (KeyState, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return KeyFileMissing, nil
		}
		return KeyMissing, fmt.Errorf("failed to read %s: %w", path, err)
	}

	value := strings.TrimSpace(values[keyName])
	switch {
	case value == "":
		return KeyMissing, nil
	case value == config.PlaceholderAPIKey:
		return KeyPlaceholder, nil
	default:
		return KeySet, nil
	}
}

// SetKey stores value under keyName in path, keeping other entries. The file
// is rewritten atomically with owner-only permissions. Comments are not kept.
func SetKey(path, keyName, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("key value is empty")
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		values = map[string]string{}
	}
	values[keyName] = value

	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode env file: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(content+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Printf("ENV_KEY_SET | path=%s key=%s", path, keyName)
	return nil
}
