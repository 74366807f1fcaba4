// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package setup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"

	"github.com/jeranaias/chatrelay/internal/config"
)

func TestWriteEnvFile_CreatesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.local")

	created, err := WriteEnvFile(path)
	if err != nil || !created {
		t.Fatalf("WriteEnvFile() = %v, %v; want created", created, err)
	}

	values, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("written file does not parse: %v", err)
	}
	if values["OPENAI_API_KEY"] != config.PlaceholderAPIKey {
		t.Errorf("OPENAI_API_KEY = %q, want placeholder", values["OPENAI_API_KEY"])
	}

	info, _ := os.Stat(path)
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("perm = %o, want 0600", perm)
	}

	if err := os.WriteFile(path, []byte("OPENAI_API_KEY=sk-real\n"), 0600); err != nil {
		t.Fatal(err)
	}
	created, err = WriteEnvFile(path)
	if err != nil || created {
		t.Errorf("second WriteEnvFile() = %v, %v; want not created", created, err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "sk-real") {
		t.Error("existing file was overwritten")
	}
}

func TestInspectEnvFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content *string
		want    KeyState
	}{
		{"no file", nil, KeyFileMissing},
		{"empty file", strPtr(""), KeyMissing},
		{"placeholder", strPtr(EnvTemplate), KeyPlaceholder},
		{"set", strPtr("OPENAI_API_KEY=sk-abc\n"), KeySet},
		{"other key only", strPtr("AI_GATEWAY_API_KEY=gw\n"), KeyMissing},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".env")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0600); err != nil {
					t.Fatal(err)
				}
			}
			got, err := InspectEnvFile(path, "OPENAI_API_KEY")
			if err != nil {
				t.Fatalf("case %d: InspectEnvFile() error = %v", i, err)
			}
			if got != tt.want {
				t.Errorf("InspectEnvFile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.local")
	if err := os.WriteFile(path, []byte("OTHER=keep\nOPENAI_API_KEY="+config.PlaceholderAPIKey+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := SetKey(path, "OPENAI_API_KEY", "  sk-new  "); err != nil {
		t.Fatalf("SetKey() error = %v", err)
	}

	values, err := godotenv.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if values["OPENAI_API_KEY"] != "sk-new" {
		t.Errorf("OPENAI_API_KEY = %q, want sk-new", values["OPENAI_API_KEY"])
	}
	if values["OTHER"] != "keep" {
		t.Errorf("OTHER = %q, want keep", values["OTHER"])
	}
	if state, _ := InspectEnvFile(path, "OPENAI_API_KEY"); state != KeySet {
		t.Errorf("state = %v, want configured", state)
	}

	if err := SetKey(path, "OPENAI_API_KEY", " "); err == nil {
		t.Error("expected error for empty value")
	}
}

func TestSetKey_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.env")
	if err := SetKey(path, "OPENAI_API_KEY", "sk-x"); err != nil {
		t.Fatalf("SetKey() error = %v", err)
	}
	if state, _ := InspectEnvFile(path, "OPENAI_API_KEY"); state != KeySet {
		t.Errorf("state = %v, want configured", state)
	}
}

func strPtr(s string) *string { return &s }
