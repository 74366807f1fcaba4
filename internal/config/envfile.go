// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

// =============================================================================
// ENV FILE
// =============================================================================

// DefaultEnvDebounce coalesces bursts of editor writes into one reload.
const DefaultEnvDebounce = 200 * time.Millisecond

// EnvFile loads variables from a dotenv file into the process environment.
//
// Variables already present in the environment when the EnvFile is created
// win over the file, and are never touched by reloads. Variables that came
// from the file are updated or unset as the file changes.
type EnvFile struct {
	path     string
	debounce time.Duration

	mu     sync.Mutex
	shell  map[string]bool   // Keys set before the file was first read
	loaded map[string]string // Keys this EnvFile has set
}

// NewEnvFile creates an EnvFile for path, snapshotting the current environment.
func NewEnvFile(path string) *EnvFile {
	shell := make(map[string]bool)
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				shell[kv[:i]] = true
				break
			}
		}
	}
	return &EnvFile{
		path:     path,
		debounce: DefaultEnvDebounce,
		shell:    shell,
		loaded:   make(map[string]string),
	}
}

// Path returns the file path.
func (e *EnvFile) Path() string {
	return e.path
}

// Load reads the file and applies it to the environment. A missing file is
// not an error; it unsets anything a previous load had set.
func (e *EnvFile) Load() error {
	values, err := godotenv.Read(e.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", e.path, err)
		}
		values = map[string]string{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for key := range e.loaded {
		if _, still := values[key]; !still {
			os.Unsetenv(key)
			delete(e.loaded, key)
		}
	}

	applied := 0
	for key, value := range values {
		if e.shell[key] {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
		e.loaded[key] = value
		applied++
	}

	log.Printf("ENV_LOADED | file=%s applied=%d", e.path, applied)
	return nil
}

// Watch reloads the file whenever it changes until ctx is cancelled.
// The parent directory is watched so editors that replace the file on save
// are handled.
func (e *EnvFile) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	absPath, err := filepath.Abs(e.path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to resolve %s: %w", e.path, err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	go e.processEvents(ctx, watcher, absPath)
	return nil
}

// processEvents runs the watch loop, reloading after a quiet period.
func (e *EnvFile) processEvents(ctx context.Context, watcher *fsnotify.Watcher, absPath string) {
	defer watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(e.debounce)
			} else {
				timer.Reset(e.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := e.Load(); err != nil {
				log.Printf("ENV_RELOAD_FAILED | file=%s error=%v", e.path, err)
				continue
			}
			log.Printf("ENV_RELOADED | file=%s", e.path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ENV_WATCH_ERROR | file=%s error=%v", e.path, err)
		}
	}
}
