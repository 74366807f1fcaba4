// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteFile replaces path with data. The content is written to a temp
// file in the same directory, synced, and renamed over the target, so readers
// see either the old file or the complete new one.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tempPath, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// WriteFileIfAbsent creates path with data unless it already exists.
// It reports whether the file was created. The final step is a hard link, which
// fails instead of overwriting when another writer created the file first.
func WriteFileIfAbsent(path string, data []byte, perm os.FileMode) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	tempPath, err := writeTemp(path, data, perm)
	if err != nil {
		return false, err
	}
	defer os.Remove(tempPath)

	if err := os.Link(tempPath, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return true, nil
}

// writeTemp writes data to a synced temp file next to path and returns its name.
func writeTemp(path string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create parent directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync data to disk: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		return "", fmt.Errorf("failed to set file permissions: %w", err)
	}

	success = true
	return tempPath, nil
}
