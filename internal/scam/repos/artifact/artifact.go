// Package artifact persists serialized filters. A filter is first staged next
// to its final path, read back for verification, and only then renamed into
// place, so the final path only ever holds a verified artifact.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/multierr"

	"github.com/haukened/scam-index/internal/scam/repos/bloom"
)

const stagePattern = ".stage-*"

// Stage writes data to a temporary file in the directory of path and syncs it.
// It returns the staged file path.
func Stage(path string, data []byte) (staged string, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+stagePattern)
	if err != nil {
		return "", fmt.Errorf("create staged artifact: %w", err)
	}
	staged = f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(staged)
			staged = ""
		}
	}()

	if _, err = f.Write(data); err != nil {
		return "", multierr.Append(fmt.Errorf("write staged artifact: %w", err), f.Close())
	}
	if err = f.Sync(); err != nil {
		return "", multierr.Append(fmt.Errorf("sync staged artifact: %w", err), f.Close())
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("close staged artifact: %w", err)
	}
	if err = os.Chmod(staged, 0o644); err != nil {
		return "", fmt.Errorf("chmod staged artifact: %w", err)
	}
	return staged, nil
}

// ReadFile reads an artifact back from disk.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// Commit atomically moves a staged artifact to its final path.
func Commit(staged, path string) error {
	// On Windows, os.Rename fails if the destination exists.
	if runtime.GOOS == "windows" {
		_ = os.Remove(path)
	}
	if err := os.Rename(staged, path); err != nil {
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}

// Discard removes a staged artifact. Missing files are not an error.
func Discard(staged string) error {
	if staged == "" {
		return nil
	}
	if err := os.Remove(staged); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("discard staged artifact: %w", err)
	}
	return nil
}

// Load reads and decodes a committed filter.
func Load(path string) (*bloom.Filter, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := bloom.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return f, nil
}
