package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/natefinch/atomic"
)

// unsafeKeyChars matches characters that may not appear in a filename.
var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// FileTier stores blobs as JSON files under a local directory. It is the
// always-available fallback tier used in development and whenever the
// remote tier is unreachable.
type FileTier struct {
	dir string
}

// NewFileTier creates a filesystem tier rooted at dir, creating it if needed.
func NewFileTier(dir string) (*FileTier, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileTier{dir: dir}, nil
}

func (t *FileTier) Name() string { return "file" }

// Path returns the on-disk location for a key. Exposed so callers can watch
// the file for out-of-band changes.
func (t *FileTier) Path(key string) string {
	safe := unsafeKeyChars.ReplaceAllString(key, "_")
	return filepath.Join(t.dir, safe+".json")
}

func (t *FileTier) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(t.Path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	return data, nil
}

// Set writes atomically so a crash mid-write never leaves a torn blob for
// the next Load to trip over.
func (t *FileTier) Set(_ context.Context, key string, data []byte) error {
	if err := atomic.WriteFile(t.Path(key), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}
