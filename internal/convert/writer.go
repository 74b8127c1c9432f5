// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdiddy/odis2vcp/pkg/types"
)

// Writer places artifacts in one output directory. It is safe for
// concurrent use; a path may be claimed only once per Writer.
type Writer struct {
	dir       string
	overwrite bool

	mu      sync.Mutex
	claimed map[string]int
}

// NewWriter returns a Writer for dir. When overwrite is false an existing
// file at an artifact path fails the write instead of being replaced.
func NewWriter(dir string, overwrite bool) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir, overwrite: overwrite, claimed: map[string]int{}}
}

// Claim reserves the path for an artifact named name on behalf of rec.
// A second claim of the same path fails with types.ErrOutputCollision.
func (w *Writer) Claim(rec types.DatasetRecord, name string) (string, error) {
	path := filepath.Join(w.dir, name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.claimed[path]; ok {
		return "", types.NewRecordError(types.ErrOutputCollision, rec,
			fmt.Errorf("%q is already produced by record #%d", path, prev))
	}
	w.claimed[path] = rec.Index
	return path, nil
}

// Write stores data at path. The content goes to a temporary file in the
// same directory first and is renamed into place, so a failed write never
// leaves a truncated artifact behind.
func (w *Writer) Write(rec types.DatasetRecord, path string, data []byte) error {
	if err := w.write(path, data); err != nil {
		return types.NewRecordError(types.ErrOutputWrite, rec, err)
	}
	return nil
}

func (w *Writer) write(path string, data []byte) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", w.dir, err)
	}

	if !w.overwrite {
		if _, err := os.Lstat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
	}

	tmp, err := os.CreateTemp(w.dir, ".odis2vcp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting mode of %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
