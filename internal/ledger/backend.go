package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
)

// Backend stores the serialized ledger document. Load returns (nil, nil)
// when no document has been written yet. Save replaces the whole document.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// DefaultFileMode is the mode of a newly created ledger file.
const DefaultFileMode fs.FileMode = 0o644

// FileBackend keeps the document in a single local file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for the file at path. The file and its
// parent directories are created on first Save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the location of the backing file.
func (b *FileBackend) Path() string {
	return b.path
}

// Load implements Backend.
func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	return data, nil
}

// Save implements Backend. The document is written to a temporary file in
// the same directory and renamed over the old one. An existing file keeps
// its permissions; a new one is created with DefaultFileMode.
func (b *FileBackend) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	perm := DefaultFileMode
	if info, err := os.Stat(b.path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := atomicwriter.WriteFile(b.path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", b.path, err)
	}
	return nil
}

var _ Backend = (*FileBackend)(nil)
