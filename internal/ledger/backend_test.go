package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_MissingFile(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "missing.json"))
	data, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFileBackend_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "companies.json")
	b := NewFileBackend(path)
	assert.Equal(t, path, b.Path())

	require.NoError(t, b.Save(ctx, []byte("first")))
	require.NoError(t, b.Save(ctx, []byte("second")))

	data, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileBackend_FileMode(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "companies.json")
	b := NewFileBackend(path)

	require.NoError(t, b.Save(ctx, []byte("{}")))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultFileMode, info.Mode().Perm())

	require.NoError(t, os.Chmod(path, 0o640))
	require.NoError(t, b.Save(ctx, []byte(`{"companies": {}}`)))
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestFileBackend_StoreKeepsMode(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "companies.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyDocument), 0o644))
	require.NoError(t, os.Chmod(path, 0o644))

	s := NewStore(NewFileBackend(path))
	require.NoError(t, s.CreateCompany(ctx, "acme", "Acme"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFileBackend_Unreadable(t *testing.T) {
	// A directory in place of the file cannot be read.
	b := NewFileBackend(t.TempDir())
	_, err := b.Load(context.Background())
	require.Error(t, err)
}

func TestFileBackend_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewFileBackend(filepath.Join(t.TempDir(), "c.json"))
	require.ErrorIs(t, b.Save(ctx, []byte("x")), context.Canceled)
	_, err := b.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
