package files

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.xlsx")
	dst := filepath.Join(dir, "success", "a.xlsx")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0644))

	require.NoError(t, newTestManager().MoveFile(src, dst))

	assert.NoFileExists(t, src)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestMoveFileOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.xlsx")
	dst := filepath.Join(dir, "success", "a.xlsx")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0755))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0644))
	require.NoError(t, os.WriteFile(src, []byte("new"), 0644))

	require.NoError(t, newTestManager().MoveFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestMoveFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := newTestManager().MoveFile(filepath.Join(dir, "nope.xlsx"), filepath.Join(dir, "success", "nope.xlsx"))
	assert.Error(t, err)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.xlsx")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0644))

	dst := filepath.Join(dir, "nested", "b.xlsx")
	require.NoError(t, newTestManager().CopyFile(src, dst))

	assert.FileExists(t, src)
	assert.FileExists(t, dst)
}

func TestIsWorkbook(t *testing.T) {
	assert.True(t, IsWorkbook("a.XLSX"))
	assert.True(t, IsWorkbook("a.xls"))
	assert.False(t, IsWorkbook("~$a.xlsx"))
	assert.False(t, IsWorkbook("a.csv"))
}
