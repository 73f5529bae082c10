package validation

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"micromes/internal/infrastructure"
)

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "existing directory", path: dir},
		{name: "missing", path: filepath.Join(dir, "missing"), wantErr: "does not exist"},
		{name: "file instead of directory", path: file, wantErr: "is not a directory"},
	}

	v := NewFileValidator(infrastructure.NewNopLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateDirectory(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateWritableDirectory(t *testing.T) {
	v := NewFileValidator(infrastructure.NewNopLogger())
	dir := t.TempDir()

	require.NoError(t, v.ValidateWritableDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be removed")

	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	readOnly := filepath.Join(dir, "ro")
	require.NoError(t, os.Mkdir(readOnly, 0555))
	assert.ErrorContains(t, v.ValidateWritableDirectory(readOnly), "not writable")
}

func TestValidateFile(t *testing.T) {
	v := NewFileValidator(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parameters: {}"), 0644))

	assert.NoError(t, v.ValidateFile(path))
	assert.ErrorContains(t, v.ValidateFile(filepath.Join(dir, "nope.yaml")), "does not exist")
	assert.ErrorContains(t, v.ValidateFile(dir), "is a directory")
}

func TestValidateParentDirectory(t *testing.T) {
	v := NewFileValidator(nil)
	dir := t.TempDir()

	assert.NoError(t, v.ValidateParentDirectory(filepath.Join(dir, "database.db")))
	assert.Error(t, v.ValidateParentDirectory(filepath.Join(dir, "missing", "database.db")))
}
