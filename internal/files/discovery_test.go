package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindExcelFiles(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		expected []string
	}{
		{
			name:     "only Excel files",
			files:    []string{"report1.xlsx", "report2.xls", "report3.XLSX"},
			expected: []string{"report1.xlsx", "report2.xls", "report3.XLSX"},
		},
		{
			name:     "mixed file types",
			files:    []string{"report.xlsx", "data.csv", "error_log.csv", "sheet.xls"},
			expected: []string{"report.xlsx", "sheet.xls"},
		},
		{
			name:     "lock files skipped",
			files:    []string{"~$report.xlsx", "report.xlsx"},
			expected: []string{"report.xlsx"},
		},
		{
			name:     "empty directory",
			files:    []string{},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			base := time.Now().Add(-time.Hour)
			for i, name := range tt.files {
				path := filepath.Join(dir, name)
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				mod := base.Add(time.Duration(i) * time.Minute)
				require.NoError(t, os.Chtimes(path, mod, mod))
			}

			files, err := NewDiscovery(dir).FindExcelFiles(".")
			require.NoError(t, err)

			var names []string
			for _, f := range files {
				names = append(names, f.Name)
				assert.Equal(t, filepath.Join(dir, f.Name), f.Path)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestFindExcelFilesOldestFirst(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	for name, age := range map[string]time.Duration{
		"newest.xlsx": time.Minute,
		"oldest.xlsx": time.Hour,
		"middle.xlsx": 10 * time.Minute,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		require.NoError(t, os.Chtimes(path, now.Add(-age), now.Add(-age)))
	}

	files, err := NewDiscovery("").FindExcelFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "oldest.xlsx", files[0].Name)
	assert.Equal(t, "middle.xlsx", files[1].Name)
	assert.Equal(t, "newest.xlsx", files[2].Name)
}

func TestFindExcelFilesSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "success"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "success", "done.xlsx"), []byte("x"), 0644))

	files, err := NewDiscovery(dir).FindExcelFiles(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFindExcelFilesMissingDirectory(t *testing.T) {
	_, err := NewDiscovery("").FindExcelFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
