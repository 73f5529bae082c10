package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 10*time.Minute, cfg.Server.IngestTimeout)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.True(t, cfg.RateLimit.Enabled)
				assert.True(t, filepath.IsAbs(cfg.Paths.DataDir))
				assert.Equal(t, filepath.Join(cfg.Paths.DataDir, "intake"), cfg.Paths.IntakeDir)
				assert.Equal(t, filepath.Join(cfg.Paths.DataDir, "database.db"), cfg.Paths.Database)
			},
		},
		{
			name: "file overrides defaults",
			file: `
server:
  port: 9090
logging:
  level: debug
paths:
  intake_dir: /srv/uploads
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "/srv/uploads", cfg.Paths.IntakeDir)
				// untouched by the file
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
			},
		},
		{
			name: "env overrides file",
			file: "server:\n  port: 9090\n",
			env: map[string]string{
				"MES_SERVER_PORT":       "7070",
				"MES_LOGGING_LEVEL":     "warn",
				"MES_RATE_LIMIT_ENABLED": "false",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.False(t, cfg.RateLimit.Enabled)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"MES_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "ingest timeout shorter than write timeout",
			file:    "server:\n  write_timeout: 2m\n  ingest_timeout: 30s\n",
			wantErr: true,
		},
		{
			name:    "invalid logging output",
			file:    "logging:\n  output: syslog\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("MES_PATHS_BASE_DIR", dir)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(dir, "none.yaml")
			if tt.file != "" {
				path = filepath.Join(dir, "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0644))
			} else {
				require.NoError(t, os.WriteFile(path, nil, 0644))
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, dir, cfg.Paths.BaseDir)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestGetPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.BaseDir = dir
	require.NoError(t, cfg.resolvePaths())

	paths := cfg.GetPaths()
	assert.Equal(t, filepath.Join(dir, "data", "intake", SuccessDirName), paths.SuccessDir)
	assert.Equal(t, filepath.Join(dir, "data", "intake", ErrorLogName), paths.ErrorLog)
	assert.Equal(t, filepath.Join(dir, "logs", "micromes.log"), cfg.Logging.FilePath)

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.SuccessDir)
	assert.DirExists(t, paths.IntakeDir)
}
