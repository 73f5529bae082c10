package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// SuccessDirName is the intake subdirectory that receives ingested workbooks
const SuccessDirName = "success"

// ErrorLogName is the append-only ingestion error log inside the intake dir
const ErrorLogName = "error_log.csv"

// Paths contains the resolved, absolute application paths
type Paths struct {
	BaseDir      string
	DataDir      string
	IntakeDir    string
	SuccessDir   string
	ErrorLog     string
	Database     string
	LogsDir      string
	RegistryFile string
}

// resolvePaths makes every configured path absolute. The data dir and logs
// dir are relative to the base dir (working directory when unset); intake
// and database are relative to the data dir.
func (c *Config) resolvePaths() error {
	base := c.Paths.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}
	c.Paths.BaseDir = base

	c.Paths.DataDir = resolveAgainst(base, c.Paths.DataDir)
	c.Paths.LogsDir = resolveAgainst(base, c.Paths.LogsDir)
	c.Paths.IntakeDir = resolveAgainst(c.Paths.DataDir, c.Paths.IntakeDir)
	c.Paths.Database = resolveAgainst(c.Paths.DataDir, c.Paths.Database)
	if c.Paths.RegistryFile != "" {
		c.Paths.RegistryFile = resolveAgainst(base, c.Paths.RegistryFile)
	}
	if c.Logging.FilePath != "" {
		c.Logging.FilePath = resolveAgainst(c.Paths.LogsDir, c.Logging.FilePath)
	}
	return nil
}

func resolveAgainst(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// GetPaths returns the resolved paths of the configuration
func (c *Config) GetPaths() *Paths {
	return &Paths{
		BaseDir:      c.Paths.BaseDir,
		DataDir:      c.Paths.DataDir,
		IntakeDir:    c.Paths.IntakeDir,
		SuccessDir:   filepath.Join(c.Paths.IntakeDir, SuccessDirName),
		ErrorLog:     filepath.Join(c.Paths.IntakeDir, ErrorLogName),
		Database:     c.Paths.Database,
		LogsDir:      c.Paths.LogsDir,
		RegistryFile: c.Paths.RegistryFile,
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.IntakeDir,
		p.SuccessDir,
		filepath.Dir(p.Database),
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		return
	}

	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("intake", p.IntakeDir),
			slog.String("success", p.SuccessDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("files",
			slog.String("database", p.Database),
			slog.String("error_log", p.ErrorLog),
			slog.String("registry", p.RegistryFile),
		))
}

