// Package utils contains utility types for logging and filesystem path
// management used throughout SysScope.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths resolves and manages filesystem locations used by SysScope.
type Paths struct {
	RootPath string `json:"root_path"`
}

// NewPaths constructs Paths rooted at the specified directory.
func NewPaths(rootPath string) *Paths {
	return &Paths{RootPath: rootPath}
}

// LogsDir returns the logs directory.
func (p *Paths) LogsDir() string {
	return filepath.Join(p.RootPath, "logs")
}

// DataDir returns the directory holding the metrics database.
func (p *Paths) DataDir() string {
	return filepath.Join(p.RootPath, "data")
}

// LogFile returns the main SysScope log file path.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogsDir(), "sysscope.log")
}

// DatabaseFile returns the default SQLite database path.
func (p *Paths) DatabaseFile() string {
	return filepath.Join(p.DataDir(), "system_health.db")
}

// DeployRoot creates the directory structure (idempotent).
func (p *Paths) DeployRoot(logger *Logger) error {
	for _, dir := range []struct{ path, label string }{
		{p.RootPath, "root"},
		{p.LogsDir(), "logs"},
		{p.DataDir(), "data"},
	} {
		if err := os.MkdirAll(dir.path, 0o755); err != nil {
			return fmt.Errorf("create %s path %s: %w", dir.label, dir.path, err)
		}
		if logger != nil {
			logger.Write(fmt.Sprintf("Using %s path: %s", dir.label, dir.path))
		}
	}
	return nil
}
