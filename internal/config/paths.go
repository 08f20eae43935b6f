package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths contains commonly used file paths.
type Paths struct {
	Database       string // Default SQLite database
	Logs           string // Log directory
	IgnoredAssets  string // Append-only sink for category-filtered assets
	NotFoundAssets string // Append-only sink for assets the marketplace no longer serves
}

// GetPaths returns all commonly used paths based on config.
func GetPaths(cfg *Config) Paths {
	logDir := filepath.Join(cfg.BaseDir, "logs")
	return Paths{
		Database:       filepath.Join(cfg.BaseDir, "uevault.db"),
		Logs:           logDir,
		IgnoredAssets:  filepath.Join(logDir, "ignored_assets.log"),
		NotFoundAssets: filepath.Join(logDir, "notfound_assets.log"),
	}
}

// DefaultBaseDir returns the default base directory (~/.uevault).
func DefaultBaseDir() string {
	if xdg.Home != "" {
		return filepath.Join(xdg.Home, ".uevault")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".uevault"
	}
	return filepath.Join(home, ".uevault")
}
