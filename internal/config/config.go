// Package config handles application configuration management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Config holds all application configuration. It is passed by pointer into
// the components that need it; there is no process-wide singleton.
type Config struct {
	// Base directory for all uevault data (~/.uevault)
	BaseDir string

	// Datasource is the store file. A .csv extension selects the flat-file
	// backend, anything else the SQLite backend. Empty means the default
	// database under BaseDir.
	Datasource string

	Marketplace MarketplaceConfig
	Scrape      ScrapeConfig
	Vault       VaultConfig
}

// MarketplaceConfig holds the listing-endpoint client settings.
type MarketplaceConfig struct {
	// BaseURL of the marketplace API.
	BaseURL string
	// Token is an optional bearer token for authenticated calls (owned
	// assets). The login flow that obtains it lives outside this tool.
	Token string
	// Timeout per page request.
	Timeout time.Duration
	// RateLimit is the request budget per minute.
	RateLimit int
	// CacheHours is the TTL for cached responses.
	CacheHours int
}

// ScrapeConfig holds scheduler settings.
type ScrapeConfig struct {
	// Workers is the fetch pool size. 0 disables parallelism and pages are
	// fetched strictly sequentially.
	Workers int
	// PageSize is the number of assets requested per page.
	PageSize int
	// StartRow/StopRow bound the scan. StopRow 0 means "through the end".
	StartRow int
	StopRow  int
	// MaxAttempts bounds full-scheduler retries on timeouts.
	MaxAttempts int
	SortBy      string
	SortDir     string
	// CategoryFilter drops elements whose category does not contain this
	// substring (case-insensitive). Empty keeps everything.
	CategoryFilter string
	// EngineVersion is the minimum supported engine version; assets whose
	// declared versions are all below it are flagged obsolete. Empty
	// disables the check.
	EngineVersion string
	// Offline skips all network access.
	Offline bool
}

// VaultConfig holds local-content settings.
type VaultConfig struct {
	// InstallDirs are scanned for locally installed asset folders.
	InstallDirs []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if dir := os.Getenv("UEVAULT_BASE_DIR"); dir != "" {
		cfg.BaseDir = dir
	}
	if ds := os.Getenv("UEVAULT_DATASOURCE"); ds != "" {
		cfg.Datasource = ds
	}
	if token := os.Getenv("EPIC_TOKEN"); token != "" {
		cfg.Marketplace.Token = token
	}
	if url := os.Getenv("UEVAULT_MARKETPLACE_URL"); url != "" {
		cfg.Marketplace.BaseURL = url
	}
	if v := os.Getenv("UEVAULT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Scrape.Workers = n
		}
	}
	if v := os.Getenv("UEVAULT_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scrape.PageSize = n
		}
	}
	if v := os.Getenv("UEVAULT_CATEGORY"); v != "" {
		cfg.Scrape.CategoryFilter = v
	}
	if v := os.Getenv("UEVAULT_ENGINE_VERSION"); v != "" {
		cfg.Scrape.EngineVersion = v
	}
	if v := os.Getenv("UEVAULT_OFFLINE"); v == "1" || strings.EqualFold(v, "true") {
		cfg.Scrape.Offline = true
	}
	if v := os.Getenv("UEVAULT_INSTALL_DIRS"); v != "" {
		var dirs []string
		for _, d := range strings.Split(v, string(os.PathListSeparator)) {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		cfg.Vault.InstallDirs = dirs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with. These are
// the only errors allowed to be fatal at construction time.
func (c *Config) Validate() error {
	if c.DatasourcePath() == "" {
		return fmt.Errorf("config: datasource filename is empty")
	}
	if c.Scrape.EngineVersion != "" {
		if _, err := semver.NewVersion(c.Scrape.EngineVersion); err != nil {
			return fmt.Errorf("config: invalid engine version threshold %q: %w", c.Scrape.EngineVersion, err)
		}
	}
	if c.Scrape.PageSize <= 0 {
		return fmt.Errorf("config: page size must be positive")
	}
	return nil
}

// DatasourcePath resolves the store file path.
func (c *Config) DatasourcePath() string {
	if c.Datasource != "" {
		return c.Datasource
	}
	if c.BaseDir == "" {
		return ""
	}
	return filepath.Join(c.BaseDir, "uevault.db")
}

// UseCSV reports whether the flat-file backend is selected.
func (c *Config) UseCSV() bool {
	return strings.EqualFold(filepath.Ext(c.DatasourcePath()), ".csv")
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	dirs := []string{
		cfg.BaseDir,
		filepath.Join(cfg.BaseDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
