// Package store provides durable storage of asset records with two
// interchangeable backends sharing one contract: a GORM-based SQLite
// database (pure-Go driver) and a flat CSV file.
package store

import (
	"time"

	"github.com/uevault/uevault/internal/config"
	"github.com/uevault/uevault/internal/models"
)

// Store is the common persistence contract consumed by the scrape pipeline
// and the CLI. All methods are safe for concurrent use; writes are
// serialized behind a single writer per store instance.
type Store interface {
	// Upsert inserts-or-replaces records keyed by id. Idempotent: calling
	// it twice with unchanged records leaves rows untouched. A failing row
	// is skipped and logged, it never aborts the batch.
	Upsert(records []*models.AssetRecord) error

	// ReadAll returns every record keyed by id. Malformed rows are skipped
	// and logged.
	ReadAll() (map[string]*models.AssetRecord, error)

	// GetPrior returns the stored record for id, or nil when absent.
	GetPrior(id string) (*models.AssetRecord, error)

	// Delete removes one record. Records are only ever deleted by explicit
	// user action, never by the scraper.
	Delete(id string) error

	// DeleteAll clears the store, optionally keeping manually added
	// records.
	DeleteAll(keepManuallyAdded bool) error

	// SaveLastRun persists the audit summary of a scrape or scan.
	SaveLastRun(run *models.LastRun) error

	// GetLastRun returns the most recent audit record, or nil.
	GetLastRun() (*models.LastRun, error)

	// Stats returns aggregate statistics about the store.
	Stats() (*Stats, error)

	Close() error
}

// Stats provides aggregate store statistics.
type Stats struct {
	TotalAssets   int64     `json:"total_assets"`
	Owned         int64     `json:"owned"`
	Obsolete      int64     `json:"obsolete"`
	AddedManually int64     `json:"added_manually"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Open selects the backend from the configured datasource: a .csv
// extension opens the flat-file store, anything else the SQLite database.
func Open(cfg *config.Config) (Store, error) {
	path := cfg.DatasourcePath()
	if cfg.UseCSV() {
		return OpenCSV(path)
	}
	return OpenSQLite(DefaultSQLiteConfig(path))
}
