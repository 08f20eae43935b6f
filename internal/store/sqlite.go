package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/uevault/uevault/internal/fields"
	"github.com/uevault/uevault/internal/log"
	"github.com/uevault/uevault/internal/models"
)

// SQLiteStore is the database-backed Store.
type SQLiteStore struct {
	db   *gorm.DB
	path string

	// Worker threads read priors and upsert concurrently; SQLite access is
	// serialized behind one connection and this writer mutex.
	writeMu sync.Mutex
}

// SQLiteConfig holds database configuration options.
type SQLiteConfig struct {
	Path  string
	Debug bool
}

// DefaultSQLiteConfig returns sensible defaults.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{Path: path}
}

// OpenSQLite opens the database and applies pending schema migrations.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteStore, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	logLevel := gormlogger.Silent
	if cfg.Debug {
		logLevel = gormlogger.Info
	}

	// DELETE journal mode keeps transaction handling simple with the
	// pure-Go SQLite driver.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: the schema-version pragma is per-connection and the
	// store is called from multiple worker threads.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db, path: cfg.Path}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// assetUpdateColumns are the columns rewritten on conflict. date_added_in_db
// is excluded so the first-insert timestamp survives even a caller that
// skipped the merge step.
var assetUpdateColumns = func() []string {
	var cols []string
	for _, f := range fields.Stored() {
		if f.Name == "id" || f.Name == "date_added_in_db" {
			continue
		}
		cols = append(cols, f.Name)
	}
	return cols
}()

// Upsert inserts-or-replaces records keyed by id. A row that violates a
// constraint is logged and skipped; the rest of the batch proceeds.
func (s *SQLiteStore) Upsert(records []*models.AssetRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			continue
		}
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(assetUpdateColumns),
			}).Create(rec).Error; err != nil {
				return err
			}
			return s.upsertAux(tx, rec)
		})
		if err != nil {
			log.Errorf("store: upsert %s: %v", rec.ID, err)
			continue
		}
	}
	return nil
}

// upsertAux maintains the relational tag and rating lookups behind the
// denormalized record columns.
func (s *SQLiteStore) upsertAux(tx *gorm.DB, rec *models.AssetRecord) error {
	for _, name := range rec.TagList() {
		tag := models.Tag{ID: name, Name: name}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).Create(&tag).Error; err != nil {
			return fmt.Errorf("upsert tag %s: %w", name, err)
		}
	}

	rating := models.Rating{ID: rec.ID, AverageRating: rec.Review, Total: rec.ReviewCount}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"averageRating", "total"}),
	}).Create(&rating).Error; err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}

	return nil
}

// ReadAll returns every record keyed by id.
func (s *SQLiteStore) ReadAll() (map[string]*models.AssetRecord, error) {
	var recs []models.AssetRecord
	if err := s.db.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("read assets: %w", err)
	}
	out := make(map[string]*models.AssetRecord, len(recs))
	for i := range recs {
		out[recs[i].ID] = &recs[i]
	}
	return out, nil
}

// GetPrior returns the stored record for id, or nil when absent.
func (s *SQLiteStore) GetPrior(id string) (*models.AssetRecord, error) {
	var rec models.AssetRecord
	err := s.db.First(&rec, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Delete removes one record and its rating row.
func (s *SQLiteStore) Delete(id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.AssetRecord{}, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Rating{}, "id = ?", id).Error
	})
}

// DeleteAll clears the assets table, optionally keeping manually added
// records.
func (s *SQLiteStore) DeleteAll(keepManuallyAdded bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	q := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	if keepManuallyAdded {
		return q.Where("added_manually = ?", false).Delete(&models.AssetRecord{}).Error
	}
	return q.Delete(&models.AssetRecord{}).Error
}

// SaveLastRun persists the audit summary of a scrape or scan.
func (s *SQLiteStore) SaveLastRun(run *models.LastRun) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Create(run).Error
}

// GetLastRun returns the most recent audit record, or nil.
func (s *SQLiteStore) GetLastRun() (*models.LastRun, error) {
	var run models.LastRun
	err := s.db.Order("date DESC").First(&run).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// Stats returns aggregate statistics about the database.
func (s *SQLiteStore) Stats() (*Stats, error) {
	var stats Stats

	if err := s.db.Model(&models.AssetRecord{}).Count(&stats.TotalAssets).Error; err != nil {
		return nil, fmt.Errorf("count assets: %w", err)
	}
	if err := s.db.Model(&models.AssetRecord{}).Where("owned = ?", true).Count(&stats.Owned).Error; err != nil {
		return nil, fmt.Errorf("count owned: %w", err)
	}
	if err := s.db.Model(&models.AssetRecord{}).Where("obsolete = ?", true).Count(&stats.Obsolete).Error; err != nil {
		return nil, fmt.Errorf("count obsolete: %w", err)
	}
	if err := s.db.Model(&models.AssetRecord{}).Where("added_manually = ?", true).Count(&stats.AddedManually).Error; err != nil {
		return nil, fmt.Errorf("count manual: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.FileSizeBytes = info.Size()
	}
	stats.LastUpdated = time.Now()

	return &stats, nil
}
