package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/uevault/uevault/internal/models"
)

// SchemaVersion is the version the code expects; tracked in the database
// via PRAGMA user_version.
const SchemaVersion = 4

// migration is one additive schema step. Steps never drop data and every
// step is idempotent (guarded by table/column existence checks) so that
// re-running against an already-migrated database is a no-op.
type migration struct {
	version int
	name    string
	run     func(tx *gorm.DB) error
}

// migrations are applied strictly in increasing version order, each in its
// own transaction. The stored version is bumped only after the whole
// sequence succeeds.
var migrations = []migration{
	{1, "create core tables", createCoreTables},
	{2, "add user annotation columns", addUserColumns},
	{3, "add last_run audit table", addLastRunTable},
	{4, "add custom_attributes column", addCustomAttributesColumn},
}

func (s *SQLiteStore) migrate() error {
	current, err := s.userVersion()
	if err != nil {
		return err
	}
	if current >= SchemaVersion {
		return nil
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.db.Transaction(m.run); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}

	return s.setUserVersion(SchemaVersion)
}

func (s *SQLiteStore) userVersion() (int, error) {
	var v int
	if err := s.db.Raw("PRAGMA user_version").Scan(&v).Error; err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) setUserVersion(v int) error {
	return s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)).Error
}

// createCoreTables creates the assets table with the scrape-sourced columns
// plus the tag and rating lookups. Later versions add the remaining
// columns.
func createCoreTables(tx *gorm.DB) error {
	if !tx.Migrator().HasTable("assets") {
		createAssets := `
			CREATE TABLE assets (
				id TEXT PRIMARY KEY,
				asset_id TEXT,
				namespace TEXT,
				catalog_item_id TEXT,
				title TEXT,
				category TEXT,
				author TEXT,
				description TEXT,
				technical_details TEXT,
				long_description TEXT,
				thumbnail_url TEXT,
				tags TEXT,
				asset_slug TEXT,
				asset_url TEXT,
				price REAL DEFAULT 0,
				discount_price REAL DEFAULT 0,
				discount_percentage INTEGER DEFAULT 0,
				old_price REAL DEFAULT 0,
				currency_code TEXT,
				owned BOOLEAN DEFAULT 0,
				free BOOLEAN DEFAULT 0,
				discounted BOOLEAN DEFAULT 0,
				can_purchase BOOLEAN DEFAULT 1,
				review REAL DEFAULT 0,
				review_count INTEGER DEFAULT 0,
				status TEXT,
				is_new BOOLEAN DEFAULT 0,
				is_catalog_item BOOLEAN DEFAULT 0,
				obsolete BOOLEAN DEFAULT 0,
				grab_result TEXT DEFAULT 'NO_ERROR',
				supported_versions TEXT,
				creation_date DATETIME,
				update_date DATETIME,
				date_added_in_db DATETIME
			);
		`
		if err := tx.Exec(createAssets).Error; err != nil {
			return fmt.Errorf("create assets table: %w", err)
		}
	}

	if !tx.Migrator().HasTable("tags") {
		if err := tx.Exec(`CREATE TABLE tags (id TEXT PRIMARY KEY, name TEXT)`).Error; err != nil {
			return fmt.Errorf("create tags table: %w", err)
		}
	}

	if !tx.Migrator().HasTable("ratings") {
		if err := tx.Exec("CREATE TABLE ratings (id TEXT PRIMARY KEY, `averageRating` REAL, total INTEGER)").Error; err != nil {
			return fmt.Errorf("create ratings table: %w", err)
		}
	}

	return nil
}

// addUserColumns adds the user-owned annotation columns.
func addUserColumns(tx *gorm.DB) error {
	userColumns := []string{
		"Comment", "Stars", "MustBuy", "TestResult",
		"InstalledFolders", "Alternative", "Origin", "AddedManually",
	}
	for _, field := range userColumns {
		if tx.Migrator().HasColumn(&models.AssetRecord{}, field) {
			continue
		}
		if err := tx.Migrator().AddColumn(&models.AssetRecord{}, field); err != nil {
			return fmt.Errorf("add column %s: %w", field, err)
		}
	}
	return nil
}

// addLastRunTable adds the scrape audit table.
func addLastRunTable(tx *gorm.DB) error {
	if tx.Migrator().HasTable("last_run") {
		return nil
	}
	createLastRun := `
		CREATE TABLE last_run (
			id TEXT PRIMARY KEY,
			date DATETIME,
			mode TEXT,
			files_count INTEGER DEFAULT 0,
			items_count INTEGER DEFAULT 0,
			scrapped_ids TEXT
		);
	`
	if err := tx.Exec(createLastRun).Error; err != nil {
		return fmt.Errorf("create last_run table: %w", err)
	}
	return nil
}

// addCustomAttributesColumn adds the custom_attributes column.
func addCustomAttributesColumn(tx *gorm.DB) error {
	if tx.Migrator().HasColumn(&models.AssetRecord{}, "CustomAttributes") {
		return nil
	}
	return tx.Migrator().AddColumn(&models.AssetRecord{}, "CustomAttributes")
}
