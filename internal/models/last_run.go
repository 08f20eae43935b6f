package models

import "time"

// Scrape modes recorded in the last-run audit row.
const (
	RunModeFull   = "full"
	RunModeSingle = "single"
	RunModeScan   = "scan"
)

// LastRun is the audit record persisted after every scrape or vault scan.
// Column names (including scrapped_ids) match the legacy schema.
type LastRun struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Date        time.Time `gorm:"column:date" json:"date"`
	Mode        string    `gorm:"column:mode;size:16" json:"mode"`
	FilesCount  int       `gorm:"column:files_count" json:"files_count"`
	ItemsCount  int       `gorm:"column:items_count" json:"items_count"`
	ScrappedIDs string    `gorm:"column:scrapped_ids;type:text" json:"scrapped_ids"` // comma-joined
}

// TableName specifies the table name for GORM.
func (LastRun) TableName() string {
	return "last_run"
}
