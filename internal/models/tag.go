package models

// Tag is one marketplace tag. Tags are denormalized into AssetRecord.Tags
// as comma-joined text; this table is the relational lookup behind them.
type Tag struct {
	ID   string `gorm:"primaryKey;size:64" json:"id"`
	Name string `gorm:"size:128;index" json:"name"`
}

// TableName specifies the table name for GORM.
func (Tag) TableName() string {
	return "tags"
}

// Rating mirrors the marketplace review aggregate for one asset.
// Column names match the legacy schema exactly.
type Rating struct {
	ID            string  `gorm:"primaryKey;size:64;column:id" json:"id"`
	AverageRating float64 `gorm:"column:averageRating" json:"averageRating"`
	Total         int     `gorm:"column:total" json:"total"`
}

// TableName specifies the table name for GORM.
func (Rating) TableName() string {
	return "ratings"
}
