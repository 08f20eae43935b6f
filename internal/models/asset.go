// Package models defines the core data structures for uevault.
package models

import (
	"sort"
	"strings"
	"time"
)

// OriginMarketplace is the canonical origin marker for records whose last
// update came from the marketplace rather than a local folder scan.
const OriginMarketplace = "Marketplace"

// ListSeparator joins list-valued attributes (tags, installed folders)
// into their stored text form.
const ListSeparator = ","

// AssetRecord is the canonical persisted entity for one marketplace asset
// or one locally scanned asset folder.
type AssetRecord struct {
	// Identity
	ID            string `gorm:"primaryKey;size:64" json:"id"` // marketplace catalog item id, stable across rescans
	AssetID       string `gorm:"size:128;index" json:"asset_id"`
	Namespace     string `gorm:"size:64" json:"namespace"`
	CatalogItemID string `gorm:"size:64" json:"catalog_item_id"`

	// Descriptive
	Title            string `gorm:"size:255;index" json:"title"`
	Category         string `gorm:"size:128;index" json:"category"`
	Author           string `gorm:"size:255;index" json:"author"`
	Description      string `gorm:"size:2000" json:"description"`
	TechnicalDetails string `gorm:"type:text" json:"technical_details"`
	LongDescription  string `gorm:"type:text" json:"long_description"`
	ThumbnailURL     string `gorm:"size:500" json:"thumbnail_url"`
	Tags             string `gorm:"type:text" json:"tags"` // comma-joined, ordered
	AssetSlug        string `gorm:"size:255" json:"asset_slug"`
	AssetURL         string `gorm:"size:500" json:"asset_url"`

	// Commercial
	Price              float64 `gorm:"default:0" json:"price"`
	DiscountPrice      float64 `gorm:"default:0" json:"discount_price"`
	DiscountPercentage int     `gorm:"default:0" json:"discount_percentage"`
	OldPrice           float64 `gorm:"default:0" json:"old_price"` // price seen on the previous scrape, not a discount
	CurrencyCode       string  `gorm:"size:8" json:"currency_code"`
	Owned              bool    `gorm:"default:false;index" json:"owned"`
	Free               bool    `gorm:"default:false" json:"free"`
	Discounted         bool    `gorm:"default:false" json:"discounted"`
	CanPurchase        bool    `gorm:"default:true" json:"can_purchase"`

	// Review
	Review      float64 `gorm:"default:0" json:"review"`
	ReviewCount int     `gorm:"default:0" json:"review_count"`

	// Lifecycle / status
	Status            string     `gorm:"size:32" json:"status"`
	IsNew             bool       `gorm:"default:false" json:"is_new"`
	IsCatalogItem     bool       `gorm:"default:false" json:"is_catalog_item"`
	Obsolete          bool       `gorm:"default:false;index" json:"obsolete"`
	GrabResult        GrabResult `gorm:"size:32;default:NO_ERROR" json:"grab_result"`
	SupportedVersions string     `gorm:"size:500" json:"supported_versions"`
	CustomAttributes  string     `gorm:"size:500" json:"custom_attributes"`

	// User-owned fields, preserved across re-scrapes unless explicitly forced
	Comment          string `gorm:"type:text" json:"comment"`
	Stars            int    `gorm:"default:0" json:"stars"` // 0-5
	MustBuy          bool   `gorm:"default:false" json:"must_buy"`
	TestResult       string `gorm:"size:500" json:"test_result"`
	InstalledFolders string `gorm:"type:text" json:"installed_folders"` // comma-joined union, never shrinks on scrape
	Alternative      string `gorm:"size:500" json:"alternative"`
	Origin           string `gorm:"size:500" json:"origin"` // OriginMarketplace or a local path
	AddedManually    bool   `gorm:"default:false" json:"added_manually"`

	// Timestamps
	CreationDate  time.Time `json:"creation_date"`
	UpdateDate    time.Time `json:"update_date"`
	DateAddedInDB time.Time `json:"date_added_in_db"` // set on first insert, never changes
}

// TableName specifies the table name for GORM.
func (AssetRecord) TableName() string {
	return "assets"
}

// TagList returns the tags as an ordered slice.
func (a *AssetRecord) TagList() []string {
	return splitList(a.Tags)
}

// SetTags stores an ordered tag list in its comma-joined text form.
func (a *AssetRecord) SetTags(tags []string) {
	a.Tags = strings.Join(tags, ListSeparator)
}

// InstalledFolderList returns the installed folders as a slice.
func (a *AssetRecord) InstalledFolderList() []string {
	return splitList(a.InstalledFolders)
}

// AddInstalledFolders merges paths into the installed-folder set.
// The result is the de-duplicated union, sorted so the stored form does
// not depend on input order.
func (a *AssetRecord) AddInstalledFolders(paths ...string) {
	a.InstalledFolders = JoinFolderUnion(a.InstalledFolderList(), paths)
}

// RemoveInstalledFolder drops one path from the installed-folder set.
// This is an explicit user action; scrapes only ever grow the set.
func (a *AssetRecord) RemoveInstalledFolder(path string) {
	var kept []string
	for _, f := range a.InstalledFolderList() {
		if f != path {
			kept = append(kept, f)
		}
	}
	a.InstalledFolders = strings.Join(kept, ListSeparator)
}

// IsFreeAndNotOwned reports whether the asset shows up in "free and not
// owned" filters. Assets with an external purchase link are excluded.
func (a *AssetRecord) IsFreeAndNotOwned() bool {
	if a.Owned || !a.Free {
		return false
	}
	return !strings.HasPrefix(a.CustomAttributes, ExternalLinkPrefix)
}

// ExternalLinkPrefix marks a BuyLink custom attribute in its stored form.
const ExternalLinkPrefix = "external_link:"

// JoinFolderUnion returns the comma-joined, sorted, de-duplicated union of
// two folder lists.
func JoinFolderUnion(existing, incoming []string) string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	var union []string
	for _, set := range [][]string{existing, incoming} {
		for _, f := range set {
			f = strings.TrimSpace(f)
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			union = append(union, f)
		}
	}
	sort.Strings(union)
	return strings.Join(union, ListSeparator)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ListSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
