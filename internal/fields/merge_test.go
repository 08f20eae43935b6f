package fields

import (
	"testing"
	"time"

	"github.com/uevault/uevault/internal/models"
)

func freshRecord() *models.AssetRecord {
	return &models.AssetRecord{
		ID:       "abc",
		AssetID:  "abc-app",
		Title:    "Forest Pack",
		Category: "environments",
		Price:    24.99,
		Origin:   models.OriginMarketplace,
	}
}

func TestMerge_PreservesUserFields(t *testing.T) {
	now := time.Now()
	prior := &models.AssetRecord{
		ID:          "abc",
		Title:       "Forest Pack",
		Price:       19.99,
		Comment:     "great trees",
		Stars:       4,
		MustBuy:     true,
		TestResult:  "works in 5.3",
		Alternative: "Other Forest",
		Origin:      models.OriginMarketplace,
	}

	out := Merge(freshRecord(), prior, nil, now)

	if out.Comment != "great trees" {
		t.Errorf("Comment = %q, want preserved", out.Comment)
	}
	if out.Stars != 4 {
		t.Errorf("Stars = %d, want 4", out.Stars)
	}
	if !out.MustBuy {
		t.Error("MustBuy not preserved")
	}
	if out.TestResult != "works in 5.3" {
		t.Errorf("TestResult = %q", out.TestResult)
	}
	if out.Alternative != "Other Forest" {
		t.Errorf("Alternative = %q", out.Alternative)
	}
	// Fresh scrape data still wins for normal fields.
	if out.Price != 24.99 {
		t.Errorf("Price = %v, want fresh 24.99", out.Price)
	}
}

func TestMerge_OldPriceCarry(t *testing.T) {
	now := time.Now()

	prior := &models.AssetRecord{ID: "abc", Price: 19.99}
	out := Merge(freshRecord(), prior, nil, now)
	if out.OldPrice != 19.99 {
		t.Errorf("OldPrice = %v, want prior price 19.99", out.OldPrice)
	}

	// No prior price: the previous old price survives.
	prior = &models.AssetRecord{ID: "abc", OldPrice: 14.99}
	out = Merge(freshRecord(), prior, nil, now)
	if out.OldPrice != 14.99 {
		t.Errorf("OldPrice = %v, want carried 14.99", out.OldPrice)
	}
}

func TestMerge_DateAddedStable(t *testing.T) {
	now := time.Now()
	added := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)

	prior := &models.AssetRecord{ID: "abc", DateAddedInDB: added}
	out := Merge(freshRecord(), prior, nil, now)
	if !out.DateAddedInDB.Equal(added) {
		t.Errorf("DateAddedInDB = %v, want original %v", out.DateAddedInDB, added)
	}

	// First sighting stamps now.
	out = Merge(freshRecord(), nil, nil, now)
	if !out.DateAddedInDB.Equal(now) {
		t.Errorf("DateAddedInDB = %v, want %v", out.DateAddedInDB, now)
	}
}

func TestMerge_FolderUnion(t *testing.T) {
	fresh := freshRecord()
	fresh.InstalledFolders = "c:/proj2/Content/Forest"
	prior := &models.AssetRecord{ID: "abc", InstalledFolders: "c:/proj1/Content/Forest"}

	out := Merge(fresh, prior, nil, time.Now())
	want := "c:/proj1/Content/Forest,c:/proj2/Content/Forest"
	if out.InstalledFolders != want {
		t.Errorf("InstalledFolders = %q, want %q", out.InstalledFolders, want)
	}

	// The union never shrinks: an empty fresh set keeps the prior folders.
	fresh = freshRecord()
	out = Merge(fresh, prior, nil, time.Now())
	if out.InstalledFolders != "c:/proj1/Content/Forest" {
		t.Errorf("InstalledFolders = %q, want prior kept", out.InstalledFolders)
	}
}

func TestMerge_MarketplaceOriginReleasesCategory(t *testing.T) {
	fresh := freshRecord()
	fresh.Category = "environments"
	fresh.AssetURL = "https://example.test/new"

	prior := &models.AssetRecord{
		ID:            "abc",
		Category:      "my custom shelf",
		AssetURL:      "https://example.test/old",
		AddedManually: true,
		Origin:        models.OriginMarketplace,
	}

	out := Merge(fresh, prior, nil, time.Now())
	if out.Category != "environments" {
		t.Errorf("Category = %q, marketplace records must take the scraped category", out.Category)
	}
	if out.AssetURL != "https://example.test/new" {
		t.Errorf("AssetURL = %q, want fresh url", out.AssetURL)
	}
	if out.AddedManually {
		t.Error("AddedManually must reset for marketplace records")
	}
}

func TestMerge_LocalOriginKeepsCategory(t *testing.T) {
	prior := &models.AssetRecord{
		ID:            "abc",
		Category:      "Local",
		Origin:        "d:/vault",
		AddedManually: true,
	}

	out := Merge(freshRecord(), prior, nil, time.Now())
	if out.Category != "Local" {
		t.Errorf("Category = %q, want preserved for local-origin record", out.Category)
	}
	if !out.AddedManually {
		t.Error("AddedManually must survive for local-origin record")
	}
	if out.Origin != "d:/vault" {
		t.Errorf("Origin = %q, want preserved", out.Origin)
	}
}

func TestMerge_ForcedWins(t *testing.T) {
	prior := &models.AssetRecord{ID: "abc", Comment: "keep me", Stars: 5}

	out := Merge(freshRecord(), prior, Forced{
		"comment":  "forced over both",
		"obsolete": true,
	}, time.Now())

	if out.Comment != "forced over both" {
		t.Errorf("Comment = %q, forced value must win", out.Comment)
	}
	if out.Stars != 5 {
		t.Errorf("Stars = %d, unforced user field must stay preserved", out.Stars)
	}
	if !out.Obsolete {
		t.Error("forced obsolete not applied")
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	fresh := freshRecord()
	prior := &models.AssetRecord{ID: "abc", Comment: "note", Price: 19.99}

	_ = Merge(fresh, prior, Forced{"comment": "other"}, time.Now())

	if fresh.Comment != "" {
		t.Error("fresh record was mutated")
	}
	if prior.Comment != "note" || prior.Price != 19.99 {
		t.Error("prior record was mutated")
	}
}
