package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/uevault/uevault/internal/config"
	"github.com/uevault/uevault/internal/fields"
	"github.com/uevault/uevault/internal/log"
	"github.com/uevault/uevault/internal/manifest"
	"github.com/uevault/uevault/internal/models"
)

// ScanResult summarizes one vault scan.
type ScanResult struct {
	DirsScanned    int
	FoldersSeen    int
	RecordsUpdated int
	RecordsCreated int
	Errors         []error
	Duration       time.Duration
}

// Scan walks the configured install directories and reconciles what is on
// disk into the store: folders named in a manifest union their location
// onto the matching record, unknown folders become manually added records
// whose origin is the directory they were found in.
func (i *Installer) Scan(ctx context.Context) (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{}
	defer func() { result.Duration = time.Since(start) }()

	all, err := i.store.ReadAll()
	if err != nil {
		return result, fmt.Errorf("read store: %w", err)
	}
	byTitle := make(map[string]*models.AssetRecord, len(all))
	for _, rec := range all {
		byTitle[rec.Title] = rec
	}

	var changed []*models.AssetRecord
	now := time.Now()

	for _, dir := range i.cfg.Vault.InstallDirs {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("scan %s: %w", dir, err))
			log.Errorf("scan %s: %v", dir, err)
			continue
		}
		result.DirsScanned++

		mf, err := manifest.Read(dir)
		if err != nil {
			result.Errors = append(result.Errors, err)
			mf = nil
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			result.FoldersSeen++
			folder := filepath.Join(dir, entry.Name())

			if mf != nil {
				if assetID, ok := mf.Assets[entry.Name()]; ok {
					rec, err := i.store.GetPrior(assetID)
					if err != nil {
						result.Errors = append(result.Errors, fmt.Errorf("read %s: %w", assetID, err))
						continue
					}
					if rec != nil {
						rec.AddInstalledFolders(folder)
						changed = append(changed, rec)
						result.RecordsUpdated++
						continue
					}
				}
			}

			if rec, ok := byTitle[entry.Name()]; ok {
				rec.AddInstalledFolders(folder)
				changed = append(changed, rec)
				result.RecordsUpdated++
				continue
			}

			changed = append(changed, i.manualRecord(entry.Name(), dir, folder, now))
			result.RecordsCreated++
		}
	}

	if err := i.store.Upsert(changed); err != nil {
		return result, fmt.Errorf("persist scan results: %w", err)
	}

	if err := i.store.SaveLastRun(&models.LastRun{
		ID:         uuid.NewString(),
		Date:       now,
		Mode:       models.RunModeScan,
		FilesCount: result.FoldersSeen,
		ItemsCount: len(changed),
	}); err != nil {
		log.Errorf("save last-run audit: %v", err)
	}

	return result, nil
}

// manualRecord builds a record for a folder the marketplace knows nothing
// about. Origin carries the directory it was found in so a later scrape
// cannot mistake it for marketplace data.
func (i *Installer) manualRecord(name, dir, folder string, now time.Time) *models.AssetRecord {
	fresh := &models.AssetRecord{
		ID:      uuid.NewString(),
		AssetID: name,
		Title:   name,
	}
	fresh.AddInstalledFolders(folder)
	return fields.Merge(fresh, nil, fields.Forced{
		"origin":         dir,
		"added_manually": true,
		"category":       "Local",
	}, now)
}

// Index is a point-in-time snapshot of the vault, answering the local
// lookups the scrape pipeline and the CLI need without re-walking disk per
// asset.
type Index struct {
	folders map[string][]string // asset id -> install locations
	sizes   map[string]int64    // folder name -> bytes on disk
}

// BuildIndex walks the configured install directories once.
func BuildIndex(cfg *config.Config) (*Index, error) {
	ix := &Index{
		folders: make(map[string][]string),
		sizes:   make(map[string]int64),
	}

	for _, dir := range cfg.Vault.InstallDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Errorf("index %s: %v", dir, err)
			continue
		}

		mf, err := manifest.Read(dir)
		if err != nil {
			log.Errorf("index manifest in %s: %v", dir, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			folder := filepath.Join(dir, entry.Name())
			ix.sizes[entry.Name()] = dirSize(folder)

			if mf != nil {
				if assetID, ok := mf.Assets[entry.Name()]; ok {
					ix.folders[assetID] = append(ix.folders[assetID], folder)
				}
			}
		}
	}
	return ix, nil
}

// InstalledFolders returns the folders the asset is installed in.
func (ix *Index) InstalledFolders(assetID string) []string {
	return ix.folders[assetID]
}

// AssetSize returns the on-disk size of the named asset folder, or 0 when
// the folder is unknown.
func (ix *Index) AssetSize(folderName string) int64 {
	return ix.sizes[folderName]
}

// dirSize sums regular-file sizes under dir. Unreadable entries count as
// zero.
func dirSize(dir string) int64 {
	var total int64
	_ = filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}
