// Package installer manages locally installed marketplace assets: copying
// asset folders into Unreal project Content trees, scanning the configured
// vault directories, and keeping each record's installed-folder union in
// sync with what is actually on disk.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/uevault/uevault/internal/config"
	"github.com/uevault/uevault/internal/log"
	"github.com/uevault/uevault/internal/manifest"
	"github.com/uevault/uevault/internal/models"
	"github.com/uevault/uevault/internal/store"
)

// Installer installs and uninstalls asset folders.
type Installer struct {
	store store.Store
	cfg   *config.Config
}

// New creates a new installer.
func New(st store.Store, cfg *config.Config) *Installer {
	return &Installer{store: st, cfg: cfg}
}

// Install copies an asset folder into a project's Content tree and records
// the location on the asset. The copy is cooperative: cancelling the
// context stops mid-tree and removes the partial copy.
func (i *Installer) Install(ctx context.Context, assetID, sourceDir, projectDir string) (string, error) {
	rec, err := i.lookup(assetID)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%s: %w", sourceDir, ErrSourceMissing)
	}

	contentDir := filepath.Join(projectDir, "Content")
	if info, err := os.Stat(contentDir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%s: %w", projectDir, ErrNotAProject)
	}

	dest := filepath.Join(contentDir, filepath.Base(sourceDir))
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%s: %w", dest, ErrAlreadyInstalled)
	}

	if err := copyDir(ctx, sourceDir, dest); err != nil {
		_ = os.RemoveAll(dest)
		return "", fmt.Errorf("copy asset folder: %w", err)
	}

	rec.AddInstalledFolders(dest)
	if err := i.store.Upsert([]*models.AssetRecord{rec}); err != nil {
		return "", fmt.Errorf("record install location: %w", err)
	}

	i.recordInManifest(contentDir, filepath.Base(dest), rec.ID)
	log.Printf("installed %s to %s", rec.Title, dest)
	return dest, nil
}

// Uninstall drops one install location from the asset's record and
// optionally removes the folder from disk.
func (i *Installer) Uninstall(ctx context.Context, assetID, folder string, removeFiles bool) error {
	rec, err := i.lookup(assetID)
	if err != nil {
		return err
	}

	installed := false
	for _, f := range rec.InstalledFolderList() {
		if f == folder {
			installed = true
			break
		}
	}
	if !installed {
		return fmt.Errorf("%s: %w", folder, ErrNotInstalled)
	}

	if removeFiles {
		if err := os.RemoveAll(folder); err != nil {
			return fmt.Errorf("remove %s: %w", folder, err)
		}
	}

	rec.RemoveInstalledFolder(folder)
	if err := i.store.Upsert([]*models.AssetRecord{rec}); err != nil {
		return fmt.Errorf("record uninstall: %w", err)
	}

	i.dropFromManifest(filepath.Dir(folder), filepath.Base(folder))
	log.Printf("uninstalled %s from %s", rec.Title, folder)
	return nil
}

// lookup resolves an asset by primary id, then by marketplace asset id.
func (i *Installer) lookup(assetID string) (*models.AssetRecord, error) {
	rec, err := i.store.GetPrior(assetID)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", assetID, err)
	}
	if rec != nil {
		return rec, nil
	}

	all, err := i.store.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read assets: %w", err)
	}
	for _, r := range all {
		if r.AssetID == assetID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", assetID, ErrAssetNotFound)
}

// recordInManifest adds the folder to the directory's manifest. Manifest
// failures are logged, they never fail an otherwise complete install.
func (i *Installer) recordInManifest(dir, folder, assetID string) {
	mf, err := manifest.Read(dir)
	if err != nil {
		log.Errorf("read manifest in %s: %v", dir, err)
		return
	}
	if mf == nil {
		mf = manifest.New()
	}
	mf.Assets[folder] = assetID
	if err := manifest.Write(dir, mf); err != nil {
		log.Errorf("write manifest in %s: %v", dir, err)
	}
}

func (i *Installer) dropFromManifest(dir, folder string) {
	mf, err := manifest.Read(dir)
	if err != nil || mf == nil {
		return
	}
	delete(mf.Assets, folder)
	if err := manifest.Write(dir, mf); err != nil {
		log.Errorf("write manifest in %s: %v", dir, err)
	}
}

// copyDir recursively copies src into dst, checking the context between
// files.
func copyDir(ctx context.Context, src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
