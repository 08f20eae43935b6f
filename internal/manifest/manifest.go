// Package manifest reads and writes the per-directory asset manifest that
// maps installed asset folders back to their marketplace ids. The vault
// scanner uses it to recognize known assets without a network round trip.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	// FileName is the manifest file name.
	FileName = "uevault.json"

	// CurrentVersion is the current manifest format version.
	CurrentVersion = 1
)

// ManifestFile is the JSON structure of uevault.json.
type ManifestFile struct {
	Version int               `json:"version"`
	Assets  map[string]string `json:"assets"` // folder name -> asset id
}

// Read reads a manifest from the given directory.
// Returns nil, nil if the file does not exist.
func Read(dir string) (*ManifestFile, error) {
	p := Path(dir)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var mf ManifestFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if mf.Assets == nil {
		mf.Assets = make(map[string]string)
	}

	return &mf, nil
}

// Write writes a manifest to the given directory using atomic file operations.
func Write(dir string, mf *ManifestFile) error {
	if mf.Version == 0 {
		mf.Version = CurrentVersion
	}
	if mf.Assets == nil {
		mf.Assets = make(map[string]string)
	}

	data, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	data = append(data, '\n')

	p := Path(dir)

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	// Atomic write: temp file + rename
	tmpPath := p + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, p); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename manifest: %w", err)
	}

	return nil
}

// Path returns the full path to uevault.json in the given directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// New creates a new empty manifest.
func New() *ManifestFile {
	return &ManifestFile{
		Version: CurrentVersion,
		Assets:  make(map[string]string),
	}
}

// AssetCount returns the number of assets in the manifest.
func (mf *ManifestFile) AssetCount() int {
	return len(mf.Assets)
}

// SortedFolders returns asset folder names in alphabetical order.
func (mf *ManifestFile) SortedFolders() []string {
	folders := make([]string, 0, len(mf.Assets))
	for folder := range mf.Assets {
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	return folders
}
