package installer

import "errors"

var (
	// ErrAssetNotFound is returned when an asset cannot be found in the store.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrSourceMissing is returned when the asset folder to install does not exist.
	ErrSourceMissing = errors.New("asset source folder does not exist")

	// ErrNotAProject is returned when the install target has no Content directory.
	ErrNotAProject = errors.New("target is not an Unreal project (no Content directory)")

	// ErrAlreadyInstalled is returned when the asset folder already exists in the target.
	ErrAlreadyInstalled = errors.New("asset already installed at this location")

	// ErrNotInstalled is returned when uninstalling a location the record does not track.
	ErrNotInstalled = errors.New("asset not installed at this location")
)
