package telemetry

import (
	"runtime"

	"github.com/uevault/uevault/pkg/version"
)

// Event names.
const (
	EventAppStarted         = "app_started"
	EventAppExited          = "app_exited"
	EventCLICommandExecuted = "cli_command_executed"
	EventCLIErrorOccurred   = "cli_error_occurred"
	EventScrapeCompleted    = "scrape_completed"
	EventVaultScanned       = "vault_scanned"
	EventAssetInstalled     = "asset_installed"
	EventAssetUninstalled   = "asset_uninstalled"
	EventAssetEdited        = "asset_edited"
	EventAssetRemoved       = "asset_removed"
)

// Version is set at compile time via ldflags.
var Version string

// baseProperties returns common properties for all events.
func baseProperties() map[string]interface{} {
	return map[string]interface{}{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"version":    Version,
		"prerelease": version.IsPrerelease(),
		"dev_build":  version.IsDevBuild(),
	}
}

// TrackAppStarted tracks application startup.
func (c *posthogClient) TrackAppStarted(backend string, assetCount int64) {
	props := baseProperties()
	props["backend"] = backend
	props["asset_count"] = assetCount
	c.Track(EventAppStarted, props)
}

// TrackAppExited tracks application exit.
func (c *posthogClient) TrackAppExited(sessionDurationMs int64, commandsRun int) {
	props := baseProperties()
	props["session_duration_ms"] = sessionDurationMs
	props["commands_run"] = commandsRun
	c.Track(EventAppExited, props)
}

// TrackCLICommandExecuted tracks CLI command execution.
func (c *posthogClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
	props := baseProperties()
	props["command_name"] = commandName
	props["has_flags"] = hasFlags
	props["execution_duration_ms"] = durationMs
	c.Track(EventCLICommandExecuted, props)
}

// TrackCLIError tracks CLI errors by type, never by message.
func (c *posthogClient) TrackCLIError(commandName, errorType string) {
	props := baseProperties()
	props["command_name"] = commandName
	props["error_type"] = errorType
	c.Track(EventCLIErrorOccurred, props)
}

// TrackScrapeCompleted tracks a finished scrape run.
func (c *posthogClient) TrackScrapeCompleted(mode string, pages, scraped, filtered, failed int, durationMs int64) {
	props := baseProperties()
	props["mode"] = mode
	props["pages"] = pages
	props["assets_scraped"] = scraped
	props["assets_filtered"] = filtered
	props["pages_failed"] = failed
	props["duration_ms"] = durationMs
	c.Track(EventScrapeCompleted, props)
}

// TrackVaultScanned tracks a vault scan.
func (c *posthogClient) TrackVaultScanned(dirs, folders, created, updated int) {
	props := baseProperties()
	props["dirs_scanned"] = dirs
	props["folders_seen"] = folders
	props["records_created"] = created
	props["records_updated"] = updated
	c.Track(EventVaultScanned, props)
}

// TrackAssetInstalled tracks an asset install.
func (c *posthogClient) TrackAssetInstalled(category string, obsolete bool) {
	props := baseProperties()
	props["category"] = category
	props["obsolete"] = obsolete
	c.Track(EventAssetInstalled, props)
}

// TrackAssetUninstalled tracks an asset uninstall.
func (c *posthogClient) TrackAssetUninstalled(category string, removedFiles bool) {
	props := baseProperties()
	props["category"] = category
	props["removed_files"] = removedFiles
	c.Track(EventAssetUninstalled, props)
}

// TrackAssetEdited tracks a user edit, by field name only.
func (c *posthogClient) TrackAssetEdited(fieldName string) {
	props := baseProperties()
	props["field_name"] = fieldName
	c.Track(EventAssetEdited, props)
}

// TrackAssetRemoved tracks a record deletion.
func (c *posthogClient) TrackAssetRemoved(addedManually bool) {
	props := baseProperties()
	props["added_manually"] = addedManually
	c.Track(EventAssetRemoved, props)
}

// --- noop implementations ---

func (c *noopClient) TrackAppStarted(backend string, assetCount int64)        {}
func (c *noopClient) TrackAppExited(sessionDurationMs int64, commandsRun int) {}
func (c *noopClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
}
func (c *noopClient) TrackCLIError(commandName, errorType string) {}
func (c *noopClient) TrackScrapeCompleted(mode string, pages, scraped, filtered, failed int, durationMs int64) {
}
func (c *noopClient) TrackVaultScanned(dirs, folders, created, updated int)    {}
func (c *noopClient) TrackAssetInstalled(category string, obsolete bool)       {}
func (c *noopClient) TrackAssetUninstalled(category string, removedFiles bool) {}
func (c *noopClient) TrackAssetEdited(fieldName string)                        {}
func (c *noopClient) TrackAssetRemoved(addedManually bool)                     {}
