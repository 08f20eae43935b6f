// Package cli provides the command-line interface for uevault.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/uevault/uevault/internal/config"
	"github.com/uevault/uevault/internal/models"
	"github.com/uevault/uevault/internal/store"
	"github.com/uevault/uevault/internal/telemetry"
	"github.com/uevault/uevault/pkg/version"
)

var telemetryClient telemetry.Client

var commandStartTime time.Time

var rootCmd = &cobra.Command{
	Use:   "uevault",
	Short: "Unreal Engine Marketplace asset management",
	Long: `Unreal Engine Marketplace asset management

Scrapes marketplace listings into a local database (SQLite or CSV),
preserves your comments, ratings and install notes across re-scrapes,
and tracks which asset folders are installed where.

Telemetry:
  Telemetry is enabled by default, always anonymous, and will never track
  personal information, asset comments, or IP addresses.

  It will only be used to improve uevault.

  Opt-out with:
  	UEVAULT_TELEMETRY_TRACKING_ENABLED=false`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commandStartTime = time.Now()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() != "uevault" {
			durationMs := time.Since(commandStartTime).Milliseconds()
			hasFlags := cmd.Flags().NFlag() > 0
			telemetryClient.TrackCLICommandExecuted(cmd.Name(), hasFlags, durationMs)
		}
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(uninstallCmd)
}

// Execute runs the CLI with fang enhancements.
func Execute(ctx context.Context, tc telemetry.Client) error {
	if tc == nil {
		tc = telemetry.New()
	}
	telemetryClient = tc

	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Short()),
		fang.WithCommit(version.Commit),
	)

	if rootCmd.CalledAs() != "" && rootCmd.CalledAs() != "uevault" {
		durationMs := time.Since(commandStartTime).Milliseconds()
		telemetryClient.TrackAppExited(durationMs, 1)
	}

	return err
}

// openStore loads configuration and opens the configured backend. The
// caller owns the returned store.
func openStore() (*config.Config, store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

// findAsset resolves an asset by primary id, then by marketplace asset id.
func findAsset(st store.Store, id string) (*models.AssetRecord, error) {
	rec, err := st.GetPrior(id)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", id, err)
	}
	if rec != nil {
		return rec, nil
	}

	all, err := st.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read assets: %w", err)
	}
	for _, r := range all {
		if r.AssetID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("asset '%s' not found", id)
}

// trackCLIError wraps an error with telemetry tracking.
// Call this before returning errors from CLI commands.
func trackCLIError(cmdName string, err error) error {
	if err == nil {
		return nil
	}
	errorType := classifyError(err)
	telemetryClient.TrackCLIError(cmdName, errorType)
	return err
}

// classifyError determines the error type for telemetry.
func classifyError(err error) string {
	errStr := err.Error()
	switch {
	case containsAny(errStr, "config", "configuration"):
		return "config_error"
	case containsAny(errStr, "database", "datasource"):
		return "store_error"
	case containsAny(errStr, "network", "timeout", "connection", "blocked"):
		return "network_error"
	case containsAny(errStr, "permission", "access denied"):
		return "permission_error"
	case containsAny(errStr, "not found", "does not exist"):
		return "not_found_error"
	case containsAny(errStr, "invalid", "parse", "format"):
		return "validation_error"
	default:
		return "unknown_error"
	}
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
