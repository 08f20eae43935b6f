package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uevault/uevault/internal/installer"
)

var uninstallDeleteFiles bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <asset-id> <folder>",
	Short: "Drop an install location from an asset",
	Long: `Remove one install location from an asset's record.

The folder itself is left on disk unless --delete-files is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallDeleteFiles, "delete-files", false, "also remove the folder from disk")
}

func runUninstall(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return trackCLIError("uninstall", err)
	}
	defer func() { _ = st.Close() }()

	rec, err := findAsset(st, args[0])
	if err != nil {
		return trackCLIError("uninstall", err)
	}

	inst := installer.New(st, cfg)
	if err := inst.Uninstall(cmd.Context(), args[0], args[1], uninstallDeleteFiles); err != nil {
		return trackCLIError("uninstall", err)
	}

	telemetryClient.TrackAssetUninstalled(rec.Category, uninstallDeleteFiles)
	fmt.Printf("Uninstalled %s from %s\n", rec.Title, args[1])
	return nil
}
