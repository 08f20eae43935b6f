package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uevault/uevault/internal/installer"
)

var installCmd = &cobra.Command{
	Use:   "install <asset-id> <source-dir> <project-dir>",
	Short: "Copy an asset folder into a project's Content tree",
	Long: `Copy a downloaded asset folder into an Unreal project and record the
install location on the asset.

<source-dir> is the downloaded asset folder, <project-dir> the project
root (the directory containing Content/).`,
	Args: cobra.ExactArgs(3),
	RunE: runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return trackCLIError("install", err)
	}
	defer func() { _ = st.Close() }()

	inst := installer.New(st, cfg)
	dest, err := inst.Install(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return trackCLIError("install", err)
	}

	rec, err := findAsset(st, args[0])
	if err == nil {
		telemetryClient.TrackAssetInstalled(rec.Category, rec.Obsolete)
	}

	fmt.Printf("Installed to %s\n", dest)
	return nil
}
