package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uevault/uevault/internal/installer"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan install directories for asset folders",
	Long: `Walk the configured install directories (UEVAULT_INSTALL_DIRS) and
reconcile them into the store.

Folders listed in a directory's uevault.json manifest are attached to
their marketplace record; unknown folders become manually added records
whose origin is the directory they were found in.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return trackCLIError("scan", err)
	}
	defer func() { _ = st.Close() }()

	if len(cfg.Vault.InstallDirs) == 0 {
		return trackCLIError("scan", fmt.Errorf("no install directories configured, set UEVAULT_INSTALL_DIRS"))
	}

	inst := installer.New(st, cfg)
	result, err := inst.Scan(cmd.Context())
	if err != nil {
		return trackCLIError("scan", err)
	}

	telemetryClient.TrackVaultScanned(result.DirsScanned, result.FoldersSeen,
		result.RecordsCreated, result.RecordsUpdated)

	fmt.Printf("Scanned %d directories, %d asset folders: %d records updated, %d created\n",
		result.DirsScanned, result.FoldersSeen, result.RecordsUpdated, result.RecordsCreated)
	for _, scanErr := range result.Errors {
		fmt.Printf("  warning: %v\n", scanErr)
	}
	return nil
}
