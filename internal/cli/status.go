package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store statistics and the last run",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return trackCLIError("status", err)
	}
	defer func() { _ = st.Close() }()

	stats, err := st.Stats()
	if err != nil {
		return trackCLIError("status", err)
	}

	backend := "sqlite"
	if cfg.UseCSV() {
		backend = "csv"
	}

	fmt.Printf("Datasource: %s (%s)\n", cfg.DatasourcePath(), backend)
	fmt.Printf("Assets: %d\n", stats.TotalAssets)
	fmt.Printf("Owned: %d\n", stats.Owned)
	fmt.Printf("Obsolete: %d\n", stats.Obsolete)
	fmt.Printf("Added manually: %d\n", stats.AddedManually)
	fmt.Printf("File size: %s\n", humanBytes(stats.FileSizeBytes))

	run, err := st.GetLastRun()
	if err != nil {
		return trackCLIError("status", err)
	}
	if run == nil {
		fmt.Println("\nNo runs recorded yet.")
		return nil
	}

	fmt.Printf("\nLast run: %s (%s)\n", run.Date.Format("2006-01-02 15:04:05"), run.Mode)
	fmt.Printf("  Files: %d\n", run.FilesCount)
	fmt.Printf("  Items: %d\n", run.ItemsCount)
	return nil
}
