package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var removeYes bool

var removeCmd = &cobra.Command{
	Use:   "remove <asset-id>",
	Short: "Delete an asset record from the store",
	Long: `Delete one asset record.

This only forgets the record (including your comments and ratings); it
never touches installed folders on disk. A re-scrape will bring the asset
back with empty user fields.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "skip the confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return trackCLIError("remove", err)
	}
	defer func() { _ = st.Close() }()

	rec, err := findAsset(st, args[0])
	if err != nil {
		return trackCLIError("remove", err)
	}

	if !removeYes {
		fmt.Printf("Delete '%s' and its user data? [y/N] ", rec.Title)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := st.Delete(rec.ID); err != nil {
		return trackCLIError("remove", err)
	}

	telemetryClient.TrackAssetRemoved(rec.AddedManually)
	fmt.Printf("Removed %s\n", rec.Title)
	return nil
}
