package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uevault/uevault/internal/models"
)

var (
	editComment     string
	editStars       int
	editMustBuy     bool
	editTestResult  string
	editAlternative string
)

var editCmd = &cobra.Command{
	Use:   "edit <asset-id>",
	Short: "Edit user-owned fields on an asset",
	Long: `Set comment, stars, must-buy, test result or alternative on an asset.

These fields belong to you: the scraper preserves them across re-scrapes.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editComment, "comment", "", "free-form note")
	editCmd.Flags().IntVar(&editStars, "stars", 0, "personal rating, 1 to 5")
	editCmd.Flags().BoolVar(&editMustBuy, "must-buy", false, "mark as a must-buy")
	editCmd.Flags().StringVar(&editTestResult, "test-result", "", "outcome of trying the asset")
	editCmd.Flags().StringVar(&editAlternative, "alternative", "", "asset to use instead")
}

func runEdit(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return trackCLIError("edit", err)
	}
	defer func() { _ = st.Close() }()

	rec, err := findAsset(st, args[0])
	if err != nil {
		return trackCLIError("edit", err)
	}

	var edited []string
	if cmd.Flags().Changed("comment") {
		rec.Comment = editComment
		edited = append(edited, "comment")
	}
	if cmd.Flags().Changed("stars") {
		if editStars < 0 || editStars > 5 {
			return trackCLIError("edit", fmt.Errorf("invalid stars %d, must be 0 to 5", editStars))
		}
		rec.Stars = editStars
		edited = append(edited, "stars")
	}
	if cmd.Flags().Changed("must-buy") {
		rec.MustBuy = editMustBuy
		edited = append(edited, "must_buy")
	}
	if cmd.Flags().Changed("test-result") {
		rec.TestResult = editTestResult
		edited = append(edited, "test_result")
	}
	if cmd.Flags().Changed("alternative") {
		rec.Alternative = editAlternative
		edited = append(edited, "alternative")
	}

	if len(edited) == 0 {
		return trackCLIError("edit", fmt.Errorf("nothing to edit, pass at least one field flag"))
	}

	if err := st.Upsert([]*models.AssetRecord{rec}); err != nil {
		return trackCLIError("edit", err)
	}

	for _, field := range edited {
		telemetryClient.TrackAssetEdited(field)
	}
	fmt.Printf("Updated %s on %s\n", joinAnd(edited), rec.Title)
	return nil
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		out := items[0]
		for _, it := range items[1 : len(items)-1] {
			out += ", " + it
		}
		return out + " and " + items[len(items)-1]
	}
}
