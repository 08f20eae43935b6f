package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uevault/uevault/internal/models"
)

var (
	listCategory string
	listOwned    bool
	listFree     bool
	listObsolete bool
	listManual   bool
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List assets in the local store",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "only assets whose category contains this text")
	listCmd.Flags().BoolVar(&listOwned, "owned", false, "only owned assets")
	listCmd.Flags().BoolVar(&listFree, "free", false, "only free assets not yet owned")
	listCmd.Flags().BoolVar(&listObsolete, "obsolete", false, "only assets flagged obsolete")
	listCmd.Flags().BoolVar(&listManual, "manual", false, "only manually added assets")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "stop after this many assets (0 = all)")
}

func runList(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return trackCLIError("list", err)
	}
	defer func() { _ = st.Close() }()

	all, err := st.ReadAll()
	if err != nil {
		return trackCLIError("list", err)
	}

	records := make([]*models.AssetRecord, 0, len(all))
	for _, rec := range all {
		if keepInList(rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return strings.ToLower(records[i].Title) < strings.ToLower(records[j].Title)
	})

	if listLimit > 0 && len(records) > listLimit {
		records = records[:listLimit]
	}

	if len(records) == 0 {
		fmt.Println("No assets match.")
		return nil
	}

	for _, rec := range records {
		fmt.Println(listLine(rec))
	}
	fmt.Printf("\n%d assets\n", len(records))
	return nil
}

func keepInList(rec *models.AssetRecord) bool {
	if listCategory != "" && !strings.Contains(strings.ToLower(rec.Category), strings.ToLower(listCategory)) {
		return false
	}
	if listOwned && !rec.Owned {
		return false
	}
	if listFree && !rec.IsFreeAndNotOwned() {
		return false
	}
	if listObsolete && !rec.Obsolete {
		return false
	}
	if listManual && !rec.AddedManually {
		return false
	}
	return true
}

// listLine renders one asset as a single scannable line.
func listLine(rec *models.AssetRecord) string {
	var flags []string
	if rec.Owned {
		flags = append(flags, "owned")
	}
	if rec.Obsolete {
		flags = append(flags, "obsolete")
	}
	if rec.AddedManually {
		flags = append(flags, "manual")
	}
	if rec.MustBuy {
		flags = append(flags, "must-buy")
	}

	line := fmt.Sprintf("%-40.40s  %-20.20s  %8.2f", rec.Title, rec.Category, rec.Price)
	if len(flags) > 0 {
		line += "  [" + strings.Join(flags, ",") + "]"
	}
	return line
}
