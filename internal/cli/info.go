package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uevault/uevault/internal/installer"
	"github.com/uevault/uevault/internal/models"
)

var infoCmd = &cobra.Command{
	Use:   "info <asset-id>",
	Short: "Show detailed information about an asset",
	Long: `Display detailed information about a specific asset.

The asset can be identified by its catalog id or its marketplace asset id.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return trackCLIError("info", err)
	}
	defer func() { _ = st.Close() }()

	rec, err := findAsset(st, args[0])
	if err != nil {
		return trackCLIError("info", err)
	}

	fmt.Printf("Asset: %s\n", rec.Title)
	fmt.Printf("Id: %s\n", rec.ID)
	fmt.Printf("Asset id: %s\n", rec.AssetID)
	fmt.Printf("Category: %s\n", rec.Category)
	fmt.Printf("Author: %s\n", rec.Author)
	fmt.Printf("Price: %.2f %s", rec.Price, rec.CurrencyCode)
	if rec.Discounted && rec.DiscountPercentage > 0 {
		fmt.Printf("  (now %.2f, %d%% off)", rec.DiscountPrice, rec.DiscountPercentage)
	}
	fmt.Println()
	fmt.Printf("Owned: %v\n", rec.Owned)
	fmt.Printf("Obsolete: %v\n", rec.Obsolete)
	if rec.SupportedVersions != "" {
		fmt.Printf("Engine versions: %s\n", rec.SupportedVersions)
	}
	if rec.Review > 0 {
		fmt.Printf("Rating: %.1f (%d reviews)\n", rec.Review, rec.ReviewCount)
	}
	if rec.GrabResult != models.GrabNoError {
		fmt.Printf("Grab result: %s\n", rec.GrabResult)
	}

	if rec.Description != "" {
		fmt.Printf("\nDescription:\n  %s\n", rec.Description)
	}
	if tags := rec.TagList(); len(tags) > 0 {
		fmt.Printf("\nTags: %s\n", strings.Join(tags, ", "))
	}
	if rec.AssetURL != "" {
		fmt.Printf("\nUrl: %s\n", rec.AssetURL)
	}

	printUserFields(rec)

	if folders := rec.InstalledFolderList(); len(folders) > 0 {
		fmt.Printf("\nInstalled in:\n")
		index, err := installer.BuildIndex(cfg)
		for _, f := range folders {
			fmt.Printf("  %s", f)
			if err == nil {
				if size := index.AssetSize(folderBase(f)); size > 0 {
					fmt.Printf("  (%s)", humanBytes(size))
				}
			}
			fmt.Println()
		}
	}

	return nil
}

func printUserFields(rec *models.AssetRecord) {
	if rec.Comment == "" && rec.Stars == 0 && !rec.MustBuy && rec.TestResult == "" && rec.Alternative == "" {
		return
	}
	fmt.Println()
	if rec.Comment != "" {
		fmt.Printf("Comment: %s\n", rec.Comment)
	}
	if rec.Stars > 0 {
		fmt.Printf("Stars: %d/5\n", rec.Stars)
	}
	if rec.MustBuy {
		fmt.Println("Must buy: yes")
	}
	if rec.TestResult != "" {
		fmt.Printf("Test result: %s\n", rec.TestResult)
	}
	if rec.Alternative != "" {
		fmt.Printf("Alternative: %s\n", rec.Alternative)
	}
}

func folderBase(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
