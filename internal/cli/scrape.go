package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/uevault/uevault/internal/config"
	"github.com/uevault/uevault/internal/installer"
	"github.com/uevault/uevault/internal/log"
	"github.com/uevault/uevault/internal/models"
	"github.com/uevault/uevault/internal/scraper"
)

var (
	scrapeSingle        string
	scrapeStart         int
	scrapeStop          int
	scrapeWorkers       int
	scrapePageSize      int
	scrapeCategory      string
	scrapeEngineVersion string
	scrapeOffline       bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the marketplace into the local store",
	Long: `Fetch marketplace listings page by page, merge them against the
local store and persist the result.

User-owned fields (comment, stars, must-buy, test result, installed
folders, alternative) survive the re-scrape. With --id a single asset is
refreshed through the detail endpoint instead of a full listing pass.`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeSingle, "id", "", "refresh a single asset by id")
	scrapeCmd.Flags().IntVar(&scrapeStart, "start", 0, "first listing row to fetch")
	scrapeCmd.Flags().IntVar(&scrapeStop, "stop", 0, "last listing row to fetch (0 = through the end)")
	scrapeCmd.Flags().IntVar(&scrapeWorkers, "workers", 0, "fetch pool size (0 = configured default)")
	scrapeCmd.Flags().IntVar(&scrapePageSize, "page-size", 0, "assets per page (0 = configured default)")
	scrapeCmd.Flags().StringVar(&scrapeCategory, "category", "", "keep only assets whose category contains this text")
	scrapeCmd.Flags().StringVar(&scrapeEngineVersion, "engine-version", "", "flag assets below this engine version as obsolete")
	scrapeCmd.Flags().BoolVar(&scrapeOffline, "offline", false, "fail instead of touching the network")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return trackCLIError("scrape", err)
	}
	defer func() { _ = st.Close() }()

	applyScrapeFlags(cfg)

	paths := config.GetPaths(cfg)
	sinks, closeSinks := openSinks(paths)
	defer closeSinks()

	index, err := installer.BuildIndex(cfg)
	if err != nil {
		return trackCLIError("scrape", err)
	}

	client := scraper.NewMarketplaceClient(cfg.Marketplace)
	norm := scraper.NewNormalizer(cfg.Scrape.CategoryFilter, cfg.Scrape.EngineVersion, index, sinks)
	sched := scraper.NewScheduler(cfg, client, st, norm, sinks)
	sched.OnProgress = func(completed, total int) {
		fmt.Printf("\rFetched %d/%d pages", completed, total)
		if completed == total {
			fmt.Println()
		}
	}

	if scrapeSingle != "" {
		rec, err := sched.ScrapeOne(cmd.Context(), scrapeSingle)
		if err != nil {
			return trackCLIError("scrape", err)
		}
		telemetryClient.TrackScrapeCompleted(models.RunModeSingle, 1, 1, 0, 0, 0)
		fmt.Printf("Refreshed %s (%s)\n", rec.Title, rec.ID)
		return nil
	}

	result, err := sched.Run(cmd.Context())
	if err != nil {
		return trackCLIError("scrape", err)
	}

	if result.Status == scraper.StateCancelled {
		fmt.Println("Scrape cancelled, nothing persisted.")
		return nil
	}

	telemetryClient.TrackScrapeCompleted(models.RunModeFull,
		result.PagesFetched, result.AssetsScraped, result.AssetsFiltered,
		result.PagesFailed, result.Duration.Milliseconds())

	fmt.Printf("Scraped %d assets (%d filtered out) from %d pages in %s\n",
		result.AssetsScraped, result.AssetsFiltered, result.PagesFetched,
		result.Duration.Round(time.Second))
	if result.PagesFailed > 0 {
		fmt.Printf("%d pages failed and were skipped; see the log for details.\n", result.PagesFailed)
	}
	return nil
}

// applyScrapeFlags overlays command-line flags on the loaded configuration.
func applyScrapeFlags(cfg *config.Config) {
	if scrapeStart > 0 {
		cfg.Scrape.StartRow = scrapeStart
	}
	if scrapeStop > 0 {
		cfg.Scrape.StopRow = scrapeStop
	}
	if scrapeWorkers > 0 {
		cfg.Scrape.Workers = scrapeWorkers
	}
	if scrapePageSize > 0 {
		cfg.Scrape.PageSize = scrapePageSize
	}
	if scrapeCategory != "" {
		cfg.Scrape.CategoryFilter = scrapeCategory
	}
	if scrapeEngineVersion != "" {
		cfg.Scrape.EngineVersion = scrapeEngineVersion
	}
	if scrapeOffline {
		cfg.Scrape.Offline = true
	}
}

// openSinks opens the ignored/not-found reject files. A sink that cannot
// be opened degrades to nil, which writes nowhere.
func openSinks(paths config.Paths) (scraper.Sinks, func()) {
	ignored, err := log.NewSink(paths.IgnoredAssets)
	if err != nil {
		log.Errorf("open ignored-assets sink: %v", err)
	}
	notFound, err := log.NewSink(paths.NotFoundAssets)
	if err != nil {
		log.Errorf("open not-found-assets sink: %v", err)
	}
	sinks := scraper.Sinks{Ignored: ignored, NotFound: notFound}
	return sinks, func() {
		if ignored != nil {
			_ = ignored.Close()
		}
		if notFound != nil {
			_ = notFound.Close()
		}
	}
}
