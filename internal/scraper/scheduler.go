package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/uevault/uevault/internal/config"
	"github.com/uevault/uevault/internal/fields"
	"github.com/uevault/uevault/internal/log"
	"github.com/uevault/uevault/internal/models"
	"github.com/uevault/uevault/internal/store"
)

// State is the scheduler's observable phase.
type State int32

const (
	StateIdle State = iota
	StateGatheringURLs
	StateFetching
	StateMerging
	StatePersisting
	StateDone
	StateCancelled
)

// String returns the phase name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGatheringURLs:
		return "gathering-urls"
	case StateFetching:
		return "fetching"
	case StateMerging:
		return "merging"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrOffline is returned when a scrape is requested in offline mode.
var ErrOffline = errors.New("offline mode, scraping disabled")

// ProgressFunc is called after each page completes (thread-safe).
type ProgressFunc func(completed, total int)

// ScrapeResult summarizes one scheduler run.
type ScrapeResult struct {
	Status         State
	PagesFetched   int
	PagesFailed    int
	AssetsScraped  int
	AssetsFiltered int
	AssetsMerged   int
	Attempts       int
	Errors         []error
	Duration       time.Duration
}

// Scheduler drives a full scrape: gather page URLs, fetch them through a
// bounded worker pool, normalize and merge each element against its stored
// prior, then persist the batch in one pass. A single consumer goroutine
// owns all merging and the store sees exactly one writer.
type Scheduler struct {
	cfg     *config.Config
	fetcher Fetcher
	store   store.Store
	norm    *Normalizer
	sinks   Sinks

	// OnProgress is called after each page completes (thread-safe).
	OnProgress ProgressFunc

	state     atomic.Int32
	cancelled atomic.Bool

	// jitter spreads worker start times so parallel fetches do not land as
	// one burst. Replaced in tests.
	jitter func() time.Duration
}

// NewScheduler builds a scheduler over the given fetcher and store.
func NewScheduler(cfg *config.Config, fetcher Fetcher, st store.Store, norm *Normalizer, sinks Sinks) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		fetcher: fetcher,
		store:   st,
		norm:    norm,
		sinks:   sinks,
		jitter: func() time.Duration {
			return 500*time.Millisecond + time.Duration(rand.Int63n(int64(time.Second)))
		},
	}
}

// State returns the current phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Cancel requests a cooperative stop. In-flight page fetches finish but
// their results are discarded and nothing is persisted.
func (s *Scheduler) Cancel() {
	s.cancelled.Store(true)
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Scheduler) stopped(ctx context.Context) bool {
	return s.cancelled.Load() || ctx.Err() != nil
}

// pageResult is one fetched-and-decoded page flowing from the worker pool
// to the single consumer.
type pageResult struct {
	index    int
	url      string
	elements []RawElement
	err      error
}

// Run executes a full scrape. Timeouts retry the whole pass with a grown
// per-page timeout, oversized-page rejections shrink the page size and
// regather, and each exhausts the configured attempt budget. Once the
// budget is spent, pages that still fail are skipped like any other failed
// page: the run completes, the surviving pages' records are persisted and
// the shortfall is logged. Cancellation is not an error: the result comes
// back with Status StateCancelled and nothing persisted.
func (s *Scheduler) Run(ctx context.Context) (*ScrapeResult, error) {
	start := time.Now()
	result := &ScrapeResult{Status: StateIdle}
	defer func() { result.Duration = time.Since(start) }()

	if s.cfg.Scrape.Offline {
		return result, ErrOffline
	}

	s.cancelled.Store(false)
	s.setState(StateGatheringURLs)

	stop := s.cfg.Scrape.StopRow
	if stop <= 0 {
		total, err := s.fetcher.Total(ctx)
		if err != nil {
			return result, fmt.Errorf("query total asset count: %w", err)
		}
		stop = total
	}

	timeout := s.cfg.Marketplace.Timeout
	pageSize := s.cfg.Scrape.PageSize
	maxAttempts := s.cfg.Scrape.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var merged []*models.AssetRecord
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		urls := GatherPageURLs(s.cfg.Marketplace.BaseURL, s.cfg.Scrape.StartRow, stop,
			pageSize, s.cfg.Scrape.SortBy, s.cfg.Scrape.SortDir)
		if len(urls) == 0 {
			break
		}

		pass, retry := s.runPass(ctx, urls, timeout, attempt == maxAttempts)
		if s.stopped(ctx) {
			s.setState(StateCancelled)
			result.Status = StateCancelled
			return result, nil
		}
		if retry == nil {
			merged = pass.merged
			result.PagesFetched = pass.pagesFetched
			result.PagesFailed = pass.pagesFailed
			result.AssetsScraped = pass.scraped
			result.AssetsFiltered = pass.filtered
			result.Errors = append(result.Errors, pass.errors...)
			break
		}

		switch {
		case errors.Is(retry, ErrTimeout):
			timeout = timeout * 3 / 2
			log.Printf("page fetch timed out, retrying with timeout %s (attempt %d/%d)",
				timeout, attempt+1, maxAttempts)
		case errors.Is(retry, ErrTooManyRequested):
			pageSize = pageSize * 7 / 10
			if pageSize < 1 {
				pageSize = 1
			}
			log.Printf("page rejected as too large, retrying with page size %d (attempt %d/%d)",
				pageSize, attempt+1, maxAttempts)
		default:
			return result, retry
		}
	}

	if s.stopped(ctx) {
		s.setState(StateCancelled)
		result.Status = StateCancelled
		return result, nil
	}

	s.setState(StatePersisting)
	if err := s.store.Upsert(merged); err != nil {
		return result, fmt.Errorf("persist scraped records: %w", err)
	}
	result.AssetsMerged = len(merged)

	if stop > 0 && result.AssetsScraped+result.AssetsFiltered < stop-s.cfg.Scrape.StartRow {
		// The marketplace total drifts while a long scrape runs; a
		// shortfall is informational, not a failure.
		log.Printf("expected %d assets, processed %d",
			stop-s.cfg.Scrape.StartRow, result.AssetsScraped+result.AssetsFiltered)
	}

	if err := s.saveLastRun(models.RunModeFull, result.PagesFetched, merged); err != nil {
		log.Errorf("save last-run audit: %v", err)
	}

	s.setState(StateDone)
	result.Status = StateDone
	return result, nil
}

// passResult accumulates one fetch pass over the gathered page URLs.
type passResult struct {
	merged       []*models.AssetRecord
	pagesFetched int
	pagesFailed  int
	scraped      int
	filtered     int
	errors       []error
}

// runPass fetches every URL once through the worker pool and merges the
// decoded elements. A returned error means the whole pass must be retried
// under an adjusted policy; per-page failures of other kinds are recorded
// and skipped. On the final attempt policy failures are recorded and
// skipped too, so an always-failing page costs its own assets and nothing
// else.
func (s *Scheduler) runPass(ctx context.Context, urls []string, timeout time.Duration, final bool) (*passResult, error) {
	s.setState(StateFetching)

	workers := s.cfg.Scrape.Workers
	sequential := workers <= 0
	if sequential {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	results := make(chan pageResult, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(index int, pageURL string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results <- pageResult{index: index, url: pageURL, err: ctx.Err()}
				return
			case sem <- struct{}{}:
				defer func() { <-sem }()
			}

			if s.stopped(ctx) {
				results <- pageResult{index: index, url: pageURL, err: context.Canceled}
				return
			}

			if !sequential && workers > 1 {
				select {
				case <-time.After(s.jitter()):
				case <-ctx.Done():
					results <- pageResult{index: index, url: pageURL, err: ctx.Err()}
					return
				}
			}

			elements, err := s.fetchPage(ctx, pageURL, timeout)
			results <- pageResult{index: index, url: pageURL, elements: elements, err: err}
		}(i, u)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single consumer: all normalization, prior lookups and merging happen
	// here, so the store never sees concurrent readers from this run.
	pass := &passResult{}
	var retryErr error
	completed := 0
	for res := range results {
		completed++
		if s.OnProgress != nil {
			s.OnProgress(completed, len(urls))
		}

		if res.err != nil {
			if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
				continue
			}
			if !final && (errors.Is(res.err, ErrTimeout) || errors.Is(res.err, ErrTooManyRequested)) {
				// Remember the first policy-level failure but keep
				// draining so every worker exits cleanly.
				if retryErr == nil {
					retryErr = res.err
				}
				continue
			}
			pass.pagesFailed++
			pass.errors = append(pass.errors, fmt.Errorf("page %d: %w", res.index, res.err))
			log.Errorf("page %d (%s) failed, skipping: %v", res.index, res.url, res.err)
			continue
		}

		pass.pagesFetched++
		if s.stopped(ctx) {
			continue
		}
		s.setState(StateMerging)
		s.mergeElements(res.elements, pass)
		s.setState(StateFetching)
	}

	if retryErr != nil {
		return nil, retryErr
	}
	return pass, nil
}

// fetchPage fetches and decodes one listing page. A body that fails to
// decode gets exactly one immediate refetch before the page is given up.
func (s *Scheduler) fetchPage(ctx context.Context, pageURL string, timeout time.Duration) ([]RawElement, error) {
	var decodeErr error
	for try := 0; try < 2; try++ {
		resp, err := s.fetcher.Fetch(ctx, pageURL, timeout)
		if err != nil {
			return nil, err
		}

		var listing listingResponse
		if decodeErr = json.Unmarshal(resp.Body, &listing); decodeErr == nil {
			return listing.Data.Elements, nil
		}
		log.Errorf("decode page %s: %v, refetching once", pageURL, decodeErr)
	}
	return nil, fmt.Errorf("decode page after retry: %w", decodeErr)
}

// mergeElements normalizes raw elements and merges each against its stored
// prior, preserving user fields.
func (s *Scheduler) mergeElements(elements []RawElement, pass *passResult) {
	now := time.Now()
	for i := range elements {
		fresh, err := s.norm.Normalize(&elements[i])
		if err != nil {
			if errors.Is(err, ErrFiltered) {
				pass.filtered++
				continue
			}
			log.Errorf("skipping element: %v", err)
			continue
		}

		prior, err := s.store.GetPrior(fresh.ID)
		if err != nil {
			log.Errorf("read prior for %s: %v", fresh.ID, err)
			pass.errors = append(pass.errors, fmt.Errorf("prior %s: %w", fresh.ID, err))
			continue
		}

		pass.merged = append(pass.merged, fields.Merge(fresh, prior, nil, now))
		pass.scraped++
	}
}

// ScrapeOne refreshes a single asset through the detail endpoint. An asset
// the marketplace no longer serves is recorded in the not-found sink and,
// when a stored record exists, flagged rather than deleted.
func (s *Scheduler) ScrapeOne(ctx context.Context, id string) (*models.AssetRecord, error) {
	if s.cfg.Scrape.Offline {
		return nil, ErrOffline
	}

	resp, err := s.fetcher.Fetch(ctx, DetailURL(s.cfg.Marketplace.BaseURL, id), s.cfg.Marketplace.Timeout)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, s.markNotFound(id)
		}
		return nil, err
	}

	var detail detailResponse
	if err := json.Unmarshal(resp.Body, &detail); err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", id, err)
	}
	if detail.Data.Data.ID == "" {
		return nil, s.markNotFound(id)
	}

	fresh, err := s.norm.Normalize(&detail.Data.Data)
	if err != nil {
		return nil, err
	}

	prior, err := s.store.GetPrior(fresh.ID)
	if err != nil {
		return nil, fmt.Errorf("read prior for %s: %w", fresh.ID, err)
	}

	rec := fields.Merge(fresh, prior, nil, time.Now())
	if err := s.store.Upsert([]*models.AssetRecord{rec}); err != nil {
		return nil, fmt.Errorf("persist %s: %w", id, err)
	}

	if err := s.saveLastRun(models.RunModeSingle, 1, []*models.AssetRecord{rec}); err != nil {
		log.Errorf("save last-run audit: %v", err)
	}
	return rec, nil
}

// markNotFound records a vanished asset in the not-found sink and flags
// the stored record when one exists.
func (s *Scheduler) markNotFound(id string) error {
	s.sinks.NotFound.Write(id)

	prior, err := s.store.GetPrior(id)
	if err != nil || prior == nil {
		return fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	prior.GrabResult = models.GrabPageNotFound
	if err := s.store.Upsert([]*models.AssetRecord{prior}); err != nil {
		log.Errorf("flag %s as not found: %v", id, err)
	}
	return fmt.Errorf("asset %s: %w", id, ErrNotFound)
}

// saveLastRun persists the audit row for a completed run.
func (s *Scheduler) saveLastRun(mode string, filesCount int, records []*models.AssetRecord) error {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return s.store.SaveLastRun(&models.LastRun{
		ID:          uuid.NewString(),
		Date:        time.Now(),
		Mode:        mode,
		FilesCount:  filesCount,
		ItemsCount:  len(records),
		ScrappedIDs: strings.Join(ids, models.ListSeparator),
	})
}
