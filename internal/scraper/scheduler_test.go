package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/uevault/uevault/internal/config"
	"github.com/uevault/uevault/internal/models"
	"github.com/uevault/uevault/internal/store"
)

// memStore is an in-memory store.Store for scheduler tests.
type memStore struct {
	mu      sync.Mutex
	records map[string]*models.AssetRecord
	runs    []*models.LastRun
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*models.AssetRecord)}
}

func (m *memStore) Upsert(records []*models.AssetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		cp := *rec
		m.records[rec.ID] = &cp
	}
	return nil
}

func (m *memStore) ReadAll() (map[string]*models.AssetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*models.AssetRecord, len(m.records))
	for id, rec := range m.records {
		cp := *rec
		out[id] = &cp
	}
	return out, nil
}

func (m *memStore) GetPrior(id string) (*models.AssetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *memStore) DeleteAll(keepManuallyAdded bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.records {
		if keepManuallyAdded && rec.AddedManually {
			continue
		}
		delete(m.records, id)
	}
	return nil
}

func (m *memStore) SaveLastRun(run *models.LastRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) GetLastRun() (*models.LastRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return nil, nil
	}
	return m.runs[len(m.runs)-1], nil
}

func (m *memStore) Stats() (*store.Stats, error) { return &store.Stats{}, nil }
func (m *memStore) Close() error                 { return nil }

// fakeFetcher serves programmable responses keyed by URL.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string][]byte
	errs    map[string]error
	once    map[string][]byte // body served on first call only
	calls   map[string]int
	total   int
	onFetch func(url string)
}

func newFakeFetcher(total int) *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[string][]byte),
		errs:  make(map[string]error),
		once:  make(map[string][]byte),
		calls: make(map[string]int),
		total: total,
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (*PageResponse, error) {
	f.mu.Lock()
	f.calls[url]++
	call := f.calls[url]
	body, hasBody := f.pages[url]
	firstBody, hasFirst := f.once[url]
	err := f.errs[url]
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if hasFirst && call == 1 {
		return &PageResponse{Status: http.StatusOK, Body: firstBody}, nil
	}
	if !hasBody {
		return nil, fmt.Errorf("fetch %s: unexpected status 500", url)
	}
	return &PageResponse{Status: http.StatusOK, Body: body}, nil
}

func (f *fakeFetcher) Total(ctx context.Context) (int, error) {
	return f.total, nil
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func listingBody(t *testing.T, elements ...RawElement) []byte {
	t.Helper()
	var resp listingResponse
	resp.Data.Paging.Total = len(elements)
	resp.Data.Elements = elements
	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func element(id, title string) RawElement {
	return RawElement{
		ID:          id,
		Title:       title,
		Categories:  []RawCategory{{Name: "environments"}},
		PriceValue:  1000,
		ReleaseInfo: []RawReleaseInfo{{AppID: id + "-app"}},
	}
}

func testConfig(stop, pageSize int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Marketplace.BaseURL = "https://api.test/assets"
	cfg.Marketplace.Timeout = time.Second
	cfg.Scrape.Workers = 2
	cfg.Scrape.PageSize = pageSize
	cfg.Scrape.StopRow = stop
	cfg.Scrape.MaxAttempts = 3
	cfg.Scrape.SortBy = ""
	cfg.Scrape.SortDir = ""
	return cfg
}

func newTestScheduler(cfg *config.Config, f Fetcher, st *memStore) *Scheduler {
	sched := NewScheduler(cfg, f, st, NewNormalizer("", "", nil, Sinks{}), Sinks{})
	sched.jitter = func() time.Duration { return 0 }
	return sched
}

func TestScheduler_Run(t *testing.T) {
	cfg := testConfig(4, 2)
	fetcher := newFakeFetcher(4)
	fetcher.pages[ListingURL(cfg.Marketplace.BaseURL, 0, 2, "", "")] =
		listingBody(t, element("a1", "Asset One"), element("a2", "Asset Two"))
	fetcher.pages[ListingURL(cfg.Marketplace.BaseURL, 2, 2, "", "")] =
		listingBody(t, element("a3", "Asset Three"), element("a4", "Asset Four"))

	st := newMemStore()
	sched := newTestScheduler(cfg, fetcher, st)

	result, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != StateDone {
		t.Errorf("Status = %v", result.Status)
	}
	if result.PagesFetched != 2 || result.AssetsScraped != 4 {
		t.Errorf("pages=%d scraped=%d", result.PagesFetched, result.AssetsScraped)
	}

	all, _ := st.ReadAll()
	if len(all) != 4 {
		t.Fatalf("store has %d records", len(all))
	}
	if all["a1"].Title != "Asset One" || all["a1"].Price != 10.0 {
		t.Errorf("a1 = %+v", all["a1"])
	}

	run, _ := st.GetLastRun()
	if run == nil || run.Mode != models.RunModeFull || run.ItemsCount != 4 {
		t.Errorf("last run = %+v", run)
	}
}

func TestScheduler_PreservesUserFieldsAcrossRun(t *testing.T) {
	cfg := testConfig(2, 2)
	fetcher := newFakeFetcher(2)
	fetcher.pages[ListingURL(cfg.Marketplace.BaseURL, 0, 2, "", "")] =
		listingBody(t, element("a1", "Asset One"))

	st := newMemStore()
	_ = st.Upsert([]*models.AssetRecord{{
		ID:      "a1",
		Title:   "Asset One",
		Price:   8.0,
		Comment: "my note",
		Stars:   5,
	}})

	sched := newTestScheduler(cfg, fetcher, st)
	if _, err := sched.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	rec, _ := st.GetPrior("a1")
	if rec.Comment != "my note" || rec.Stars != 5 {
		t.Errorf("user fields lost: %+v", rec)
	}
	if rec.Price != 10.0 {
		t.Errorf("Price = %v, want fresh 10.0", rec.Price)
	}
	if rec.OldPrice != 8.0 {
		t.Errorf("OldPrice = %v, want prior 8.0", rec.OldPrice)
	}
}

func TestScheduler_SkipsFailedPage(t *testing.T) {
	cfg := testConfig(4, 2)
	fetcher := newFakeFetcher(4)
	good := ListingURL(cfg.Marketplace.BaseURL, 0, 2, "", "")
	bad := ListingURL(cfg.Marketplace.BaseURL, 2, 2, "", "")
	fetcher.pages[good] = listingBody(t, element("a1", "Asset One"), element("a2", "Asset Two"))
	fetcher.errs[bad] = errors.New("fetch: unexpected status 500")

	st := newMemStore()
	sched := newTestScheduler(cfg, fetcher, st)

	result, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("a failed page must not abort the run: %v", err)
	}
	if result.PagesFailed != 1 || result.PagesFetched != 1 {
		t.Errorf("failed=%d fetched=%d", result.PagesFailed, result.PagesFetched)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v", result.Errors)
	}

	all, _ := st.ReadAll()
	if len(all) != 2 {
		t.Errorf("store has %d records, want the good page persisted", len(all))
	}
}

func TestScheduler_TimeoutGrowsAndRetries(t *testing.T) {
	cfg := testConfig(2, 2)
	url := ListingURL(cfg.Marketplace.BaseURL, 0, 2, "", "")

	fetcher := newFakeFetcher(2)
	fetcher.errs[url] = fmt.Errorf("%s: %w", url, ErrTimeout)

	// Clear the failure after the first pass.
	fetcher.onFetch = func(u string) {
		fetcher.mu.Lock()
		defer fetcher.mu.Unlock()
		if fetcher.calls[u] >= 1 {
			delete(fetcher.errs, u)
			fetcher.pages[url] = listingBody(t, element("a1", "Asset One"))
		}
	}

	st := newMemStore()
	sched := newTestScheduler(cfg, fetcher, st)

	result, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
	if result.AssetsScraped != 1 {
		t.Errorf("AssetsScraped = %d", result.AssetsScraped)
	}
}

func TestScheduler_PersistsDespitePersistentTimeout(t *testing.T) {
	cfg := testConfig(10, 2)
	fetcher := newFakeFetcher(10)
	for start := 0; start < 10; start += 2 {
		url := ListingURL(cfg.Marketplace.BaseURL, start, 2, "", "")
		if start == 4 || start == 8 {
			fetcher.errs[url] = fmt.Errorf("%s: %w", url, ErrTimeout)
			continue
		}
		fetcher.pages[url] = listingBody(t,
			element(fmt.Sprintf("a%d", start), "Asset"),
			element(fmt.Sprintf("a%d", start+1), "Asset"))
	}

	st := newMemStore()
	sched := newTestScheduler(cfg, fetcher, st)

	// Two pages time out on every attempt. Once the attempt budget is
	// spent the run still completes: their assets are simply missing and
	// the good pages' records are persisted.
	result, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("exhausted retries must not abort the run: %v", err)
	}
	if result.Status != StateDone {
		t.Errorf("Status = %v", result.Status)
	}
	if result.Attempts != cfg.Scrape.MaxAttempts {
		t.Errorf("Attempts = %d, want %d", result.Attempts, cfg.Scrape.MaxAttempts)
	}
	if result.PagesFailed != 2 || result.PagesFetched != 3 {
		t.Errorf("failed=%d fetched=%d", result.PagesFailed, result.PagesFetched)
	}

	all, _ := st.ReadAll()
	if len(all) != 6 {
		t.Errorf("store has %d records, want the 6 from surviving pages", len(all))
	}
	if run, _ := st.GetLastRun(); run == nil || run.ItemsCount != 6 {
		t.Errorf("last run = %+v", run)
	}
}

func TestScheduler_OversizedPageShrinksAndRegathers(t *testing.T) {
	cfg := testConfig(4, 4)

	fetcher := newFakeFetcher(4)
	bigPage := ListingURL(cfg.Marketplace.BaseURL, 0, 4, "", "")
	fetcher.errs[bigPage] = fmt.Errorf("%s: %w", bigPage, ErrTooManyRequested)
	// 4 * 7 / 10 = 2: the regathered pass asks for two 2-row pages.
	fetcher.pages[ListingURL(cfg.Marketplace.BaseURL, 0, 2, "", "")] =
		listingBody(t, element("a1", "Asset One"), element("a2", "Asset Two"))
	fetcher.pages[ListingURL(cfg.Marketplace.BaseURL, 2, 2, "", "")] =
		listingBody(t, element("a3", "Asset Three"), element("a4", "Asset Four"))

	st := newMemStore()
	sched := newTestScheduler(cfg, fetcher, st)

	result, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
	if result.AssetsScraped != 4 {
		t.Errorf("AssetsScraped = %d, want 4", result.AssetsScraped)
	}
}

func TestScheduler_DecodeRetriesOnce(t *testing.T) {
	cfg := testConfig(2, 2)
	url := ListingURL(cfg.Marketplace.BaseURL, 0, 2, "", "")

	fetcher := newFakeFetcher(2)
	fetcher.once[url] = []byte("<html>not json</html>")
	fetcher.pages[url] = listingBody(t, element("a1", "Asset One"))

	st := newMemStore()
	sched := newTestScheduler(cfg, fetcher, st)

	result, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fetcher.callCount(url) != 2 {
		t.Errorf("call count = %d, want exactly one refetch", fetcher.callCount(url))
	}
	if result.AssetsScraped != 1 {
		t.Errorf("AssetsScraped = %d", result.AssetsScraped)
	}
}

func TestScheduler_CancellationDiscardsResults(t *testing.T) {
	cfg := testConfig(4, 2)
	ctx, cancel := context.WithCancel(context.Background())

	fetcher := newFakeFetcher(4)
	fetcher.pages[ListingURL(cfg.Marketplace.BaseURL, 0, 2, "", "")] =
		listingBody(t, element("a1", "Asset One"), element("a2", "Asset Two"))
	fetcher.pages[ListingURL(cfg.Marketplace.BaseURL, 2, 2, "", "")] =
		listingBody(t, element("a3", "Asset Three"), element("a4", "Asset Four"))
	fetcher.onFetch = func(string) { cancel() }

	st := newMemStore()
	sched := newTestScheduler(cfg, fetcher, st)

	result, err := sched.Run(ctx)
	if err != nil {
		t.Fatalf("cancellation must not be an error: %v", err)
	}
	if result.Status != StateCancelled {
		t.Errorf("Status = %v, want cancelled", result.Status)
	}

	all, _ := st.ReadAll()
	if len(all) != 0 {
		t.Errorf("store has %d records, cancellation must persist nothing", len(all))
	}
	if run, _ := st.GetLastRun(); run != nil {
		t.Error("cancelled run must not record an audit row")
	}
}

func TestScheduler_Offline(t *testing.T) {
	cfg := testConfig(2, 2)
	cfg.Scrape.Offline = true

	sched := newTestScheduler(cfg, newFakeFetcher(2), newMemStore())
	if _, err := sched.Run(context.Background()); !errors.Is(err, ErrOffline) {
		t.Errorf("err = %v, want ErrOffline", err)
	}
	if _, err := sched.ScrapeOne(context.Background(), "a1"); !errors.Is(err, ErrOffline) {
		t.Errorf("ScrapeOne err = %v, want ErrOffline", err)
	}
}

func TestScheduler_ScrapeOne(t *testing.T) {
	cfg := testConfig(0, 2)
	fetcher := newFakeFetcher(0)

	var detail detailResponse
	detail.Data.Data = element("a9", "Solo Asset")
	body, _ := json.Marshal(detail)
	fetcher.pages[DetailURL(cfg.Marketplace.BaseURL, "a9")] = body

	st := newMemStore()
	_ = st.Upsert([]*models.AssetRecord{{ID: "a9", Title: "Solo Asset", Comment: "keep"}})

	sched := newTestScheduler(cfg, fetcher, st)
	rec, err := sched.ScrapeOne(context.Background(), "a9")
	if err != nil {
		t.Fatalf("ScrapeOne: %v", err)
	}
	if rec.Comment != "keep" {
		t.Errorf("Comment = %q, want preserved", rec.Comment)
	}

	run, _ := st.GetLastRun()
	if run == nil || run.Mode != models.RunModeSingle {
		t.Errorf("last run = %+v", run)
	}
}

func TestScheduler_ScrapeOneNotFound(t *testing.T) {
	cfg := testConfig(0, 2)
	fetcher := newFakeFetcher(0)
	url := DetailURL(cfg.Marketplace.BaseURL, "gone")
	fetcher.errs[url] = fmt.Errorf("%s: %w", url, ErrNotFound)

	st := newMemStore()
	_ = st.Upsert([]*models.AssetRecord{{ID: "gone", Title: "Vanished"}})

	sched := newTestScheduler(cfg, fetcher, st)
	if _, err := sched.ScrapeOne(context.Background(), "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	rec, _ := st.GetPrior("gone")
	if rec.GrabResult != models.GrabPageNotFound {
		t.Errorf("GrabResult = %q, want %q", rec.GrabResult, models.GrabPageNotFound)
	}
}
