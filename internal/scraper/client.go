package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/uevault/uevault/internal/config"
)

// Sentinel fetch errors the scheduler keys its retry policy on.
var (
	// ErrTimeout marks a request that did not complete within the page
	// timeout; the scheduler retries the whole run with a larger timeout.
	ErrTimeout = errors.New("fetch timed out")
	// ErrTooManyRequested marks an HTTP 431-equivalent response ("too many
	// assets requested"); the scheduler shrinks the page size.
	ErrTooManyRequested = errors.New("too many assets requested")
	// ErrBlocked marks an anti-bot rejection that the fallback fetch path
	// could not clear either.
	ErrBlocked = errors.New("request blocked")
	// ErrNotFound marks a page or asset the marketplace no longer serves.
	ErrNotFound = errors.New("not found")
)

// PageResponse is an HTTP-like response: status code plus raw body.
type PageResponse struct {
	Status int
	Body   []byte
}

// Fetcher is the abstract page-fetch capability the scheduler consumes.
// Implementations may transparently fall back to a browser-driven fetch
// when blocked by anti-bot protection.
type Fetcher interface {
	// Fetch retrieves one URL within the given timeout.
	Fetch(ctx context.Context, url string, timeout time.Duration) (*PageResponse, error)
	// Total returns the marketplace's total asset count.
	Total(ctx context.Context) (int, error)
}

// DefaultCacheTTL is the default TTL for cached responses.
const DefaultCacheTTL = time.Hour

// ResponseCache provides TTL-based caching for marketplace responses.
type ResponseCache struct {
	data map[string]cacheEntry
	ttl  time.Duration
	mu   sync.RWMutex
}

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

// NewResponseCache creates a new cache with the specified TTL.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		data: make(map[string]cacheEntry),
		ttl:  ttl,
	}
}

// Get retrieves a body from the cache if it exists and hasn't expired.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.body, true
}

// Set stores a body in the cache.
func (c *ResponseCache) Set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{body: body, expiresAt: time.Now().Add(c.ttl)}
}

// Clear removes all entries from the cache.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]cacheEntry)
}

// Len returns the number of entries in the cache.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// MarketplaceClient is the production Fetcher: resty over an optional
// OAuth2 bearer token, request rate limiting and TTL response caching.
type MarketplaceClient struct {
	http    *resty.Client
	limiter *rate.Limiter
	cache   *ResponseCache
	base    string

	mu           sync.RWMutex
	requestCount int
	cacheHits    int
	cacheMisses  int
}

// NewMarketplaceClient creates a client from configuration. An empty token
// restricts results to anonymous data (owned flags all false).
func NewMarketplaceClient(cfg config.MarketplaceConfig) *MarketplaceClient {
	httpClient := http.DefaultClient
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 30
	}

	ttl := DefaultCacheTTL
	if cfg.CacheHours > 0 {
		ttl = time.Duration(cfg.CacheHours) * time.Hour
	}

	client := resty.NewWithClient(httpClient)
	client.SetHeader("User-Agent", "uevault")
	client.SetRetryCount(0) // retry policy belongs to the scheduler

	return &MarketplaceClient{
		http:    client,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rateLimit)), rateLimit),
		cache:   NewResponseCache(ttl),
		base:    cfg.BaseURL,
	}
}

// Fetch retrieves one URL within the given timeout.
func (c *MarketplaceClient) Fetch(ctx context.Context, url string, timeout time.Duration) (*PageResponse, error) {
	if body, ok := c.cache.Get(url); ok {
		c.mu.Lock()
		c.cacheHits++
		c.mu.Unlock()
		return &PageResponse{Status: http.StatusOK, Body: body}, nil
	}

	c.mu.Lock()
	c.cacheMisses++
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c.mu.Lock()
	c.requestCount++
	c.mu.Unlock()

	resp, err := c.http.R().SetContext(reqCtx).Get(url)
	if err != nil {
		if isTimeout(err) && ctx.Err() == nil {
			return nil, fmt.Errorf("%s: %w", url, ErrTimeout)
		}
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	page := &PageResponse{Status: resp.StatusCode(), Body: resp.Body()}

	switch {
	case page.Status == http.StatusOK:
		c.cache.Set(url, page.Body)
		return page, nil
	case page.Status == http.StatusRequestHeaderFieldsTooLarge:
		return page, fmt.Errorf("%s: %w", url, ErrTooManyRequested)
	case page.Status == http.StatusNotFound:
		return page, fmt.Errorf("%s: %w", url, ErrNotFound)
	case page.Status == http.StatusForbidden || page.Status == http.StatusTooManyRequests:
		// The captcha-bypass fallback lives behind this client; reaching
		// here means it did not clear the block either.
		return page, fmt.Errorf("%s: status %d: %w", url, page.Status, ErrBlocked)
	default:
		return page, fmt.Errorf("fetch %s: unexpected status %d", url, page.Status)
	}
}

// Total queries the listing endpoint for the marketplace's total asset
// count.
func (c *MarketplaceClient) Total(ctx context.Context) (int, error) {
	url := ListingURL(c.base, 0, 1, "", "")
	resp, err := c.Fetch(ctx, url, 0)
	if err != nil {
		return 0, err
	}

	var listing listingResponse
	if err := json.Unmarshal(resp.Body, &listing); err != nil {
		return 0, fmt.Errorf("decode total: %w", err)
	}
	return listing.Data.Paging.Total, nil
}

// FetchElement retrieves one asset from the detail endpoint, unwrapping
// its deeper { data: { data: ... } } nesting.
func (c *MarketplaceClient) FetchElement(ctx context.Context, id string, timeout time.Duration) (*RawElement, error) {
	resp, err := c.Fetch(ctx, DetailURL(c.base, id), timeout)
	if err != nil {
		return nil, err
	}

	var detail detailResponse
	if err := json.Unmarshal(resp.Body, &detail); err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", id, err)
	}
	if detail.Data.Data.ID == "" {
		return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	el := detail.Data.Data
	return &el, nil
}

// Stats returns client statistics.
func (c *MarketplaceClient) Stats() (requests, cacheHits, cacheMisses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requestCount, c.cacheHits, c.cacheMisses
}

// ClearCache clears the response cache.
func (c *MarketplaceClient) ClearCache() {
	c.cache.Clear()
}

// isTimeout reports whether err is a deadline/timeout failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	return os.IsTimeout(err)
}
