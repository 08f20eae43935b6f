package scraper

import (
	"fmt"
	"net/url"
)

// ProductURLBase prefixes the public product page built from an asset's
// url slug.
const ProductURLBase = "https://www.unrealengine.com/marketplace/en-US/product/"

// ListingURL builds one page URL of the paginated listing endpoint.
func ListingURL(base string, start, count int, sortBy, sortDir string) string {
	q := url.Values{}
	q.Set("start", fmt.Sprintf("%d", start))
	q.Set("count", fmt.Sprintf("%d", count))
	if sortBy != "" {
		q.Set("sortBy", sortBy)
	}
	if sortDir != "" {
		q.Set("sortDir", sortDir)
	}
	return base + "?" + q.Encode()
}

// DetailURL builds the single-asset endpoint URL.
func DetailURL(base, id string) string {
	return base + "/" + url.PathEscape(id)
}

// GatherPageURLs computes the page URLs covering rows [start, stop), i.e.
// ceil((stop-start)/pageSize) pages.
func GatherPageURLs(base string, start, stop, pageSize int, sortBy, sortDir string) []string {
	if stop <= start || pageSize <= 0 {
		return nil
	}
	pages := (stop - start + pageSize - 1) / pageSize
	urls := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		offset := start + i*pageSize
		count := pageSize
		if offset+count > stop {
			count = stop - offset
		}
		urls = append(urls, ListingURL(base, offset, count, sortBy, sortDir))
	}
	return urls
}

// ProductURL builds the public product page URL from an asset's url slug.
// Empty slug yields an empty URL.
func ProductURL(slug string) string {
	if slug == "" {
		return ""
	}
	return ProductURLBase + slug
}
