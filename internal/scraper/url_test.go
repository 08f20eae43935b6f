package scraper

import (
	"strings"
	"testing"
)

func TestListingURL(t *testing.T) {
	u := ListingURL("https://api.test/assets", 100, 50, "effectiveDate", "DESC")
	for _, want := range []string{"start=100", "count=50", "sortBy=effectiveDate", "sortDir=DESC"} {
		if !strings.Contains(u, want) {
			t.Errorf("ListingURL = %q, missing %q", u, want)
		}
	}

	// Empty sort params stay out of the query entirely.
	u = ListingURL("https://api.test/assets", 0, 1, "", "")
	if strings.Contains(u, "sortBy") || strings.Contains(u, "sortDir") {
		t.Errorf("ListingURL = %q, unexpected sort params", u)
	}
}

func TestDetailURL(t *testing.T) {
	u := DetailURL("https://api.test/assets", "abc123")
	if u != "https://api.test/assets/abc123" {
		t.Errorf("DetailURL = %q", u)
	}
}

func TestGatherPageURLs(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		stop      int
		pageSize  int
		wantPages int
	}{
		{"exact multiple", 0, 200, 100, 2},
		{"remainder page", 0, 250, 100, 3},
		{"single short page", 0, 30, 100, 1},
		{"offset start", 100, 250, 100, 2},
		{"empty range", 100, 100, 100, 0},
		{"inverted range", 200, 100, 100, 0},
		{"zero page size", 0, 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			urls := GatherPageURLs("https://api.test/assets", tt.start, tt.stop, tt.pageSize, "", "")
			if len(urls) != tt.wantPages {
				t.Errorf("got %d pages, want %d", len(urls), tt.wantPages)
			}
		})
	}
}

func TestGatherPageURLs_FinalPageClamped(t *testing.T) {
	urls := GatherPageURLs("https://api.test/assets", 0, 250, 100, "", "")
	if len(urls) != 3 {
		t.Fatalf("got %d pages", len(urls))
	}
	last := urls[2]
	if !strings.Contains(last, "start=200") || !strings.Contains(last, "count=50") {
		t.Errorf("final page = %q, want start=200 count=50", last)
	}
}

func TestProductURL(t *testing.T) {
	if got := ProductURL("forest-pack"); got != ProductURLBase+"forest-pack" {
		t.Errorf("ProductURL = %q", got)
	}
	if got := ProductURL(""); got != "" {
		t.Errorf("ProductURL(empty) = %q, want empty", got)
	}
}
