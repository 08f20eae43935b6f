package config

import "time"

// DefaultMarketplaceURL is the public listing endpoint.
const DefaultMarketplaceURL = "https://www.unrealengine.com/marketplace/api/assets"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir: DefaultBaseDir(),

		Marketplace: MarketplaceConfig{
			BaseURL:    DefaultMarketplaceURL,
			Timeout:    10 * time.Second,
			RateLimit:  30,
			CacheHours: 1,
		},

		Scrape: ScrapeConfig{
			Workers:     16,
			PageSize:    100,
			MaxAttempts: 3,
			SortBy:      "effectiveDate",
			SortDir:     "DESC",
		},
	}
}
