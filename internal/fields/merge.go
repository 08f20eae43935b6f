package fields

import (
	"time"

	"github.com/uevault/uevault/internal/models"
)

// Forced carries caller-supplied authoritative values, keyed by storage
// name. It is applied last during a merge and wins over both the prior and
// the freshly scraped value. A local folder scan uses it for origin,
// added_manually, category and grab_result.
type Forced map[string]any

// Merge arbitrates between a freshly normalized record and the prior stored
// record for the same id, producing the record to persist:
//
//   - USER-class fields keep the prior non-empty value; the fresh value is
//     discarded. installed_folders is special-cased as a set union.
//   - old_price becomes the prior record's price (falling back to the prior
//     old_price when no prior price exists).
//   - date_added_in_db is copied from the prior record when present,
//     otherwise set to now.
//   - Every other field takes the fresh value unconditionally.
//   - forced entries are applied last and win for any key they contain.
//
// When the prior record's origin is the marketplace marker, category,
// asset_url and added_manually are not meaningfully user data and are
// excluded from the preservation copy.
func Merge(fresh, prior *models.AssetRecord, forced Forced, now time.Time) *models.AssetRecord {
	out := *fresh

	if prior != nil {
		for _, f := range registry {
			if f.Class != ClassUser {
				continue
			}
			if prior.Origin == models.OriginMarketplace && marketplaceOwned(f.Name) {
				continue
			}
			if f.Name == "installed_folders" {
				out.InstalledFolders = models.JoinFolderUnion(
					prior.InstalledFolderList(), fresh.InstalledFolderList())
				continue
			}
			if v := f.Get(prior); !isEmpty(v) {
				f.Set(&out, v)
			}
		}

		if prior.Price != 0 {
			out.OldPrice = prior.Price
		} else {
			out.OldPrice = prior.OldPrice
		}

		if !prior.DateAddedInDB.IsZero() {
			out.DateAddedInDB = prior.DateAddedInDB
		} else {
			out.DateAddedInDB = now
		}
	} else if out.DateAddedInDB.IsZero() {
		out.DateAddedInDB = now
	}

	for name, v := range forced {
		if f := Get(name); f != nil && f.Set != nil {
			f.Set(&out, v)
		}
	}

	return &out
}

// marketplaceOwned lists the USER-class fields that revert to scrape
// ownership once a record was last updated from the marketplace.
func marketplaceOwned(name string) bool {
	switch name {
	case "category", "asset_url", "added_manually":
		return true
	}
	return false
}

// isEmpty reports whether a prior value is considered absent for the
// preservation copy.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case int:
		return t == 0
	case float64:
		return t == 0
	case bool:
		return !t
	case time.Time:
		return t.IsZero()
	case []string:
		return len(t) == 0
	}
	return false
}
