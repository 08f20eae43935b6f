package scraper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/uevault/uevault/internal/fields"
	"github.com/uevault/uevault/internal/log"
	"github.com/uevault/uevault/internal/models"
)

// Normalization outcomes that drop the element instead of producing a
// record.
var (
	// ErrMissingID marks an element without an id; it cannot be stored.
	ErrMissingID = errors.New("element has no id")
	// ErrFiltered marks an element dropped by the category filter.
	ErrFiltered = errors.New("element filtered out")
)

// LocalIndex answers questions about assets already present on disk, so a
// fresh scrape can carry local state that the marketplace does not know
// about.
type LocalIndex interface {
	// InstalledFolders returns the folders the asset is installed in.
	InstalledFolders(assetID string) []string
}

// Sinks collects the per-run reject files. Both sinks are optional.
type Sinks struct {
	Ignored  *log.Sink
	NotFound *log.Sink
}

// Normalizer converts raw marketplace elements into canonical records.
// The zero value normalizes everything with no filtering.
type Normalizer struct {
	// CategoryFilter drops elements whose category does not contain this
	// substring (case-insensitive). Empty keeps everything.
	CategoryFilter string
	// EngineVersion is the obsolescence threshold. Nil disables the
	// obsolete flag entirely.
	EngineVersion *semver.Version
	// Local carries installed-folder state into fresh records. Optional.
	Local LocalIndex
	// Sinks receives dropped asset names. Optional.
	Sinks Sinks
}

// NewNormalizer builds a normalizer from a raw engine-version threshold.
// The version string is validated at configuration time, so a parse
// failure here only disables obsolescence.
func NewNormalizer(categoryFilter, engineVersion string, local LocalIndex, sinks Sinks) *Normalizer {
	n := &Normalizer{
		CategoryFilter: categoryFilter,
		Local:          local,
		Sinks:          sinks,
	}
	if engineVersion != "" {
		v, err := semver.NewVersion(engineVersion)
		if err != nil {
			log.Errorf("invalid engine version %q, obsolescence disabled: %v", engineVersion, err)
		} else {
			n.EngineVersion = v
		}
	}
	return n
}

// Normalize converts one raw element into a canonical record.
// Returns ErrMissingID or ErrFiltered when the element must be dropped;
// these are expected per-row outcomes, not run failures.
func (n *Normalizer) Normalize(e *RawElement) (*models.AssetRecord, error) {
	if e.ID == "" {
		return nil, ErrMissingID
	}

	category := e.PrimaryCategory()
	if n.CategoryFilter != "" && !strings.Contains(strings.ToLower(category), strings.ToLower(n.CategoryFilter)) {
		n.Sinks.Ignored.Write(e.Title)
		return nil, fmt.Errorf("%s (%s): %w", e.Title, category, ErrFiltered)
	}

	rec := &models.AssetRecord{
		ID:            e.ID,
		Namespace:     e.Namespace,
		CatalogItemID: e.CatalogItemID,

		Title:            e.Title,
		Category:         category,
		Author:           n.author(e),
		Description:      e.Description,
		TechnicalDetails: e.TechnicalDetails,
		LongDescription:  e.LongDescription,
		ThumbnailURL:     n.thumbnail(e),
		AssetSlug:        e.URLSlug,
		AssetURL:         ProductURL(e.URLSlug),

		CurrencyCode: e.CurrencyCode,
		Owned:        e.Owned,
		Free:         e.Free,
		Discounted:   e.Discounted,
		CanPurchase:  e.CanPurchase,

		Status:        e.Status,
		IsNew:         e.IsNew,
		IsCatalogItem: e.IsCatalogItem,
		GrabResult:    models.GrabNoError,

		Origin: models.OriginMarketplace,

		CreationDate: fields.CastDatetime(e.CreationDate),
		UpdateDate:   fields.CastDatetime(e.LastModified),
	}

	rec.SetTags(tagLabels(e.Tags))

	if e.Rating != nil {
		rec.Review = e.Rating.AverageRating
		rec.ReviewCount = e.Rating.Total
	}

	n.normalizeAppID(e, rec)
	normalizePrice(e, rec)
	n.normalizeVersions(e, rec)
	normalizeCustomAttributes(e, rec)

	if n.Local != nil {
		if folders := n.Local.InstalledFolders(rec.AssetID); len(folders) > 0 {
			rec.AddInstalledFolders(folders...)
		}
	}

	return rec, nil
}

// normalizeAppID resolves the asset id from the latest release. An asset
// that never shipped a release keeps its catalog id and is flagged so the
// gap is visible.
func (n *Normalizer) normalizeAppID(e *RawElement, rec *models.AssetRecord) {
	if rel := e.LatestRelease(); rel != nil && rel.AppID != "" {
		rec.AssetID = rel.AppID
		return
	}
	rec.AssetID = e.ID
	rec.GrabResult = models.GrabNoAppID
}

// normalizePrice converts integer cents to float prices. Elements without
// structured prices fall back to the free-text price field.
func normalizePrice(e *RawElement, rec *models.AssetRecord) {
	if e.PriceValue > 0 {
		rec.Price = float64(e.PriceValue) / 100.0
		rec.DiscountPrice = float64(e.DiscountPriceValue) / 100.0
		// The endpoint reports the remaining fraction, not the discount.
		// A "25" from the API is a 75% off sale.
		if e.DiscountPercentage > 0 && e.DiscountPercentage < 100 {
			rec.DiscountPercentage = 100 - e.DiscountPercentage
		}
	} else {
		rec.Price = parseFreeTextPrice(e.Price)
	}
	if rec.DiscountPrice == 0 {
		rec.DiscountPrice = rec.Price
	}
}

// normalizeVersions joins engine compatibility across every release and
// computes obsolescence against the configured threshold. Older releases
// count too: an asset is current as long as any release supports a recent
// enough engine.
func (n *Normalizer) normalizeVersions(e *RawElement, rec *models.AssetRecord) {
	seen := make(map[string]bool)
	var apps []string
	for _, rel := range e.ReleaseInfo {
		for _, app := range rel.CompatibleApps {
			if app == "" || seen[app] {
				continue
			}
			seen[app] = true
			apps = append(apps, app)
		}
	}
	if len(apps) == 0 {
		return
	}
	rec.SupportedVersions = strings.Join(apps, models.ListSeparator)
	if n.EngineVersion == nil {
		return
	}

	// Obsolete unless at least one supported version reaches the
	// threshold. Unparseable tokens neither qualify nor disqualify.
	obsolete := true
	for _, app := range apps {
		v, err := parseEngineVersion(app)
		if err != nil {
			continue
		}
		if !v.LessThan(n.EngineVersion) {
			obsolete = false
			break
		}
	}
	rec.Obsolete = obsolete
}

// normalizeCustomAttributes stores the BuyLink attribute, which marks
// assets sold through an external site.
func normalizeCustomAttributes(e *RawElement, rec *models.AssetRecord) {
	if attr, ok := e.CustomAttributes["BuyLink"]; ok && attr.Value != "" {
		rec.CustomAttributes = models.ExternalLinkPrefix + attr.Value
	}
}

// parseEngineVersion parses one compatibleApps token. The marketplace has
// emitted "UE_4.26", "4.26" and early-access forms like "5.0EA".
func parseEngineVersion(app string) (*semver.Version, error) {
	s := strings.TrimPrefix(strings.TrimSpace(app), "UE_")
	s = strings.TrimSuffix(s, "EA")
	return semver.NewVersion(s)
}

// author prefers the seller name, then the developer field.
func (n *Normalizer) author(e *RawElement) string {
	if e.Seller != nil && e.Seller.Name != "" {
		return e.Seller.Name
	}
	return e.Developer
}

// thumbnail prefers the flat field, then the Thumbnail key image.
func (n *Normalizer) thumbnail(e *RawElement) string {
	if e.Thumbnail != "" {
		return e.Thumbnail
	}
	for _, img := range e.KeyImages {
		if img.Type == "Thumbnail" {
			return img.URL
		}
	}
	return ""
}

func tagLabels(tags []RawTag) []string {
	if len(tags) == 0 {
		return nil
	}
	labels := make([]string, 0, len(tags))
	for _, t := range tags {
		if l := t.Label(); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}
