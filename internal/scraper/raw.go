package scraper

import (
	"encoding/json"
	"strconv"
	"strings"
)

// listingResponse is the envelope of the paginated listing endpoint:
// { data: { paging: { total }, elements: [...] } }.
type listingResponse struct {
	Data struct {
		Paging struct {
			Total int `json:"total"`
		} `json:"paging"`
		Elements []RawElement `json:"elements"`
	} `json:"data"`
}

// detailResponse is the envelope of the single-asset endpoint, which nests
// one level deeper than the listing: { data: { data: {...} } }.
type detailResponse struct {
	Data struct {
		Data RawElement `json:"data"`
	} `json:"data"`
}

// RawElement is one marketplace asset exactly as the remote API emits it
// (upstream camelCase convention). It is normalized into a
// models.AssetRecord before anything else touches it.
type RawElement struct {
	ID               string `json:"id"`
	CatalogItemID    string `json:"catalogItemId"`
	Namespace        string `json:"namespace"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	TechnicalDetails string `json:"technicalDetails"`
	LongDescription  string `json:"longDescription"`
	URLSlug          string `json:"urlSlug"`
	Status           string `json:"status"`

	Thumbnail string        `json:"thumbnail"`
	KeyImages []RawKeyImage `json:"keyImages"`

	Seller    *RawSeller `json:"seller"`
	Developer string     `json:"developer"`

	Categories []RawCategory `json:"categories"`
	Tags       []RawTag      `json:"tags"`

	// Prices in integer cents when PriceValue > 0; otherwise the free-text
	// Price field carries a currency-formatted string.
	Price              string `json:"price"`
	PriceValue         int    `json:"priceValue"`
	DiscountPriceValue int    `json:"discountPriceValue"`
	DiscountPercentage int    `json:"discountPercentage"`
	CurrencyCode       string `json:"currencyCode"`

	Owned         bool `json:"owned"`
	Free          bool `json:"free"`
	Discounted    bool `json:"discounted"`
	CanPurchase   bool `json:"canPurchase"`
	IsNew         bool `json:"isNew"`
	IsCatalogItem bool `json:"isCatalogItem"`

	Rating *RawRating `json:"rating"`

	ReleaseInfo []RawReleaseInfo `json:"releaseInfo"`

	CustomAttributes map[string]RawCustomAttribute `json:"customAttributes"`

	EffectiveDate string `json:"effectiveDate"`
	CreationDate  string `json:"creationDate"`
	LastModified  string `json:"lastModifiedDate"`
}

// RawKeyImage is one image entry; the normalizer looks for type Thumbnail.
type RawKeyImage struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// RawSeller is the marketplace seller block.
type RawSeller struct {
	Name string `json:"name"`
}

// RawCategory is one category entry (path like "assets/environments").
type RawCategory struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// RawRating is the review aggregate.
type RawRating struct {
	AverageRating float64 `json:"averageRating"`
	Total         int     `json:"total"`
}

// RawReleaseInfo is one release entry; the latest one carries the app id
// and engine compatibility used for obsolescence.
type RawReleaseInfo struct {
	AppID          string   `json:"appId"`
	CompatibleApps []string `json:"compatibleApps"`
	DateAdded      string   `json:"dateAdded"`
}

// RawCustomAttribute is one custom attribute value (the BuyLink attribute
// marks assets sold through an external site).
type RawCustomAttribute struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// RawTag is one tag reference. The endpoint has emitted tags as bare
// numbers, bare strings and {id,name} objects across API revisions, so the
// decoder accepts all three.
type RawTag struct {
	ID   string
	Name string
}

// UnmarshalJSON implements tolerant tag decoding.
func (t *RawTag) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) == 0 {
		return nil
	}

	switch s[0] {
	case '{':
		var obj struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		t.ID = obj.ID.String()
		t.Name = obj.Name
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		t.ID = str
		t.Name = str
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		t.ID = n.String()
	}
	return nil
}

// Label returns the display form of the tag: its name when known,
// otherwise its id.
func (t RawTag) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// PrimaryCategory returns the element's primary category name, falling
// back to the raw path.
func (e *RawElement) PrimaryCategory() string {
	if len(e.Categories) == 0 {
		return ""
	}
	c := e.Categories[0]
	if c.Name != "" {
		return c.Name
	}
	return c.Path
}

// LatestRelease returns the newest releaseInfo entry, or nil.
func (e *RawElement) LatestRelease() *RawReleaseInfo {
	if len(e.ReleaseInfo) == 0 {
		return nil
	}
	return &e.ReleaseInfo[len(e.ReleaseInfo)-1]
}

// parseFreeTextPrice parses a currency-formatted price string by stripping
// currency symbols and thousands separators, defaulting to 0 on failure.
func parseFreeTextPrice(s string) float64 {
	s = strings.TrimSpace(s)
	for _, sym := range []string{"$", "€"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0.0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}
