// Package fields is the central registry of every normalized asset
// attribute: its storage name, display name, merge-time preservation class,
// value type, and typed accessors on models.AssetRecord. The scraper, the
// merge policy and both persistence backends all drive off this registry so
// the three record shapes (raw element, stored record, display row) stay in
// lockstep.
package fields

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uevault/uevault/internal/models"
)

// Class is the merge-time treatment rule assigned to a field.
type Class int

const (
	// ClassNormal fields are overwritten on every scrape.
	ClassNormal Class = iota
	// ClassChanged fields are computed during merge (old_price, date_added_in_db).
	ClassChanged
	// ClassUser fields are never overwritten by a scrape unless forced.
	ClassUser
	// ClassStoreOnly fields are persisted but hidden from user-facing views.
	ClassStoreOnly
	// ClassViewOnly fields exist only in the denormalized view and have no
	// backing store column.
	ClassViewOnly
)

// Type is the value type of a field.
type Type int

const (
	TypeString Type = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeText
	TypeDatetime
	TypeList
)

// Field describes one normalized attribute.
type Field struct {
	Name    string // storage name (snake_case column / key)
	Display string // display name (CSV header, GUI column)
	Class   Class
	Type    Type

	// Accessors on the stored record. Nil for ClassViewOnly fields.
	Get func(*models.AssetRecord) any
	Set func(*models.AssetRecord, any)
}

// EpochDefault is the datetime fallback for unparseable input.
var EpochDefault = time.Unix(0, 0).UTC()

// datetimeFormats are tried in order; the first successful parse wins.
var datetimeFormats = []string{
	"2006-01-02T15:04:05.000Z",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// registry is the ordered list of all fields. Order matters: it defines the
// CSV column order.
var registry = []Field{
	{Name: "id", Display: "Id", Class: ClassNormal, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.ID },
		Set: func(a *models.AssetRecord, v any) { a.ID = CastString(v) }},
	{Name: "asset_id", Display: "Asset_id", Class: ClassNormal, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.AssetID },
		Set: func(a *models.AssetRecord, v any) { a.AssetID = CastString(v) }},
	{Name: "title", Display: "App name", Class: ClassNormal, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.Title },
		Set: func(a *models.AssetRecord, v any) { a.Title = CastString(v) }},
	{Name: "category", Display: "Category", Class: ClassUser, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.Category },
		Set: func(a *models.AssetRecord, v any) { a.Category = CastString(v) }},
	{Name: "review", Display: "Review", Class: ClassNormal, Type: TypeFloat,
		Get: func(a *models.AssetRecord) any { return a.Review },
		Set: func(a *models.AssetRecord, v any) { a.Review = CastFloat(v) }},
	{Name: "review_count", Display: "Review count", Class: ClassNormal, Type: TypeInt,
		Get: func(a *models.AssetRecord) any { return a.ReviewCount },
		Set: func(a *models.AssetRecord, v any) { a.ReviewCount = CastInt(v) }},
	{Name: "author", Display: "Developer", Class: ClassNormal, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.Author },
		Set: func(a *models.AssetRecord, v any) { a.Author = CastString(v) }},
	{Name: "description", Display: "Description", Class: ClassNormal, Type: TypeText,
		Get: func(a *models.AssetRecord) any { return a.Description },
		Set: func(a *models.AssetRecord, v any) { a.Description = CastString(v) }},
	{Name: "status", Display: "Status", Class: ClassNormal, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.Status },
		Set: func(a *models.AssetRecord, v any) { a.Status = CastString(v) }},
	{Name: "price", Display: "Price", Class: ClassNormal, Type: TypeFloat,
		Get: func(a *models.AssetRecord) any { return a.Price },
		Set: func(a *models.AssetRecord, v any) { a.Price = CastFloat(v) }},
	{Name: "old_price", Display: "Old price", Class: ClassChanged, Type: TypeFloat,
		Get: func(a *models.AssetRecord) any { return a.OldPrice },
		Set: func(a *models.AssetRecord, v any) { a.OldPrice = CastFloat(v) }},
	{Name: "discount_price", Display: "Discount price", Class: ClassNormal, Type: TypeFloat,
		Get: func(a *models.AssetRecord) any { return a.DiscountPrice },
		Set: func(a *models.AssetRecord, v any) { a.DiscountPrice = CastFloat(v) }},
	{Name: "discount_percentage", Display: "Discount percentage", Class: ClassNormal, Type: TypeInt,
		Get: func(a *models.AssetRecord) any { return a.DiscountPercentage },
		Set: func(a *models.AssetRecord, v any) { a.DiscountPercentage = CastInt(v) }},
	{Name: "discounted", Display: "Discounted", Class: ClassNormal, Type: TypeBool,
		Get: func(a *models.AssetRecord) any { return a.Discounted },
		Set: func(a *models.AssetRecord, v any) { a.Discounted = CastBool(v) }},
	{Name: "currency_code", Display: "Currency code", Class: ClassNormal, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.CurrencyCode },
		Set: func(a *models.AssetRecord, v any) { a.CurrencyCode = CastString(v) }},
	{Name: "owned", Display: "Owned", Class: ClassNormal, Type: TypeBool,
		Get: func(a *models.AssetRecord) any { return a.Owned },
		Set: func(a *models.AssetRecord, v any) { a.Owned = CastBool(v) }},
	{Name: "free", Display: "Free", Class: ClassNormal, Type: TypeBool,
		Get: func(a *models.AssetRecord) any { return a.Free },
		Set: func(a *models.AssetRecord, v any) { a.Free = CastBool(v) }},
	{Name: "can_purchase", Display: "Can purchase", Class: ClassNormal, Type: TypeBool,
		Get: func(a *models.AssetRecord) any { return a.CanPurchase },
		Set: func(a *models.AssetRecord, v any) { a.CanPurchase = CastBool(v) }},
	{Name: "obsolete", Display: "Obsolete", Class: ClassNormal, Type: TypeBool,
		Get: func(a *models.AssetRecord) any { return a.Obsolete },
		Set: func(a *models.AssetRecord, v any) { a.Obsolete = CastBool(v) }},
	{Name: "supported_versions", Display: "Supported versions", Class: ClassNormal, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.SupportedVersions },
		Set: func(a *models.AssetRecord, v any) { a.SupportedVersions = CastString(v) }},
	{Name: "grab_result", Display: "Grab result", Class: ClassNormal, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return string(a.GrabResult) },
		Set: func(a *models.AssetRecord, v any) { a.GrabResult = models.ParseGrabResult(CastString(v)) }},
	{Name: "comment", Display: "Comment", Class: ClassUser, Type: TypeText,
		Get: func(a *models.AssetRecord) any { return a.Comment },
		Set: func(a *models.AssetRecord, v any) { a.Comment = CastString(v) }},
	{Name: "stars", Display: "Stars", Class: ClassUser, Type: TypeInt,
		Get: func(a *models.AssetRecord) any { return a.Stars },
		Set: func(a *models.AssetRecord, v any) { a.Stars = CastInt(v) }},
	{Name: "must_buy", Display: "Must buy", Class: ClassUser, Type: TypeBool,
		Get: func(a *models.AssetRecord) any { return a.MustBuy },
		Set: func(a *models.AssetRecord, v any) { a.MustBuy = CastBool(v) }},
	{Name: "test_result", Display: "Test result", Class: ClassUser, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.TestResult },
		Set: func(a *models.AssetRecord, v any) { a.TestResult = CastString(v) }},
	{Name: "installed_folders", Display: "Installed folders", Class: ClassUser, Type: TypeList,
		Get: func(a *models.AssetRecord) any { return a.InstalledFolders },
		Set: func(a *models.AssetRecord, v any) { a.InstalledFolders = listText(v) }},
	{Name: "alternative", Display: "Alternative", Class: ClassUser, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.Alternative },
		Set: func(a *models.AssetRecord, v any) { a.Alternative = CastString(v) }},
	{Name: "origin", Display: "Origin", Class: ClassUser, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.Origin },
		Set: func(a *models.AssetRecord, v any) { a.Origin = CastString(v) }},
	{Name: "added_manually", Display: "Added manually", Class: ClassUser, Type: TypeBool,
		Get: func(a *models.AssetRecord) any { return a.AddedManually },
		Set: func(a *models.AssetRecord, v any) { a.AddedManually = CastBool(v) }},
	{Name: "custom_attributes", Display: "Custom attributes", Class: ClassNormal, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.CustomAttributes },
		Set: func(a *models.AssetRecord, v any) { a.CustomAttributes = CastString(v) }},
	{Name: "tags", Display: "Tags", Class: ClassNormal, Type: TypeList,
		Get: func(a *models.AssetRecord) any { return a.Tags },
		Set: func(a *models.AssetRecord, v any) { a.Tags = listText(v) }},
	{Name: "thumbnail_url", Display: "Image", Class: ClassNormal, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.ThumbnailURL },
		Set: func(a *models.AssetRecord, v any) { a.ThumbnailURL = CastString(v) }},
	{Name: "asset_slug", Display: "Asset slug", Class: ClassNormal, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.AssetSlug },
		Set: func(a *models.AssetRecord, v any) { a.AssetSlug = CastString(v) }},
	{Name: "asset_url", Display: "Url", Class: ClassUser, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.AssetURL },
		Set: func(a *models.AssetRecord, v any) { a.AssetURL = CastString(v) }},
	{Name: "is_new", Display: "New", Class: ClassNormal, Type: TypeBool,
		Get: func(a *models.AssetRecord) any { return a.IsNew },
		Set: func(a *models.AssetRecord, v any) { a.IsNew = CastBool(v) }},
	{Name: "technical_details", Display: "Technical details", Class: ClassStoreOnly, Type: TypeText,
		Get: func(a *models.AssetRecord) any { return a.TechnicalDetails },
		Set: func(a *models.AssetRecord, v any) { a.TechnicalDetails = CastString(v) }},
	{Name: "long_description", Display: "Long description", Class: ClassStoreOnly, Type: TypeText,
		Get: func(a *models.AssetRecord) any { return a.LongDescription },
		Set: func(a *models.AssetRecord, v any) { a.LongDescription = CastString(v) }},
	{Name: "namespace", Display: "Namespace", Class: ClassStoreOnly, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.Namespace },
		Set: func(a *models.AssetRecord, v any) { a.Namespace = CastString(v) }},
	{Name: "catalog_item_id", Display: "Catalog itemid", Class: ClassStoreOnly, Type: TypeString,
		Get: func(a *models.AssetRecord) any { return a.CatalogItemID },
		Set: func(a *models.AssetRecord, v any) { a.CatalogItemID = CastString(v) }},
	{Name: "is_catalog_item", Display: "Is catalog item", Class: ClassStoreOnly, Type: TypeBool,
		Get: func(a *models.AssetRecord) any { return a.IsCatalogItem },
		Set: func(a *models.AssetRecord, v any) { a.IsCatalogItem = CastBool(v) }},
	{Name: "creation_date", Display: "Creation date", Class: ClassNormal, Type: TypeDatetime,
		Get: func(a *models.AssetRecord) any { return a.CreationDate },
		Set: func(a *models.AssetRecord, v any) { a.CreationDate = CastDatetime(v) }},
	{Name: "update_date", Display: "Update date", Class: ClassNormal, Type: TypeDatetime,
		Get: func(a *models.AssetRecord) any { return a.UpdateDate },
		Set: func(a *models.AssetRecord, v any) { a.UpdateDate = CastDatetime(v) }},
	{Name: "date_added_in_db", Display: "Date added", Class: ClassChanged, Type: TypeDatetime,
		Get: func(a *models.AssetRecord) any { return a.DateAddedInDB },
		Set: func(a *models.AssetRecord, v any) { a.DateAddedInDB = CastDatetime(v) }},
	// Computed for the GUI table from the installed folders; no store column.
	{Name: "asset_size", Display: "Asset size", Class: ClassViewOnly, Type: TypeInt},
}

var byName = func() map[string]*Field {
	m := make(map[string]*Field, len(registry))
	for i := range registry {
		m[registry[i].Name] = &registry[i]
	}
	return m
}()

var byDisplay = func() map[string]*Field {
	m := make(map[string]*Field, len(registry))
	for i := range registry {
		m[registry[i].Display] = &registry[i]
	}
	return m
}()

// All returns every field in registry order.
func All() []Field {
	return registry
}

// Get returns the field with the given storage name, or nil.
func Get(name string) *Field {
	return byName[name]
}

// GetByDisplay returns the field with the given display name, or nil.
func GetByDisplay(display string) *Field {
	return byDisplay[display]
}

// Names returns the ordered storage names of all fields, optionally
// filtered by class.
func Names(filterByClass ...Class) []string {
	var out []string
	for _, f := range registry {
		if len(filterByClass) > 0 && !classIn(f.Class, filterByClass) {
			continue
		}
		out = append(out, f.Name)
	}
	return out
}

// Stored returns the fields that have a backing store column, in order.
func Stored() []Field {
	var out []Field
	for _, f := range registry {
		if f.Class != ClassViewOnly {
			out = append(out, f)
		}
	}
	return out
}

// DisplayFields returns the fields that appear in a user-facing flat file,
// in order: everything except STORE_ONLY (hidden) and VIEW_ONLY (no
// backing column).
func DisplayFields() []Field {
	var out []Field
	for _, f := range registry {
		if f.Class != ClassStoreOnly && f.Class != ClassViewOnly {
			out = append(out, f)
		}
	}
	return out
}

// IsPreserved reports whether a field survives re-scrapes: true for USER
// and CHANGED classes.
func IsPreserved(name string) bool {
	f := byName[name]
	if f == nil {
		return false
	}
	return f.Class == ClassUser || f.Class == ClassChanged
}

func classIn(c Class, set []Class) bool {
	for _, s := range set {
		if c == s {
			return true
		}
	}
	return false
}

// Cast converts raw input to the typed value of the named field.
// Unknown fields pass through unchanged.
func Cast(name string, raw any) any {
	f := byName[name]
	if f == nil {
		return raw
	}
	switch f.Type {
	case TypeInt:
		return CastInt(raw)
	case TypeFloat:
		return CastFloat(raw)
	case TypeBool:
		return CastBool(raw)
	case TypeDatetime:
		return CastDatetime(raw)
	case TypeList:
		return CastList(raw)
	default:
		return CastString(raw)
	}
}

// CastString renders any value as its stored text form.
func CastString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// CastInt is a best-effort integer parse; invalid input yields 0.
func CastInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	}
	return 0
}

// CastFloat is a best-effort float parse; invalid input yields 0.0.
func CastFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return 0.0
}

// CastBool matches {"1","true","yes","y","t"} case-insensitively.
func CastBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "y", "t":
			return true
		}
	}
	return false
}

// CastDatetime tries each candidate format in order; total failure yields
// the fixed epoch default, never an error.
func CastDatetime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return EpochDefault
		}
		for _, layout := range datetimeFormats {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed
			}
		}
	}
	return EpochDefault
}

// listText renders a list value in its comma-joined stored form.
func listText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, models.ListSeparator)
	case []any:
		return strings.Join(CastList(t), models.ListSeparator)
	default:
		return CastString(v)
	}
}

// CastList coerces non-list input to a list. Used only for internal typing,
// not for display.
func CastList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, CastString(e))
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		parts := strings.Split(t, models.ListSeparator)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return []string{CastString(v)}
	}
}
