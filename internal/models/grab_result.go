package models

// GrabResult is the enumerated outcome of fetching/parsing one asset.
// The string values are stored as-is and must stay stable for databases
// written by earlier releases (including the historical INCONSISTANT
// spelling).
type GrabResult string

const (
	GrabNoError         GrabResult = "NO_ERROR"
	GrabPartial         GrabResult = "PARTIAL"
	GrabPageNotFound    GrabResult = "PAGE_NOT_FOUND"
	GrabNoAppID         GrabResult = "NO_APPID"
	GrabInconsistant    GrabResult = "INCONSISTANT_DATA"
	GrabContentNotFound GrabResult = "CONTENT_NOT_FOUND"
	GrabTimeout         GrabResult = "TIMEOUT"
	GrabNoResponse      GrabResult = "NO_RESPONSE"
)

// GrabResults lists every valid value.
func GrabResults() []GrabResult {
	return []GrabResult{
		GrabNoError, GrabPartial, GrabPageNotFound, GrabNoAppID,
		GrabInconsistant, GrabContentNotFound, GrabTimeout, GrabNoResponse,
	}
}

// IsValid reports whether g is one of the known values.
func (g GrabResult) IsValid() bool {
	for _, v := range GrabResults() {
		if g == v {
			return true
		}
	}
	return false
}

// ParseGrabResult maps stored text back to a GrabResult.
// Unknown text degrades to GrabNoError rather than failing the row.
func ParseGrabResult(s string) GrabResult {
	g := GrabResult(s)
	if g.IsValid() {
		return g
	}
	return GrabNoError
}
