package model

import "strings"

// Zip code sentinels used on entries that did not come from the API.
// Neither value is ever sent upstream as a search filter.
const (
	// ZipUnknown marks a well-known place we had to add ourselves because
	// the API returned nothing for it.
	ZipUnknown = "Unknown"
	// ZipCustom marks a place the visitor typed in by hand.
	ZipCustom = "Custom"
)

// Location is a place record from POST /locations or /locations/search.
//
// ZipCodes and IsManualEntry are local additions: ZipCodes holds every zip
// merged into one (city, state) entry, and IsManualEntry flags records we
// synthesized instead of received.
type Location struct {
	ZipCode       string   `json:"zip_code"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	County        string   `json:"county"`
	ZipCodes      []string `json:"zip_codes,omitempty"`
	IsManualEntry bool     `json:"isManualEntry,omitempty"`
}

// Key identifies the (city, state) group this location belongs to.
// City is compared case-insensitively, state exactly.
func (l Location) Key() string {
	return strings.ToLower(strings.TrimSpace(l.City)) + "-" + l.State
}

// Label is the "City, ST" form shown in the picker.
func (l Location) Label() string {
	return strings.TrimSpace(l.City) + ", " + l.State
}

// IsSentinelZip reports whether zip is a local placeholder.
func IsSentinelZip(zip string) bool {
	return zip == ZipUnknown || zip == ZipCustom
}

// RealZipCodes returns the zip codes of l that may be sent to the dog
// search. Manual entries contribute nothing.
func (l Location) RealZipCodes() []string {
	if l.IsManualEntry {
		return nil
	}

	zips := l.ZipCodes
	if len(zips) == 0 && l.ZipCode != "" {
		zips = []string{l.ZipCode}
	}

	out := make([]string, 0, len(zips))
	for _, z := range zips {
		if z == "" || IsSentinelZip(z) {
			continue
		}
		out = append(out, z)
	}
	return out
}
