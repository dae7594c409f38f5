package model

// Cursor is an opaque pagination token handed back by the search API.
// Only the upstream client knows how to turn it back into a request.
type Cursor string

// Criteria is the set of filters a search runs with.
// A nil age bound means "no bound".
type Criteria struct {
	Breeds    []string   `json:"breeds"`
	AgeMin    *int       `json:"ageMin,omitempty"`
	AgeMax    *int       `json:"ageMax,omitempty"`
	Locations []Location `json:"locations"`
	Sort      SortOrder  `json:"sort"`
}

// ZipCodes flattens the selected locations into the deduplicated list of
// real zip codes, in selection order.
func (c Criteria) ZipCodes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, loc := range c.Locations {
		for _, z := range loc.RealZipCodes() {
			if seen[z] {
				continue
			}
			seen[z] = true
			out = append(out, z)
		}
	}
	return out
}

// Page is one page of search results.
type Page struct {
	Items      []Dog  `json:"items"`
	Total      int    `json:"total"`
	Next       Cursor `json:"next,omitempty"`
	Prev       Cursor `json:"prev,omitempty"`
	PageNumber int    `json:"pageNumber"`
}

func (p Page) HasNext() bool { return p.Next != "" }
func (p Page) HasPrev() bool { return p.Prev != "" }

// PageDirection selects the neighbouring page to move to.
type PageDirection string

const (
	PageNext PageDirection = "next"
	PagePrev PageDirection = "prev"
)
