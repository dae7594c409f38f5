package fetchapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/dog-adoption/internal/model"
)

// Action names used as the metrics label.
const (
	actLogin           = "login"
	actLogout          = "logout"
	actBreeds          = "breeds"
	actSearchDogs      = "search_dogs"
	actDogs            = "dogs"
	actMatch           = "match"
	actLocations       = "locations"
	actSearchLocations = "search_locations"
)

// Default states used when a location search carries no filter at all.
var defaultLocationStates = []string{"CA", "TX", "NY", "FL"}

// SearchQuery is the parameter set of GET /dogs/search.
// Zero values are left off the request.
type SearchQuery struct {
	Breeds   []string
	ZipCodes []string
	AgeMin   *int
	AgeMax   *int
	Size     int
	Sort     string
	Cursor   model.Cursor
}

// Values renders the query string. The cursor is translated by CursorFrom.
func (q SearchQuery) Values() url.Values {
	v := url.Values{}
	for _, b := range q.Breeds {
		v.Add("breeds[]", b)
	}
	for _, z := range q.ZipCodes {
		v.Add("zipCodes[]", z)
	}
	if q.AgeMin != nil {
		v.Set("ageMin", strconv.Itoa(*q.AgeMin))
	}
	if q.AgeMax != nil {
		v.Set("ageMax", strconv.Itoa(*q.AgeMax))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if from := CursorFrom(string(q.Cursor)); from != "" {
		v.Set("from", from)
	}
	return v
}

type SearchResult struct {
	ResultIDs []string `json:"resultIds"`
	Total     int      `json:"total"`
	Next      string   `json:"next,omitempty"`
	Prev      string   `json:"prev,omitempty"`
}

// LocationQuery is the body of POST /locations/search.
type LocationQuery struct {
	City     string   `json:"city,omitempty"`
	States   []string `json:"states,omitempty"`
	ZipCodes []string `json:"zipCodes,omitempty"`
	Size     int      `json:"size"`
}

// normalize applies the rules every location search goes through:
// a size under 20 becomes 50, and a query with no filter falls back to
// the default states.
func (q LocationQuery) normalize() LocationQuery {
	if q.Size < 20 {
		q.Size = 50
	}
	if q.City == "" && len(q.States) == 0 && len(q.ZipCodes) == 0 {
		q.States = defaultLocationStates
	}
	return q
}

type LocationSearchResult struct {
	Results []model.Location `json:"results"`
	Total   int              `json:"total"`
}

type loginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Login exchanges a name and email for the API's auth cookie.
// A 401 here never fires the unauthorized hook.
func (c *Client) Login(ctx context.Context, name, email string) error {
	return c.do(ctx, actLogin, http.MethodPost, loginPath, nil, loginRequest{Name: name, Email: email}, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, actLogout, http.MethodPost, "/auth/logout", nil, nil, nil)
}

func (c *Client) Breeds(ctx context.Context) ([]string, error) {
	var breeds []string
	if err := c.do(ctx, actBreeds, http.MethodGet, "/dogs/breeds", nil, nil, &breeds); err != nil {
		return nil, err
	}
	return breeds, nil
}

func (c *Client) SearchDogs(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	var res SearchResult
	if err := c.do(ctx, actSearchDogs, http.MethodGet, "/dogs/search", q.Values(), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Dogs fetches full records for ids. The API returns them in an order of
// its choosing; callers that care must reorder.
func (c *Client) Dogs(ctx context.Context, ids []string) ([]model.Dog, error) {
	if len(ids) == 0 {
		return []model.Dog{}, nil
	}
	var dogs []model.Dog
	if err := c.do(ctx, actDogs, http.MethodPost, "/dogs", nil, ids, &dogs); err != nil {
		return nil, err
	}
	return dogs, nil
}

// Match asks the API to pick one dog out of ids.
func (c *Client) Match(ctx context.Context, ids []string) (string, error) {
	var m model.Match
	if err := c.do(ctx, actMatch, http.MethodPost, "/dogs/match", nil, ids, &m); err != nil {
		return "", err
	}
	return m.Match, nil
}

func (c *Client) Locations(ctx context.Context, zips []string) ([]model.Location, error) {
	if len(zips) == 0 {
		return []model.Location{}, nil
	}
	var locs []model.Location
	if err := c.do(ctx, actLocations, http.MethodPost, "/locations", nil, zips, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

func (c *Client) SearchLocations(ctx context.Context, q LocationQuery) (*LocationSearchResult, error) {
	var res LocationSearchResult
	if err := c.do(ctx, actSearchLocations, http.MethodPost, "/locations/search", nil, q.normalize(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}
