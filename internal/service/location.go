package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/dog-adoption/internal/fetchapi"
	"github.com/sakif/dog-adoption/internal/model"
)

// KnownLocations are places that must always be findable, even when the
// API has no record for them.
var KnownLocations = []model.Location{
	{City: "San Antonio", State: "TX"},
	{City: "Burlington Junction", State: "MO"},
	{City: "New Haven", State: "CT"},
}

var (
	popularCities = []string{"San Antonio", "New York", "Los Angeles", "Chicago", "Houston", "New Haven", "Burlington"}
	popularStates = []string{"TX", "CA", "NY", "FL", "MO", "CT"}

	cityStatePattern = regexp.MustCompile(`^(.+),\s*([A-Za-z]{2})$`)
	zipPattern       = regexp.MustCompile(`^\d{1,5}$`)
	statePattern     = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

const (
	cityQuerySize    = 50
	zipQuerySize     = 30
	knownQuerySize   = 20
	warmupQuerySize  = 30
	minResolveLength = 2
	minManualLength  = 3
	resolverWorkers  = 4
)

// Resolution is the outcome of resolving one piece of typed text.
type Resolution struct {
	Options     []model.Location `json:"options"`
	ManualEntry *model.Location  `json:"manualEntry,omitempty"`
}

// LocationResolver turns free text into grouped location options.
//
// One input fans out into several location searches (see LocationQueries).
// They run concurrently; a failed query contributes nothing and never
// fails the whole resolution. Results are merged in query order so the
// output does not depend on which response arrives first.
type LocationResolver struct {
	api    LocationAPI
	logger *slog.Logger
}

func NewLocationResolver(api LocationAPI, logger *slog.Logger) *LocationResolver {
	return &LocationResolver{api: api, logger: logger}
}

// LocationQueries builds the searches issued for text:
//
//   - the full text as a city
//   - the first word as a city, when there is more than one word
//   - city and state, when the text looks like "City, ST"
//   - a zip code search, when the text is 1 to 5 digits
//   - a state search, when the text is exactly two letters
func LocationQueries(text string) []fetchapi.LocationQuery {
	queries := []fetchapi.LocationQuery{{City: text, Size: cityQuerySize}}

	if words := strings.Fields(text); len(words) > 1 {
		queries = append(queries, fetchapi.LocationQuery{City: words[0], Size: cityQuerySize})
	}
	if m := cityStatePattern.FindStringSubmatch(text); m != nil {
		queries = append(queries, fetchapi.LocationQuery{
			City:   strings.TrimSpace(m[1]),
			States: []string{strings.ToUpper(m[2])},
			Size:   cityQuerySize,
		})
	}
	if zipPattern.MatchString(text) {
		queries = append(queries, fetchapi.LocationQuery{ZipCodes: []string{text}, Size: zipQuerySize})
	}
	if statePattern.MatchString(text) {
		queries = append(queries, fetchapi.LocationQuery{States: []string{strings.ToUpper(text)}, Size: cityQuerySize})
	}
	return queries
}

// Resolve runs the searches for text and groups the results. Text shorter
// than two characters resolves to nothing without touching the API.
func (r *LocationResolver) Resolve(ctx context.Context, text string) Resolution {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minResolveLength {
		return Resolution{Options: []model.Location{}}
	}

	var found []model.Location
	for _, batch := range r.fanOut(ctx, LocationQueries(text)) {
		found = append(found, batch...)
	}
	found = append(found, matchKnown(text, found)...)

	res := Resolution{Options: GroupLocations(found)}
	if utf8.RuneCountInString(text) >= minManualLength && !hasExactMatch(text, found) {
		entry := ManualEntry(text)
		res.ManualEntry = &entry
	}
	return res
}

// Warmup builds the options shown when the picker opens with nothing typed:
// the known locations (searched for, or added as placeholders), then a
// handful of popular cities and states.
func (r *LocationResolver) Warmup(ctx context.Context) []model.Location {
	queries := make([]fetchapi.LocationQuery, 0, len(KnownLocations)+len(popularCities)+1)
	for _, k := range KnownLocations {
		queries = append(queries, fetchapi.LocationQuery{City: k.City, States: []string{k.State}, Size: knownQuerySize})
	}
	for _, city := range popularCities {
		queries = append(queries, fetchapi.LocationQuery{City: city, Size: warmupQuerySize})
	}
	queries = append(queries, fetchapi.LocationQuery{States: popularStates, Size: warmupQuerySize})

	batches := r.fanOut(ctx, queries)

	var found []model.Location
	for i, batch := range batches {
		if i < len(KnownLocations) && len(batch) == 0 {
			found = append(found, placeholder(KnownLocations[i]))
			continue
		}
		found = append(found, batch...)
	}
	return GroupLocations(found)
}

// fanOut runs queries concurrently and returns their results by index.
func (r *LocationResolver) fanOut(ctx context.Context, queries []fetchapi.LocationQuery) [][]model.Location {
	results := make([][]model.Location, len(queries))

	var g errgroup.Group
	g.SetLimit(resolverWorkers)
	for i, q := range queries {
		g.Go(func() error {
			res, err := r.api.SearchLocations(ctx, q)
			if err != nil {
				r.logger.Warn("location search failed",
					slog.String("city", q.City),
					slog.Any("states", q.States),
					slog.Any("zipCodes", q.ZipCodes),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i] = res.Results
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// GroupLocations merges records that share a (city, state) key.
//
// The first record of a group supplies its fields; every later record adds
// its zip codes to zip_codes. A group is a manual entry only if all of its
// records were. Groups keep the order in which their keys first appeared.
func GroupLocations(locs []model.Location) []model.Location {
	index := make(map[string]int)
	out := make([]model.Location, 0, len(locs))

	for _, loc := range locs {
		if strings.TrimSpace(loc.City) == "" {
			continue
		}

		key := loc.Key()
		i, ok := index[key]
		if !ok {
			merged := loc
			merged.ZipCodes = addZips(nil, loc)
			index[key] = len(out)
			out = append(out, merged)
			continue
		}

		g := &out[i]
		g.ZipCodes = addZips(g.ZipCodes, loc)
		if !loc.IsManualEntry {
			g.IsManualEntry = false
		}
	}

	for i := range out {
		if len(out[i].ZipCodes) == 0 {
			out[i].ZipCodes = []string{model.ZipUnknown}
		}
		if out[i].ZipCode == "" {
			out[i].ZipCode = out[i].ZipCodes[0]
		}
	}
	return out
}

func addZips(zips []string, loc model.Location) []string {
	candidates := append([]string{loc.ZipCode}, loc.ZipCodes...)
	for _, z := range candidates {
		if z == "" || contains(zips, z) {
			continue
		}
		zips = append(zips, z)
	}
	return zips
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// matchKnown returns placeholders for known locations that match text and
// are missing from found.
func matchKnown(text string, found []model.Location) []model.Location {
	lower := strings.ToLower(text)

	var out []model.Location
	for _, k := range KnownLocations {
		cityMatch := strings.Contains(strings.ToLower(k.City), lower)
		stateMatch := strings.ToLower(k.State) == lower
		labelMatch := strings.Contains(strings.ToLower(k.Label()), lower)
		if !cityMatch && !stateMatch && !labelMatch {
			continue
		}
		if present(k, found) {
			continue
		}
		out = append(out, placeholder(k))
	}
	return out
}

func present(k model.Location, found []model.Location) bool {
	for _, f := range found {
		if strings.EqualFold(strings.TrimSpace(f.City), k.City) && f.State == k.State {
			return true
		}
	}
	return false
}

func placeholder(k model.Location) model.Location {
	return model.Location{
		City:          k.City,
		State:         k.State,
		ZipCode:       model.ZipUnknown,
		ZipCodes:      []string{model.ZipUnknown},
		IsManualEntry: true,
	}
}

func hasExactMatch(text string, found []model.Location) bool {
	for _, f := range found {
		if strings.EqualFold(f.Label(), text) {
			return true
		}
	}
	return false
}

// ManualEntry builds a hand-typed location from text, splitting on the
// first comma into city and state.
func ManualEntry(text string) model.Location {
	city, state, _ := strings.Cut(strings.TrimSpace(text), ",")
	return model.Location{
		City:          strings.TrimSpace(city),
		State:         strings.ToUpper(strings.TrimSpace(state)),
		ZipCode:       model.ZipCustom,
		ZipCodes:      []string{model.ZipCustom},
		IsManualEntry: true,
	}
}
