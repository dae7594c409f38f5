package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/dog-adoption/internal/fetchapi"
	"github.com/sakif/dog-adoption/internal/model"
)

// Status is the lifecycle of the current page of results.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusErrored Status = "errored"
)

// DefaultPageSize is the number of dogs per page.
const DefaultPageSize = 20

// SearchSnapshot is what the search view renders.
type SearchSnapshot struct {
	Status   Status         `json:"status"`
	Error    string         `json:"error,omitempty"`
	Criteria model.Criteria `json:"criteria"`
	Page     model.Page     `json:"page"`
	HasNext  bool           `json:"hasNext"`
	HasPrev  bool           `json:"hasPrev"`
}

// Search runs dog searches and keeps the current page.
//
// Each load is two API calls: GET /dogs/search for ids, then POST /dogs
// for the records, which are put back into search order. Every load takes
// a sequence number; a response whose number is no longer current is
// dropped, so the latest request always wins.
//
// Applying filters or changing the sort starts over at page 1. A failed
// load keeps the previous page on screen.
type Search struct {
	api      SearchAPI
	pageSize int
	logger   *slog.Logger

	mu       sync.Mutex
	criteria model.Criteria
	page     model.Page
	status   Status
	errMsg   string
	seq      uint64
	breeds   []string

	// the request that failed last, replayed by Load
	retryCursor model.Cursor
	retryPage   int
}

func NewSearch(api SearchAPI, pageSize int, logger *slog.Logger) *Search {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Search{
		api:      api,
		pageSize: pageSize,
		logger:   logger,
		criteria: ResetCriteria(model.DefaultSortOrder),
		page:     model.Page{Items: []model.Dog{}, PageNumber: 1},
		status:   StatusIdle,
	}
}

// Load fetches page 1 if nothing has been loaded yet, or retries the last
// failed request. Otherwise it returns the current snapshot.
func (s *Search) Load(ctx context.Context) (SearchSnapshot, error) {
	s.mu.Lock()
	status, criteria := s.status, s.criteria
	cursor, pageNumber := s.retryCursor, s.retryPage
	s.mu.Unlock()

	switch status {
	case StatusIdle:
		return s.run(ctx, criteria, "", 1)
	case StatusErrored:
		return s.run(ctx, criteria, cursor, pageNumber)
	default:
		return s.Snapshot(), nil
	}
}

// ApplyFilters validates c and searches from page 1. The sort order is
// kept from the current criteria.
func (s *Search) ApplyFilters(ctx context.Context, c model.Criteria) (SearchSnapshot, error) {
	if err := ValidateApply(c); err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	c.Sort = s.criteria.Sort
	s.mu.Unlock()

	return s.run(ctx, normalizeCriteria(c), "", 1)
}

// ChangeSort re-runs the current filters in a new order from page 1.
func (s *Search) ChangeSort(ctx context.Context, order model.SortOrder) (SearchSnapshot, error) {
	s.mu.Lock()
	c := s.criteria
	s.mu.Unlock()

	c.Sort = order
	return s.run(ctx, c, "", 1)
}

// ChangePage moves one page forward or back. Moving past either end is a
// no-op and sends no request.
func (s *Search) ChangePage(ctx context.Context, dir model.PageDirection) (SearchSnapshot, error) {
	s.mu.Lock()
	c, page := s.criteria, s.page
	s.mu.Unlock()

	switch {
	case dir == model.PageNext && page.HasNext():
		return s.run(ctx, c, page.Next, page.PageNumber+1)
	case dir == model.PagePrev && page.HasPrev():
		return s.run(ctx, c, page.Prev, max(page.PageNumber-1, 1))
	default:
		return s.Snapshot(), nil
	}
}

// Reset clears every filter and searches again from page 1.
func (s *Search) Reset(ctx context.Context) (SearchSnapshot, error) {
	s.mu.Lock()
	sort := s.criteria.Sort
	s.mu.Unlock()

	return s.run(ctx, ResetCriteria(sort), "", 1)
}

// Clear returns the search to its initial, never-loaded state without
// calling the API. Any load in flight is discarded.
func (s *Search) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.criteria = ResetCriteria(model.DefaultSortOrder)
	s.retryCursor = ""
	s.retryPage = 0
	s.page = model.Page{Items: []model.Dog{}, PageNumber: 1}
	s.status = StatusIdle
	s.errMsg = ""
}

// Breeds returns the breed list, fetched once and then cached.
func (s *Search) Breeds(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	cached := s.breeds
	s.mu.Unlock()
	if cached != nil {
		return append([]string{}, cached...), nil
	}

	breeds, err := s.api.Breeds(ctx)
	if err != nil {
		s.logger.Error("failed to load breeds", slog.String("error", err.Error()))
		return nil, upstreamError(err, msgLoadBreeds)
	}
	if breeds == nil {
		breeds = []string{}
	}

	s.mu.Lock()
	s.breeds = breeds
	s.mu.Unlock()
	return append([]string{}, breeds...), nil
}

func (s *Search) Snapshot() SearchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Search) snapshotLocked() SearchSnapshot {
	page := s.page
	page.Items = append([]model.Dog{}, s.page.Items...)
	return SearchSnapshot{
		Status:   s.status,
		Error:    s.errMsg,
		Criteria: s.criteria,
		Page:     page,
		HasNext:  page.HasNext(),
		HasPrev:  page.HasPrev(),
	}
}

func (s *Search) run(ctx context.Context, c model.Criteria, cursor model.Cursor, pageNumber int) (SearchSnapshot, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.criteria = c
	s.status = StatusLoading
	s.errMsg = ""
	s.mu.Unlock()

	q := fetchapi.SearchQuery{
		Breeds:   c.Breeds,
		ZipCodes: c.ZipCodes(),
		AgeMin:   c.AgeMin,
		AgeMax:   c.AgeMax,
		Size:     s.pageSize,
		Sort:     c.Sort.String(),
		Cursor:   cursor,
	}

	res, err := s.api.SearchDogs(ctx, q)
	var dogs []model.Dog
	if err == nil {
		dogs, err = fetchInOrder(ctx, s.api, res.ResultIDs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		s.logger.Debug("discarding superseded search response", slog.Uint64("seq", seq))
		return s.snapshotLocked(), nil
	}

	if err != nil {
		s.status = StatusErrored
		s.errMsg = msgLoadDogs
		s.retryCursor = cursor
		s.retryPage = pageNumber
		s.logger.Error("failed to load dogs",
			slog.Int("page", pageNumber),
			slog.String("sort", q.Sort),
			slog.String("error", err.Error()),
		)
		return s.snapshotLocked(), upstreamError(err, msgLoadDogs)
	}

	s.page = model.Page{
		Items:      dogs,
		Total:      res.Total,
		Next:       model.Cursor(res.Next),
		Prev:       model.Cursor(res.Prev),
		PageNumber: pageNumber,
	}
	s.status = StatusLoaded
	return s.snapshotLocked(), nil
}

// fetchInOrder loads the records for ids and returns them in ids order.
// Ids the API did not return are skipped.
func fetchInOrder(ctx context.Context, api dogFetcher, ids []string) ([]model.Dog, error) {
	if len(ids) == 0 {
		return []model.Dog{}, nil
	}

	dogs, err := api.Dogs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Dog, len(dogs))
	for _, d := range dogs {
		byID[d.ID] = d
	}
	ordered := make([]model.Dog, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			ordered = append(ordered, d)
		}
	}
	return ordered, nil
}

type dogFetcher interface {
	Dogs(ctx context.Context, ids []string) ([]model.Dog, error)
}
