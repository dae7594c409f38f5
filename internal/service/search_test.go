package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/fetchapi"
	"github.com/sakif/dog-adoption/internal/model"
)

func newTestSearch(t *testing.T) (*Search, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	api.addDogs(
		model.Dog{ID: "d1", Name: "Bo", Breed: "Beagle", Age: 3},
		model.Dog{ID: "d2", Name: "Rex", Breed: "Pug", Age: 5},
		model.Dog{ID: "d3", Name: "Zed", Breed: "Husky", Age: 7},
	)
	api.searchFn = func(q fetchapi.SearchQuery) (*fetchapi.SearchResult, error) {
		return &fetchapi.SearchResult{
			ResultIDs: []string{"d1", "d2", "d3"},
			Total:     45,
			Next:      "/dogs/search?size=20&from=20",
		}, nil
	}
	return NewSearch(api, 20, testLogger()), api
}

func lastQuery(api *fakeAPI) fetchapi.SearchQuery {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.searchQueries[len(api.searchQueries)-1]
}

// =========================================================================
// REQUEST BUILDING
// =========================================================================

func TestApplyFilters_BuildsRequest(t *testing.T) {
	s, api := newTestSearch(t)

	_, err := s.ApplyFilters(context.Background(), model.Criteria{
		Breeds: []string{"Beagle"},
		AgeMin: intPtr(2),
		AgeMax: intPtr(8),
		Locations: []model.Location{
			{City: "San Antonio", State: "TX", ZipCode: "78201", ZipCodes: []string{"78201", "78202"}},
			ManualEntry("Smallville, KS"),
		},
	})
	require.NoError(t, err)

	q := lastQuery(api)
	assert.Equal(t, []string{"Beagle"}, q.Breeds)
	assert.Equal(t, []string{"78201", "78202"}, q.ZipCodes)
	assert.Equal(t, intPtr(2), q.AgeMin)
	assert.Equal(t, intPtr(8), q.AgeMax)
	assert.Equal(t, 20, q.Size)
	assert.Equal(t, "breed:asc", q.Sort)
	assert.Empty(t, q.Cursor)
}

func TestApplyFilters_NoDefaultFilters(t *testing.T) {
	s, api := newTestSearch(t)

	_, err := s.Load(context.Background())
	require.NoError(t, err)

	q := lastQuery(api)
	assert.Empty(t, q.Breeds)
	assert.Empty(t, q.ZipCodes)
	assert.Nil(t, q.AgeMin)
	assert.Nil(t, q.AgeMax)
}

func TestApplyFilters_RejectsInvertedAges(t *testing.T) {
	s, api := newTestSearch(t)

	_, err := s.ApplyFilters(context.Background(), model.Criteria{AgeMin: intPtr(9), AgeMax: intPtr(2)})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Equal(t, 0, api.count("search"))
}

// =========================================================================
// RESULTS
// =========================================================================

func TestLoad_PreservesSearchOrder(t *testing.T) {
	s, _ := newTestSearch(t)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Page.Items, 3)
	assert.Equal(t, "d1", snap.Page.Items[0].ID)
	assert.Equal(t, "d2", snap.Page.Items[1].ID)
	assert.Equal(t, "d3", snap.Page.Items[2].ID)
	assert.Equal(t, 45, snap.Page.Total)
	assert.Equal(t, StatusLoaded, snap.Status)
	assert.True(t, snap.HasNext)
	assert.False(t, snap.HasPrev)
}

func TestLoad_EmptyResultSkipsBulkFetch(t *testing.T) {
	s, api := newTestSearch(t)
	api.searchFn = func(q fetchapi.SearchQuery) (*fetchapi.SearchResult, error) {
		return &fetchapi.SearchResult{ResultIDs: []string{}, Total: 0}, nil
	}

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Page.Items)
	assert.Equal(t, 0, api.count("dogs"))
}

func TestLoad_OnlyOnceWhenLoaded(t *testing.T) {
	s, api := newTestSearch(t)

	_, _ = s.Load(context.Background())
	_, _ = s.Load(context.Background())
	assert.Equal(t, 1, api.count("search"))
}

// =========================================================================
// PAGINATION
// =========================================================================

func TestChangePage_FollowsCursor(t *testing.T) {
	s, api := newTestSearch(t)
	_, _ = s.Load(context.Background())

	api.searchFn = func(q fetchapi.SearchQuery) (*fetchapi.SearchResult, error) {
		return &fetchapi.SearchResult{
			ResultIDs: []string{"d3"},
			Total:     45,
			Prev:      "/dogs/search?size=20&from=0",
		}, nil
	}

	snap, err := s.ChangePage(context.Background(), model.PageNext)
	require.NoError(t, err)
	assert.Equal(t, model.Cursor("/dogs/search?size=20&from=20"), lastQuery(api).Cursor)
	assert.Equal(t, 2, snap.Page.PageNumber)
	assert.False(t, snap.HasNext)
	assert.True(t, snap.HasPrev)

	// No next cursor: moving forward is a no-op.
	before := api.count("search")
	snap, err = s.ChangePage(context.Background(), model.PageNext)
	require.NoError(t, err)
	assert.Equal(t, before, api.count("search"))
	assert.Equal(t, 2, snap.Page.PageNumber)
}

func TestChangePage_PrevOnFirstPageIsNoop(t *testing.T) {
	s, api := newTestSearch(t)
	_, _ = s.Load(context.Background())

	snap, err := s.ChangePage(context.Background(), model.PagePrev)
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("search"))
	assert.Equal(t, 1, snap.Page.PageNumber)
}

func TestChangeSort_ResetsToFirstPage(t *testing.T) {
	s, api := newTestSearch(t)
	_, _ = s.Load(context.Background())
	_, _ = s.ChangePage(context.Background(), model.PageNext)

	order := model.SortOrder{Field: model.SortByAge, Direction: model.Descending}
	snap, err := s.ChangeSort(context.Background(), order)
	require.NoError(t, err)

	q := lastQuery(api)
	assert.Equal(t, "age:desc", q.Sort)
	assert.Empty(t, q.Cursor)
	assert.Equal(t, 1, snap.Page.PageNumber)
	assert.Equal(t, order, snap.Criteria.Sort)
}

func TestApplyFilters_KeepsSortAndResetsPage(t *testing.T) {
	s, api := newTestSearch(t)
	order := model.SortOrder{Field: model.SortByName, Direction: model.Ascending}
	_, _ = s.ChangeSort(context.Background(), order)
	_, _ = s.ChangePage(context.Background(), model.PageNext)

	snap, err := s.ApplyFilters(context.Background(), model.Criteria{Breeds: []string{"Pug", "Pug", " "}})
	require.NoError(t, err)

	q := lastQuery(api)
	assert.Equal(t, "name:asc", q.Sort)
	assert.Equal(t, []string{"Pug"}, q.Breeds)
	assert.Empty(t, q.Cursor)
	assert.Equal(t, 1, snap.Page.PageNumber)
}

func TestReset_ClearsFilters(t *testing.T) {
	s, api := newTestSearch(t)
	_, _ = s.ApplyFilters(context.Background(), model.Criteria{Breeds: []string{"Pug"}, AgeMin: intPtr(3)})

	snap, err := s.Reset(context.Background())
	require.NoError(t, err)

	q := lastQuery(api)
	assert.Empty(t, q.Breeds)
	assert.Nil(t, q.AgeMin)
	assert.Empty(t, snap.Criteria.Breeds)
	assert.Equal(t, 1, snap.Page.PageNumber)
}

// =========================================================================
// FAILURES
// =========================================================================

func TestLoad_FailureKeepsPreviousPage(t *testing.T) {
	s, api := newTestSearch(t)
	_, _ = s.Load(context.Background())

	api.searchFn = func(q fetchapi.SearchQuery) (*fetchapi.SearchResult, error) {
		return nil, apperror.ErrUnavailable
	}

	snap, err := s.ChangePage(context.Background(), model.PageNext)
	require.Error(t, err)
	assert.Equal(t, "Failed to load dogs", err.Error())
	assert.True(t, errors.Is(err, apperror.ErrUnavailable))

	assert.Equal(t, StatusErrored, snap.Status)
	assert.Equal(t, "Failed to load dogs", snap.Error)
	assert.Equal(t, 1, snap.Page.PageNumber)
	assert.Len(t, snap.Page.Items, 3)
}

func TestLoad_RetriesFailedRequest(t *testing.T) {
	s, api := newTestSearch(t)
	_, _ = s.Load(context.Background())

	ok := api.searchFn
	api.searchFn = func(q fetchapi.SearchQuery) (*fetchapi.SearchResult, error) {
		return nil, apperror.ErrUnavailable
	}
	_, _ = s.ChangePage(context.Background(), model.PageNext)

	api.searchFn = ok
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Cursor("/dogs/search?size=20&from=20"), lastQuery(api).Cursor)
	assert.Equal(t, 2, snap.Page.PageNumber)
	assert.Equal(t, StatusLoaded, snap.Status)
}

func TestLoad_BulkFetchFailure(t *testing.T) {
	s, api := newTestSearch(t)
	api.dogsErr = errors.New("boom")

	snap, err := s.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusErrored, snap.Status)
}

func TestLoad_UnauthorizedMapsToSessionExpired(t *testing.T) {
	s, api := newTestSearch(t)
	api.searchFn = func(q fetchapi.SearchQuery) (*fetchapi.SearchResult, error) {
		return nil, apperror.Unauthorized("nope")
	}

	_, err := s.Load(context.Background())
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
}

func TestSearch_StaleResponseIsDropped(t *testing.T) {
	s, api := newTestSearch(t)

	// The first request triggers a second one before it returns, so by the
	// time it completes it is no longer the latest.
	first := true
	api.searchFn = func(q fetchapi.SearchQuery) (*fetchapi.SearchResult, error) {
		if first {
			first = false
			_, err := s.ChangeSort(context.Background(), model.SortOrder{Field: model.SortByAge, Direction: model.Ascending})
			require.NoError(t, err)
			return &fetchapi.SearchResult{ResultIDs: []string{"d3"}, Total: 1}, nil
		}
		return &fetchapi.SearchResult{ResultIDs: []string{"d1", "d2"}, Total: 2}, nil
	}

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Page.Total)
	require.Len(t, snap.Page.Items, 2)
	assert.Equal(t, "d1", snap.Page.Items[0].ID)
	assert.Equal(t, "age:asc", snap.Criteria.Sort.String())
}

// =========================================================================
// BREEDS
// =========================================================================

func TestBreeds_Cached(t *testing.T) {
	s, api := newTestSearch(t)

	b1, err := s.Breeds(context.Background())
	require.NoError(t, err)
	b2, _ := s.Breeds(context.Background())

	assert.Equal(t, []string{"Beagle", "Husky", "Pug"}, b1)
	assert.Equal(t, b1, b2)
	assert.Equal(t, 1, api.count("breeds"))
}

func TestBreeds_Failure(t *testing.T) {
	s, api := newTestSearch(t)
	api.breedsErr = errors.New("boom")

	_, err := s.Breeds(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to load dog breeds", err.Error())
}
