package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/model"
	"github.com/sakif/dog-adoption/internal/repository"
)

func newTestFavorites(t *testing.T) (*Favorites, *fakeAPI, *fakeValues) {
	t.Helper()
	api := newFakeAPI()
	api.addDogs(
		model.Dog{ID: "a", Name: "Ace"},
		model.Dog{ID: "b", Name: "Bea"},
		model.Dog{ID: "c", Name: "Cy"},
	)
	values := newFakeValues()
	return NewFavorites(api, values, testLogger()), api, values
}

func TestToggle(t *testing.T) {
	f, _, _ := newTestFavorites(t)

	on, n := f.Toggle("a")
	assert.True(t, on)
	assert.Equal(t, Notice{SeveritySuccess, "Added to favorites"}, n)
	assert.True(t, f.Contains("a"))

	on, n = f.Toggle("a")
	assert.False(t, on)
	assert.Equal(t, Notice{SeverityInfo, "Removed from favorites"}, n)
	assert.False(t, f.Contains("a"))
}

func TestToggle_TwiceRestoresSet(t *testing.T) {
	f, _, _ := newTestFavorites(t)
	f.Toggle("a")
	f.Toggle("b")
	before := f.IDs()

	f.Toggle("c")
	f.Toggle("c")
	assert.Equal(t, before, f.IDs())

	f.Toggle("a")
	f.Toggle("a")
	assert.ElementsMatch(t, before, f.IDs())
}

func TestRemove(t *testing.T) {
	f, _, _ := newTestFavorites(t)
	f.Toggle("a")

	removed, n := f.Remove("a")
	assert.True(t, removed)
	assert.Equal(t, "Removed from favorites", n.Message)

	removed, _ = f.Remove("a")
	assert.False(t, removed)
	assert.Empty(t, f.IDs())
}

func TestRecords(t *testing.T) {
	f, api, _ := newTestFavorites(t)

	dogs, err := f.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dogs)
	assert.Equal(t, 0, api.count("dogs"), "empty set must not call the API")

	f.Toggle("a")
	f.Toggle("b")
	dogs, err = f.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, dogs, 2)

	_, _ = f.Records(context.Background())
	assert.Equal(t, 1, api.count("dogs"), "unchanged set is served from cache")

	f.Toggle("c")
	dogs, _ = f.Records(context.Background())
	assert.Len(t, dogs, 3)
	assert.Equal(t, 2, api.count("dogs"))
}

func TestRecords_Failure(t *testing.T) {
	f, api, _ := newTestFavorites(t)
	f.Toggle("a")
	api.dogsErr = errors.New("boom")

	_, err := f.Records(context.Background())
	assert.True(t, errors.Is(err, apperror.ErrUnavailable))
}

// =========================================================================
// MATCH
// =========================================================================

func TestGenerateMatch(t *testing.T) {
	f, api, values := newTestFavorites(t)
	api.matchID = "b"
	f.Toggle("a")
	f.Toggle("b")
	f.Toggle("c")

	id, err := f.GenerateMatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", id)

	api.mu.Lock()
	assert.Equal(t, [][]string{{"a", "b", "c"}}, api.matchRequests)
	api.mu.Unlock()

	saved, err := values.Get(context.Background(), repository.KeyMatchedDogID)
	require.NoError(t, err)
	assert.Equal(t, "b", saved)

	dog, err := f.MatchedDog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bea", dog.Name)
}

func TestGenerateMatch_NoFavorites(t *testing.T) {
	f, api, _ := newTestFavorites(t)

	_, err := f.GenerateMatch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrPrecondition))
	assert.Equal(t, "You need to add some dogs to your favorites list first", err.Error())
	assert.Equal(t, 0, api.count("match"))
}

func TestGenerateMatch_Failure(t *testing.T) {
	f, api, values := newTestFavorites(t)
	api.matchErr = errors.New("boom")
	f.Toggle("a")

	_, err := f.GenerateMatch(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to generate match", err.Error())
	assert.False(t, values.has(repository.KeyMatchedDogID))
}

func TestMatchedDog_NoneYet(t *testing.T) {
	f, api, _ := newTestFavorites(t)

	_, err := f.MatchedDog(context.Background())
	assert.True(t, errors.Is(err, apperror.ErrPrecondition))
	assert.Equal(t, 0, api.count("dogs"))
}

func TestMatchedDog_ReadsSavedID(t *testing.T) {
	f, _, values := newTestFavorites(t)
	_ = values.Set(context.Background(), repository.KeyMatchedDogID, "c")

	dog, err := f.MatchedDog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cy", dog.Name)
}

func TestMatchedDog_UnknownDog(t *testing.T) {
	f, _, values := newTestFavorites(t)
	_ = values.Set(context.Background(), repository.KeyMatchedDogID, "zzz")

	_, err := f.MatchedDog(context.Background())
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestFavoritesReset(t *testing.T) {
	f, api, values := newTestFavorites(t)
	api.matchID = "a"
	f.Toggle("a")
	_, _ = f.GenerateMatch(context.Background())

	f.Reset(context.Background())

	assert.Empty(t, f.IDs())
	assert.False(t, values.has(repository.KeyMatchedDogID))
	_, err := f.MatchedDog(context.Background())
	assert.True(t, errors.Is(err, apperror.ErrPrecondition))
}
