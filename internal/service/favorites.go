package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/model"
	"github.com/sakif/dog-adoption/internal/repository"
)

// Favorites is the visitor's set of favorite dog ids and the match
// generated from it.
//
// The set is ordered by insertion. Full records are fetched on demand and
// cached until the set changes; a fetch that finishes after the set has
// changed again is returned but not cached.
type Favorites struct {
	api    FavoritesAPI
	values SessionValues
	logger *slog.Logger

	mu       sync.Mutex
	ids      []string
	version  uint64
	records  []model.Dog
	cachedAt uint64
	cached   bool
	matchID  string
}

func NewFavorites(api FavoritesAPI, values SessionValues, logger *slog.Logger) *Favorites {
	return &Favorites{api: api, values: values, logger: logger, ids: []string{}}
}

// Toggle adds id if absent and removes it if present. It reports whether
// id is a favorite afterwards.
func (f *Favorites) Toggle(id string) (bool, Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.removeLocked(id) {
		return false, Notice{SeverityInfo, msgRemovedFavorite}
	}
	f.ids = append(f.ids, id)
	f.version++
	return true, Notice{SeveritySuccess, msgAddedFavorite}
}

// Remove deletes id. Removing an id that is not a favorite is a no-op
// and returns false.
func (f *Favorites) Remove(id string) (bool, Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.removeLocked(id) {
		return false, Notice{}
	}
	return true, Notice{SeverityInfo, msgRemovedFavorite}
}

func (f *Favorites) removeLocked(id string) bool {
	for i, v := range f.ids {
		if v == id {
			f.ids = append(f.ids[:i:i], f.ids[i+1:]...)
			f.version++
			return true
		}
	}
	return false
}

func (f *Favorites) IDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.ids...)
}

func (f *Favorites) Contains(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return contains(f.ids, id)
}

// Records returns the full favorite dogs. An empty set answers without
// calling the API.
func (f *Favorites) Records(ctx context.Context) ([]model.Dog, error) {
	f.mu.Lock()
	ids := append([]string{}, f.ids...)
	version := f.version
	if f.cached && f.cachedAt == version {
		out := append([]model.Dog{}, f.records...)
		f.mu.Unlock()
		return out, nil
	}
	f.mu.Unlock()

	if len(ids) == 0 {
		return []model.Dog{}, nil
	}

	dogs, err := f.api.Dogs(ctx, ids)
	if err != nil {
		f.logger.Error("failed to load favorites", slog.Int("count", len(ids)), slog.String("error", err.Error()))
		return nil, upstreamError(err, msgLoadFavorites)
	}

	f.mu.Lock()
	if f.version == version {
		f.records = dogs
		f.cachedAt = version
		f.cached = true
	}
	f.mu.Unlock()
	return append([]model.Dog{}, dogs...), nil
}

// GenerateMatch asks the API to pick one of the favorites and remembers
// the result in the session store for the match view.
func (f *Favorites) GenerateMatch(ctx context.Context) (string, error) {
	ids := f.IDs()
	if len(ids) == 0 {
		return "", apperror.PreconditionFailed(msgNoFavorites)
	}

	id, err := f.api.Match(ctx, ids)
	if err != nil {
		f.logger.Error("failed to generate match", slog.Int("favorites", len(ids)), slog.String("error", err.Error()))
		return "", upstreamError(err, msgMatchFailed)
	}
	if id == "" {
		f.logger.Error("match response had no id", slog.Int("favorites", len(ids)))
		return "", apperror.Unavailable(msgMatchFailed)
	}

	f.mu.Lock()
	f.matchID = id
	f.mu.Unlock()

	if err := f.values.Set(ctx, repository.KeyMatchedDogID, id); err != nil {
		f.logger.Error("failed to persist match", slog.String("error", err.Error()))
	}

	f.logger.Info("match generated", slog.String("dog_id", id), slog.Int("favorites", len(ids)))
	return id, nil
}

// MatchedDog loads the dog from the last GenerateMatch. It returns an
// ErrPrecondition error when no match has been made.
func (f *Favorites) MatchedDog(ctx context.Context) (*model.Dog, error) {
	id, err := f.values.Get(ctx, repository.KeyMatchedDogID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			f.logger.Error("failed to read saved match", slog.String("error", err.Error()))
		}
		f.mu.Lock()
		id = f.matchID
		f.mu.Unlock()
	}
	if id == "" {
		return nil, apperror.PreconditionFailed(msgNoMatch)
	}

	dogs, err := f.api.Dogs(ctx, []string{id})
	if err != nil {
		f.logger.Error("failed to load matched dog", slog.String("dog_id", id), slog.String("error", err.Error()))
		return nil, upstreamError(err, msgLoadMatch)
	}
	for _, d := range dogs {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, apperror.NotFound("dog", id)
}

// Reset forgets the favorites and the match.
func (f *Favorites) Reset(ctx context.Context) {
	f.mu.Lock()
	f.ids = []string{}
	f.version++
	f.records = nil
	f.cached = false
	f.matchID = ""
	f.mu.Unlock()

	if err := f.values.Delete(ctx, repository.KeyMatchedDogID); err != nil {
		f.logger.Error("failed to clear saved match", slog.String("error", err.Error()))
	}
}
