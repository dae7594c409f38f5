package service

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/fetchapi"
	"github.com/sakif/dog-adoption/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func intPtr(i int) *int { return &i }

// fakeAPI is an in-memory stand-in for the upstream API. It serves every
// component interface. Hooks (searchFn, locationFn) override the canned
// answers when a test needs per-request behavior.
type fakeAPI struct {
	mu sync.Mutex

	loginErr  error
	logoutErr error
	breedsErr error
	dogsErr   error
	matchErr  error

	breeds     []string
	dogs       map[string]model.Dog
	matchID    string
	searchFn   func(q fetchapi.SearchQuery) (*fetchapi.SearchResult, error)
	locationFn func(q fetchapi.LocationQuery) (*fetchapi.LocationSearchResult, error)

	calls           map[string]int
	searchQueries   []fetchapi.SearchQuery
	locationQueries []fetchapi.LocationQuery
	dogRequests     [][]string
	matchRequests   [][]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		breeds: []string{"Beagle", "Husky", "Pug"},
		dogs:   make(map[string]model.Dog),
		calls:  make(map[string]int),
	}
}

func (f *fakeAPI) addDogs(dogs ...model.Dog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range dogs {
		f.dogs[d.ID] = d
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAPI) Login(ctx context.Context, name, email string) error {
	f.record("login")
	return f.loginErr
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.record("logout")
	return f.logoutErr
}

func (f *fakeAPI) Breeds(ctx context.Context) ([]string, error) {
	f.record("breeds")
	if f.breedsErr != nil {
		return nil, f.breedsErr
	}
	return f.breeds, nil
}

func (f *fakeAPI) SearchDogs(ctx context.Context, q fetchapi.SearchQuery) (*fetchapi.SearchResult, error) {
	f.mu.Lock()
	f.calls["search"]++
	f.searchQueries = append(f.searchQueries, q)
	fn := f.searchFn
	f.mu.Unlock()

	if fn != nil {
		return fn(q)
	}
	return &fetchapi.SearchResult{ResultIDs: []string{}}, nil
}

// Dogs answers in reverse request order so callers must reorder.
func (f *fakeAPI) Dogs(ctx context.Context, ids []string) ([]model.Dog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["dogs"]++
	f.dogRequests = append(f.dogRequests, append([]string{}, ids...))
	if f.dogsErr != nil {
		return nil, f.dogsErr
	}

	out := make([]model.Dog, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if d, ok := f.dogs[ids[i]]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeAPI) Match(ctx context.Context, ids []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["match"]++
	f.matchRequests = append(f.matchRequests, append([]string{}, ids...))
	if f.matchErr != nil {
		return "", f.matchErr
	}
	return f.matchID, nil
}

func (f *fakeAPI) SearchLocations(ctx context.Context, q fetchapi.LocationQuery) (*fetchapi.LocationSearchResult, error) {
	f.mu.Lock()
	f.calls["locations"]++
	f.locationQueries = append(f.locationQueries, q)
	fn := f.locationFn
	f.mu.Unlock()

	if fn != nil {
		return fn(q)
	}
	return &fetchapi.LocationSearchResult{Results: []model.Location{}}, nil
}

// fakeValues is a map-backed SessionValues.
type fakeValues struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeValues() *fakeValues {
	return &fakeValues{data: make(map[string]string)}
}

func (v *fakeValues) Get(ctx context.Context, key string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	val, ok := v.data[key]
	if !ok {
		return "", apperror.NotFound("session value", key)
	}
	return val, nil
}

func (v *fakeValues) Set(ctx context.Context, key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[key] = value
	return nil
}

func (v *fakeValues) Delete(ctx context.Context, keys ...string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, k := range keys {
		delete(v.data, k)
	}
	return nil
}

func (v *fakeValues) has(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.data[key]
	return ok
}

// fakeKeeper counts credential saves and clears.
type fakeKeeper struct {
	mu     sync.Mutex
	saves  int
	clears int
}

func (k *fakeKeeper) Save(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.saves++
	return nil
}

func (k *fakeKeeper) Clear(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.clears++
	return nil
}
