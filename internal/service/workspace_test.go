package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/auth"
	"github.com/sakif/dog-adoption/internal/fetchapi"
	"github.com/sakif/dog-adoption/internal/repository/sqlite"
)

// upstream is a tiny stand-in for the dog API that checks the auth cookie.
type upstream struct {
	srv     *httptest.Server
	expired atomic.Bool
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}

	authed := func(w http.ResponseWriter, r *http.Request) bool {
		if _, err := r.Cookie("fetch-access-token"); err != nil || u.expired.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "fetch-access-token", Value: "tok", Path: "/"})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("GET /dogs/breeds", func(w http.ResponseWriter, r *http.Request) {
		if authed(w, r) {
			_ = json.NewEncoder(w).Encode([]string{"Beagle"})
		}
	})
	mux.HandleFunc("GET /dogs/search", func(w http.ResponseWriter, r *http.Request) {
		if authed(w, r) {
			_ = json.NewEncoder(w).Encode(fetchapi.SearchResult{ResultIDs: []string{}})
		}
	})

	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

type navRecorder struct {
	calls atomic.Int32
	last  atomic.Value
}

func (n *navRecorder) ToLogin(ctx context.Context, sessionID string) {
	n.calls.Add(1)
	n.last.Store(sessionID)
}

func newTestWorkspaces(t *testing.T, u *upstream, db *sqlite.DB, nav Navigator) *Workspaces {
	t.Helper()
	sealer, err := auth.NewSealer("test-secret-at-least-16-chars!!")
	require.NoError(t, err)

	factory := func() (*fetchapi.Client, error) {
		return fetchapi.New(fetchapi.Config{BaseURL: u.srv.URL, RateLimit: 1000}, nil, testLogger())
	}
	return NewWorkspaces(db, factory, sealer, nav, WorkspaceConfig{PageSize: 20, LocationDelay: time.Millisecond}, nil, testLogger())
}

func newMemoryDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWorkspaces_GetIsStable(t *testing.T) {
	ws := newTestWorkspaces(t, newUpstream(t), newMemoryDB(t), nil)
	ctx := context.Background()

	a1, err := ws.Get(ctx, "s1")
	require.NoError(t, err)
	a2, _ := ws.Get(ctx, "s1")
	b, _ := ws.Get(ctx, "s2")

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, ws.Len())

	_, err = ws.Get(ctx, "")
	assert.Error(t, err)
}

func TestWorkspaces_UnauthorizedSendsToLogin(t *testing.T) {
	u := newUpstream(t)
	nav := &navRecorder{}
	ws := newTestWorkspaces(t, u, newMemoryDB(t), nav)
	ctx := context.Background()

	w, _ := ws.Get(ctx, "s1")
	_, err := w.Auth.Login(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)

	u.expired.Store(true)
	_, err = w.Search.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

	assert.Nil(t, w.Auth.State().User)
	assert.Equal(t, int32(1), nav.calls.Load())
	assert.Equal(t, "s1", nav.last.Load())
}

func TestWorkspaces_RestoresSessionAfterRestart(t *testing.T) {
	u := newUpstream(t)
	db := newMemoryDB(t)
	ctx := context.Background()

	first := newTestWorkspaces(t, u, db, nil)
	w, _ := first.Get(ctx, "s1")
	_, err := w.Auth.Login(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)

	// A new registry over the same store stands in for a server restart.
	second := newTestWorkspaces(t, u, db, nil)
	restored, err := second.Get(ctx, "s1")
	require.NoError(t, err)

	user, err := restored.Auth.RequireUser()
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
}

func TestWorkspaces_RestoreDropsExpiredSession(t *testing.T) {
	u := newUpstream(t)
	db := newMemoryDB(t)
	ctx := context.Background()

	first := newTestWorkspaces(t, u, db, nil)
	w, _ := first.Get(ctx, "s1")
	_, _ = w.Auth.Login(ctx, "Ada", "ada@example.com")

	u.expired.Store(true)
	second := newTestWorkspaces(t, u, db, nil)
	restored, _ := second.Get(ctx, "s1")

	_, err := restored.Auth.RequireUser()
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
}

func TestWorkspace_LogoutResetsState(t *testing.T) {
	ws := newTestWorkspaces(t, newUpstream(t), newMemoryDB(t), nil)
	ctx := context.Background()

	w, _ := ws.Get(ctx, "s1")
	_, _ = w.Auth.Login(ctx, "Ada", "ada@example.com")
	w.Favorites.Toggle("d1")
	_, _ = w.Search.Load(ctx)

	w.Logout(ctx)

	assert.Nil(t, w.Auth.State().User)
	assert.Empty(t, w.Favorites.IDs())
	assert.Equal(t, StatusIdle, w.Search.Snapshot().Status)
}

func TestWorkspaces_Evict(t *testing.T) {
	ws := newTestWorkspaces(t, newUpstream(t), newMemoryDB(t), nil)
	ctx := context.Background()

	_, _ = ws.Get(ctx, "s1")
	assert.Equal(t, 0, ws.Evict(time.Hour))
	assert.Equal(t, 1, ws.Evict(-time.Second))
	assert.Equal(t, 0, ws.Len())
}
