package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/fetchapi"
	"github.com/sakif/dog-adoption/internal/metrics"
	"github.com/sakif/dog-adoption/internal/repository"
)

// Navigator is told when a visitor must be sent back to the login view.
type Navigator interface {
	ToLogin(ctx context.Context, sessionID string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, sessionID string)

func (f NavigatorFunc) ToLogin(ctx context.Context, sessionID string) { f(ctx, sessionID) }

// Sealer encrypts values before they reach the session store.
type Sealer interface {
	Seal(plaintext []byte) (string, error)
	Open(sealed string) ([]byte, error)
}

// ClientFactory creates an API client with an empty cookie jar.
type ClientFactory func() (*fetchapi.Client, error)

type WorkspaceConfig struct {
	PageSize      int
	LocationDelay time.Duration
}

// Workspace is everything the server keeps in memory for one browser
// session: its own API client (and so its own upstream cookie) plus the
// state machines behind each view.
type Workspace struct {
	ID        string
	Auth      *AuthSession
	Search    *Search
	Favorites *Favorites
	Locations *LocationPicker
	Resolver  *LocationResolver

	client   *fetchapi.Client
	cancel   context.CancelFunc
	restore  sync.Once
	mu       sync.Mutex
	lastSeen time.Time
}

// Logout ends the upstream session and drops everything tied to the user.
func (w *Workspace) Logout(ctx context.Context) {
	w.Auth.Logout(ctx)
	w.Favorites.Reset(ctx)
	w.Search.Clear()
	w.Locations.Clear()
}

func (w *Workspace) touch() {
	w.mu.Lock()
	w.lastSeen = time.Now()
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// credentialKeeper saves the client's cookies, sealed, under
// repository.KeyAPICredentials.
type credentialKeeper struct {
	client *fetchapi.Client
	sealer Sealer
	values SessionValues
}

func (k credentialKeeper) Save(ctx context.Context) error {
	raw, err := k.client.ExportCredentials()
	if err != nil {
		return fmt.Errorf("exporting credentials: %w", err)
	}
	sealed, err := k.sealer.Seal(raw)
	if err != nil {
		return fmt.Errorf("sealing credentials: %w", err)
	}
	return k.values.Set(ctx, repository.KeyAPICredentials, sealed)
}

func (k credentialKeeper) Clear(ctx context.Context) error {
	return k.values.Delete(ctx, repository.KeyAPICredentials)
}

func (k credentialKeeper) load(ctx context.Context) error {
	sealed, err := k.values.Get(ctx, repository.KeyAPICredentials)
	if err != nil {
		return err
	}
	raw, err := k.sealer.Open(sealed)
	if err != nil {
		return fmt.Errorf("opening credentials: %w", err)
	}
	return k.client.ImportCredentials(raw)
}

// Workspaces is the registry of live workspaces, keyed by session id.
type Workspaces struct {
	store     repository.SessionStore
	newClient ClientFactory
	sealer    Sealer
	nav       Navigator
	cfg       WorkspaceConfig
	metrics   *metrics.Collector
	logger    *slog.Logger

	mu    sync.Mutex
	items map[string]*Workspace
}

func NewWorkspaces(
	store repository.SessionStore,
	newClient ClientFactory,
	sealer Sealer,
	nav Navigator,
	cfg WorkspaceConfig,
	m *metrics.Collector,
	logger *slog.Logger,
) *Workspaces {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.LocationDelay <= 0 {
		cfg.LocationDelay = 300 * time.Millisecond
	}
	return &Workspaces{
		store:     store,
		newClient: newClient,
		sealer:    sealer,
		nav:       nav,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		items:     make(map[string]*Workspace),
	}
}

// Get returns the workspace for sessionID, creating it on first use.
// A new workspace restores saved credentials and reconciles the saved
// user before it is returned.
func (ws *Workspaces) Get(ctx context.Context, sessionID string) (*Workspace, error) {
	if sessionID == "" {
		return nil, errors.New("service: empty session id")
	}

	ws.mu.Lock()
	w, ok := ws.items[sessionID]
	if !ok {
		var err error
		w, err = ws.build(sessionID)
		if err != nil {
			ws.mu.Unlock()
			return nil, err
		}
		ws.items[sessionID] = w
		ws.reportLocked()
	}
	ws.mu.Unlock()

	w.touch()
	w.restore.Do(func() { ws.restore(ctx, w) })

	if err := ws.store.Touch(ctx, sessionID); err != nil {
		ws.logger.Warn("failed to touch session", slog.String("session_id", sessionID), slog.String("error", err.Error()))
	}
	return w, nil
}

func (ws *Workspaces) build(sessionID string) (*Workspace, error) {
	client, err := ws.newClient()
	if err != nil {
		return nil, fmt.Errorf("service: creating API client: %w", err)
	}

	logger := ws.logger.With(slog.String("session_id", sessionID))
	values := repository.NewBucket(ws.store, sessionID)
	keeper := credentialKeeper{client: client, sealer: ws.sealer, values: values}

	ctx, cancel := context.WithCancel(context.Background())
	resolver := NewLocationResolver(client, logger)
	w := &Workspace{
		ID:        sessionID,
		Auth:      NewAuthSession(client, values, keeper, logger),
		Search:    NewSearch(client, ws.cfg.PageSize, logger),
		Favorites: NewFavorites(client, values, logger),
		Resolver:  resolver,
		Locations: NewLocationPicker(ctx, resolver, ws.cfg.LocationDelay, logger),
		client:    client,
		cancel:    cancel,
	}

	client.OnUnauthorized(func(ctx context.Context) {
		ctx = context.WithoutCancel(ctx)
		logger.Info("session expired, returning to login")
		w.Auth.Expire(ctx)
		if ws.nav != nil {
			ws.nav.ToLogin(ctx, sessionID)
		}
	})
	return w, nil
}

func (ws *Workspaces) restore(ctx context.Context, w *Workspace) {
	keeper := credentialKeeper{client: w.client, sealer: ws.sealer, values: repository.NewBucket(ws.store, w.ID)}
	if err := keeper.load(ctx); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			ws.logger.Warn("could not restore API credentials", slog.String("session_id", w.ID), slog.String("error", err.Error()))
		}
	}
	w.Auth.Reconcile(ctx)
}

// Evict drops workspaces idle for longer than idle and returns how many
// were removed. Their persistent values stay in the store.
func (ws *Workspaces) Evict(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	n := 0
	for id, w := range ws.items {
		if w.idleSince().Before(cutoff) {
			w.cancel()
			w.Locations.Clear()
			delete(ws.items, id)
			n++
		}
	}
	if n > 0 {
		ws.reportLocked()
	}
	return n
}

func (ws *Workspaces) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.items)
}

func (ws *Workspaces) reportLocked() {
	if ws.metrics != nil {
		ws.metrics.SetActiveWorkspaces(len(ws.items))
	}
}
