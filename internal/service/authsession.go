package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/model"
	"github.com/sakif/dog-adoption/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CredentialKeeper persists the upstream API credentials of one visitor.
type CredentialKeeper interface {
	Save(ctx context.Context) error
	Clear(ctx context.Context) error
}

// AuthState is what the login view renders.
type AuthState struct {
	User    *model.User `json:"user"`
	Loading bool        `json:"loading"`
	Error   string      `json:"error,omitempty"`
}

// AuthSession tracks whether the visitor is logged in to the upstream API.
//
// The logged-in user is mirrored into SessionValues under "user" so a
// restarted server (or a new Workspace) can pick it back up. Because the
// upstream cookie may have expired meanwhile, a restored user is only
// trusted after Reconcile has probed the API.
//
// No lock is held while calling the API: a 401 there fires Expire, which
// needs the lock.
type AuthSession struct {
	api    AuthAPI
	values SessionValues
	keeper CredentialKeeper
	logger *slog.Logger

	mu       sync.Mutex
	user     *model.User
	inflight int
	errMsg   string
}

func NewAuthSession(api AuthAPI, values SessionValues, keeper CredentialKeeper, logger *slog.Logger) *AuthSession {
	return &AuthSession{api: api, values: values, keeper: keeper, logger: logger}
}

// ValidateLogin applies the login form rules.
func ValidateLogin(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return apperror.ValidationFailed("name", msgNameRequired)
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return apperror.ValidationFailed("email", msgEmailInvalid)
	}
	return nil
}

// Login authenticates against the API. On success the user is remembered
// in memory and in the session store.
func (a *AuthSession) Login(ctx context.Context, name, email string) (*model.User, error) {
	if err := ValidateLogin(name, email); err != nil {
		return nil, err
	}
	user := &model.User{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}

	a.mu.Lock()
	a.inflight++
	a.errMsg = ""
	a.mu.Unlock()

	err := a.api.Login(ctx, user.Name, user.Email)

	a.mu.Lock()
	a.inflight--
	if err != nil {
		a.errMsg = msgLoginFailed
		a.mu.Unlock()

		a.logger.Warn("login failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		if errors.Is(err, apperror.ErrUnauthorized) {
			return nil, apperror.Unauthorized(msgLoginFailed)
		}
		return nil, apperror.Unavailable(msgLoginFailed)
	}
	a.user = user
	a.mu.Unlock()

	if raw, err := json.Marshal(user); err == nil {
		if err := a.values.Set(ctx, repository.KeyUser, string(raw)); err != nil {
			a.logger.Error("failed to persist user", slog.String("error", err.Error()))
		}
	}
	if a.keeper != nil {
		if err := a.keeper.Save(ctx); err != nil {
			a.logger.Error("failed to persist API credentials", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("user logged in", slog.String("email", user.Email))
	return user, nil
}

// Logout always ends the local session. An API failure is only logged.
func (a *AuthSession) Logout(ctx context.Context) {
	a.mu.Lock()
	a.inflight++
	a.mu.Unlock()

	if err := a.api.Logout(ctx); err != nil {
		a.logger.Warn("logout request failed", slog.String("error", err.Error()))
	}

	a.mu.Lock()
	a.inflight--
	a.errMsg = ""
	a.mu.Unlock()

	a.clear(ctx)
}

// Reconcile restores a user saved in the session store, but only if the
// API still accepts our credentials. Any probe failure logs the visitor out.
func (a *AuthSession) Reconcile(ctx context.Context) {
	raw, err := a.values.Get(ctx, repository.KeyUser)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			a.logger.Error("failed to read saved user", slog.String("error", err.Error()))
		}
		return
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		a.logger.Warn("discarding unreadable saved user", slog.String("error", err.Error()))
		a.clear(ctx)
		return
	}

	if _, err := a.api.Breeds(ctx); err != nil {
		a.logger.Info("saved session no longer valid", slog.String("error", err.Error()))
		a.clear(ctx)
		return
	}

	a.mu.Lock()
	a.user = &user
	a.mu.Unlock()
}

// Expire is the 401 path: forget the user without calling the API.
func (a *AuthSession) Expire(ctx context.Context) {
	a.clear(ctx)
}

func (a *AuthSession) clear(ctx context.Context) {
	a.mu.Lock()
	a.user = nil
	a.mu.Unlock()

	if err := a.values.Delete(ctx, repository.KeyUser); err != nil {
		a.logger.Error("failed to clear saved user", slog.String("error", err.Error()))
	}
	if a.keeper != nil {
		if err := a.keeper.Clear(ctx); err != nil {
			a.logger.Error("failed to clear API credentials", slog.String("error", err.Error()))
		}
	}
}

func (a *AuthSession) State() AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := AuthState{Loading: a.inflight > 0, Error: a.errMsg}
	if a.user != nil {
		u := *a.user
		st.User = &u
	}
	return st
}

// RequireUser returns ErrUnauthorized when nobody is logged in.
func (a *AuthSession) RequireUser() (*model.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.user == nil {
		return nil, apperror.Unauthorized(msgLoginRequired)
	}
	u := *a.user
	return &u, nil
}
