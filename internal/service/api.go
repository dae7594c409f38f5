// Package service holds the per-visitor state machines of the dog search
// app: the auth session, the dog search, favorites and match, and the
// location picker.
//
//	Handler (HTTP) → Workspace → AuthSession / Search / Favorites / LocationPicker
//	                           ↘ fetchapi.Client (one per visitor)
//	                           ↘ SessionValues (persistent key/value)
//
// Each component talks to the upstream API through a narrow interface so
// tests can swap in a fake without an HTTP server.
package service

import (
	"context"
	"errors"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/fetchapi"
	"github.com/sakif/dog-adoption/internal/model"
)

type AuthAPI interface {
	Login(ctx context.Context, name, email string) error
	Logout(ctx context.Context) error
	Breeds(ctx context.Context) ([]string, error)
}

type SearchAPI interface {
	Breeds(ctx context.Context) ([]string, error)
	SearchDogs(ctx context.Context, q fetchapi.SearchQuery) (*fetchapi.SearchResult, error)
	Dogs(ctx context.Context, ids []string) ([]model.Dog, error)
}

type FavoritesAPI interface {
	Dogs(ctx context.Context, ids []string) ([]model.Dog, error)
	Match(ctx context.Context, ids []string) (string, error)
}

type LocationAPI interface {
	SearchLocations(ctx context.Context, q fetchapi.LocationQuery) (*fetchapi.LocationSearchResult, error)
}

// compile-time check that the real client serves every component
var (
	_ AuthAPI      = (*fetchapi.Client)(nil)
	_ SearchAPI    = (*fetchapi.Client)(nil)
	_ FavoritesAPI = (*fetchapi.Client)(nil)
	_ LocationAPI  = (*fetchapi.Client)(nil)
)

// SessionValues is the persistent key/value view of one browser session.
// repository.Bucket satisfies it.
type SessionValues interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// User-facing messages.
const (
	msgSessionExpired  = "Your session has expired. Please log in again."
	msgLoginRequired   = "Please log in to continue"
	msgLoginFailed     = "Failed to login. Please check your information and try again."
	msgNameRequired    = "Please enter your name"
	msgEmailInvalid    = "Please enter a valid email address"
	msgLoadDogs        = "Failed to load dogs"
	msgLoadBreeds      = "Failed to load dog breeds"
	msgLoadFavorites   = "Failed to load favorite dogs"
	msgMatchFailed     = "Failed to generate match"
	msgLoadMatch       = "Failed to load your match"
	msgNoFavorites     = "You need to add some dogs to your favorites list first"
	msgNoMatch         = "No match has been generated yet"
	msgAddedFavorite   = "Added to favorites"
	msgRemovedFavorite = "Removed from favorites"
)

// upstreamError maps an API failure to what the visitor sees. A rejected
// session becomes ErrUnauthorized; anything else becomes msg.
func upstreamError(err error, msg string) error {
	if errors.Is(err, apperror.ErrUnauthorized) {
		return apperror.Unauthorized(msgSessionExpired)
	}
	return apperror.Unavailable(msg)
}

// Severity ranks a Notice for display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is a short transient message for the visitor (a snackbar).
type Notice struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}
