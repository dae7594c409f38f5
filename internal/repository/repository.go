package repository

import (
	"context"
	"time"
)

// Keys written into a browser session.
const (
	KeyUser           = "user"
	KeyMatchedDogID   = "matchedDogId"
	KeyAPICredentials = "apiCredentials"
)

// SessionStore is a small key/value store scoped to one browser session.
// It survives restarts, unlike the in-memory state kept per session.
//
// Get returns an apperror.ErrNotFound error when the key is absent.
type SessionStore interface {
	Get(ctx context.Context, sessionID, key string) (string, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID string, keys ...string) error
	Touch(ctx context.Context, sessionID string) error
	PurgeIdle(ctx context.Context, idleSince time.Time) (int64, error)
}

// Bucket is a SessionStore bound to one session id, so callers that only
// ever deal with their own session don't have to carry the id around.
type Bucket struct {
	store     SessionStore
	sessionID string
}

func NewBucket(store SessionStore, sessionID string) Bucket {
	return Bucket{store: store, sessionID: sessionID}
}

func (b Bucket) SessionID() string { return b.sessionID }

func (b Bucket) Get(ctx context.Context, key string) (string, error) {
	return b.store.Get(ctx, b.sessionID, key)
}

func (b Bucket) Set(ctx context.Context, key, value string) error {
	return b.store.Set(ctx, b.sessionID, key, value)
}

func (b Bucket) Delete(ctx context.Context, keys ...string) error {
	return b.store.Delete(ctx, b.sessionID, keys...)
}
