package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/repository"
)

// compile-time check that *DB implements repository.SessionStore
var _ repository.SessionStore = (*DB)(nil)

// Get returns the value stored under key for the session.
// A missing key is reported as apperror.ErrNotFound.
func (db *DB) Get(ctx context.Context, sessionID, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE session_id = ? AND key = ?`,
		sessionID, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.NotFound("session value", key)
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: getting %s for session %s: %w", key, sessionID, err)
	}
	return value, nil
}

// Set writes key=value, creating the session row on first use.
//
// ON CONFLICT ... DO UPDATE keeps the existing row (and its created_at)
// instead of replacing it, which INSERT OR REPLACE would do.
func (db *DB) Set(ctx context.Context, sessionID, key, value string) error {
	now := time.Now().Unix()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, last_seen_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET last_seen_at = excluded.last_seen_at`,
		sessionID, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting session %s: %w", sessionID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO session_values (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionID, key, value, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting %s for session %s: %w", key, sessionID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing session %s: %w", sessionID, err)
	}
	return nil
}

// Delete removes the given keys. With no keys it removes the whole session.
// Deleting something that does not exist is not an error.
func (db *DB) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		_, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
		if err != nil {
			return fmt.Errorf("sqlite: deleting session %s: %w", sessionID, err)
		}
		return nil
	}

	for _, key := range keys {
		_, err := db.conn.ExecContext(ctx,
			`DELETE FROM session_values WHERE session_id = ? AND key = ?`,
			sessionID, key,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting %s for session %s: %w", key, sessionID, err)
		}
	}
	return nil
}

// Touch marks the session as seen now. Unknown sessions are ignored.
func (db *DB) Touch(ctx context.Context, sessionID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = ? WHERE id = ?`,
		time.Now().Unix(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching session %s: %w", sessionID, err)
	}
	return nil
}

// PurgeIdle deletes every session not seen since idleSince and returns
// how many were removed.
func (db *DB) PurgeIdle(ctx context.Context, idleSince time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_seen_at < ?`,
		idleSince.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging idle sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking purged rows: %w", err)
	}
	return n, nil
}
