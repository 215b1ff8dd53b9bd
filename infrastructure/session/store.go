package session

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Keys kept in the session table
const (
	keyToken = "token"
	keyUser  = "user"
)

// Store holds the operator's session for the remote API: an in-memory cache
// in front of a sqlite table that survives restarts. Token lookups check the
// cache first, then the table, then retry once after a short delay. Login
// may still be writing the token when the first page load asks for it.
type Store struct {
	db         *sql.DB
	retryDelay time.Duration

	mu     sync.RWMutex
	cached map[string]string
}

// NewStore creates a session store backed by the given database
func NewStore(db *sql.DB, retryDelay time.Duration) *Store {
	return &Store{
		db:         db,
		retryDelay: retryDelay,
		cached:     make(map[string]string),
	}
}

// InitializeSchema runs session migrations
func (s *Store) InitializeSchema() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS session_values (
			key VARCHAR(50) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for i, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			if !strings.Contains(err.Error(), "already exists") {
				return fmt.Errorf("session migration %d failed: %w", i+1, err)
			}
		}
	}
	return nil
}

// Token returns the bearer token, or "" when no session exists
func (s *Store) Token(ctx context.Context) (string, error) {
	if token, err := s.lookup(ctx, keyToken); err != nil || token != "" {
		return token, err
	}

	// One short retry before reporting the session absent
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(s.retryDelay):
	}
	return s.lookup(ctx, keyToken)
}

// SetToken stores the bearer token in both layers
func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.set(ctx, keyToken, token)
}

// User returns the stored user payload, or "" when absent
func (s *Store) User(ctx context.Context) (string, error) {
	return s.lookup(ctx, keyUser)
}

// SetUser stores the user payload in both layers
func (s *Store) SetUser(ctx context.Context, payload string) error {
	return s.set(ctx, keyUser, payload)
}

// Clear wipes every session value from cache and table. Called when the
// backend answers 401.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cached = make(map[string]string)
	s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM session_values`)
	if err != nil {
		return err
	}

	logrus.Info("Session: Cleared stored credentials")
	return nil
}

func (s *Store) lookup(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	value, ok := s.cached[key]
	s.mu.RUnlock()
	if ok && value != "" {
		return value, nil
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM session_values WHERE key = ?
	`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.cached[key] = value
	s.mu.Unlock()
	return value, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_values (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cached[key] = value
	s.mu.Unlock()
	return nil
}
