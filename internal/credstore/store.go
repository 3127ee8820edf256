// Package credstore persists the GitHub access token and the remembered local
// repository path. Persistence is best-effort: reads of a missing or broken
// store yield empty values and write failures are logged, never returned.
package credstore

import (
	"context"
	"errors"
	"io"
	"log"
	"time"
)

// Fixed keys under which values are persisted.
const (
	KeyToken         = "github_token"
	KeyLocalRepoPath = "local_repo_path"
)

// ErrNotFound is returned by a Backend when a key has no value.
var ErrNotFound = errors.New("credstore: key not found")

// Backend is a string key-value store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store is the credential store used by the controller and the CLI.
type Store struct {
	backend Backend
	logger  *log.Logger
	timeout time.Duration
}

// New wraps a backend. A nil logger discards diagnostics.
func New(backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{backend: backend, logger: logger, timeout: 5 * time.Second}
}

// Load returns the persisted token, or "" when none is stored or the backend fails.
func (s *Store) Load() string {
	return s.get(KeyToken)
}

// Save persists the token.
func (s *Store) Save(token string) {
	s.set(KeyToken, token)
}

// Clear removes the persisted token.
func (s *Store) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.backend.Delete(ctx, KeyToken); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Printf("clear token: %v", err)
	}
}

// LoadLocalRepoPath returns the remembered local repository path, or "".
func (s *Store) LoadLocalRepoPath() string {
	return s.get(KeyLocalRepoPath)
}

// SaveLocalRepoPath remembers a local repository path.
func (s *Store) SaveLocalRepoPath(path string) {
	s.set(KeyLocalRepoPath, path)
}

func (s *Store) get(key string) string {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	v, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Printf("load %s: %v", key, err)
		}
		return ""
	}
	return v
}

func (s *Store) set(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.logger.Printf("save %s: %v", key, err)
	}
}
