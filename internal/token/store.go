package token

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a token slot is empty.
var ErrNotFound = errors.New("token not found")

// Store persists the operator's token pair. Implementations must be safe
// for concurrent use; a missing token is reported as ErrNotFound, never as
// an empty string.
type Store interface {
	// Save overwrites both slots atomically with respect to readers.
	Save(ctx context.Context, access, refresh string) error
	// Access returns the stored access token.
	Access(ctx context.Context) (string, error)
	// Refresh returns the stored refresh token.
	Refresh(ctx context.Context) (string, error)
	// Clear deletes both slots.
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token pair in process memory. It is the default
// store: always available, empty on construction, lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
	return nil
}

func (s *MemoryStore) Access(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.access == "" {
		return "", ErrNotFound
	}
	return s.access, nil
}

func (s *MemoryStore) Refresh(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.refresh == "" {
		return "", ErrNotFound
	}
	return s.refresh, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	return nil
}
