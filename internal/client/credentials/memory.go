package credentials

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the token in process memory only.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	opts  Options
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" || s.opts.expired(s.now()) {
		return "", false
	}
	return s.token, true
}

func (s *MemoryStore) Set(ctx context.Context, token string, opts Options) error {
	if token == "" {
		return ErrEmptyToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.opts = opts.normalized()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.opts = Options{}
	return nil
}
