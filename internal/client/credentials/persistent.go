package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// record is the on-disk form of the readable access-token cookie.
type record struct {
	Value     string    `json:"value"`
	Path      string    `json:"path"`
	SameSite  string    `json:"same_site"`
	Secure    bool      `json:"secure"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// PersistentStore keeps the token in the local metadata store so it
// survives restarts, with an in-memory copy for reads.
type PersistentStore struct {
	repo metadata.Repository
	log  logging.Logger
	now  func() time.Time

	mu     sync.Mutex
	loaded bool
	token  string
	opts   Options
}

func NewPersistentStore(repo metadata.Repository, log logging.Logger) *PersistentStore {
	if log == nil {
		log = logging.Nop()
	}
	return &PersistentStore{repo: repo, log: log, now: time.Now}
}

// Get returns the stored token. An expired or unreadable record reads as
// absent and is removed.
func (s *PersistentStore) Get(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.load(ctx); err != nil {
			s.log.Warn(ctx, "access token record unreadable, discarding", "err", err)
			s.dropLocked(ctx)
		}
		s.loaded = true
	}

	if s.token == "" {
		return "", false
	}
	if s.opts.expired(s.now()) {
		s.log.Debug(ctx, "access token expired", "expires_at", s.opts.ExpiresAt)
		s.dropLocked(ctx)
		return "", false
	}
	return s.token, true
}

func (s *PersistentStore) Set(ctx context.Context, token string, opts Options) error {
	if token == "" {
		return ErrEmptyToken
	}
	opts = opts.normalized()

	b, err := json.Marshal(record{
		Value:     token,
		Path:      opts.Path,
		SameSite:  sameSiteName(opts.SameSite),
		Secure:    opts.Secure,
		ExpiresAt: opts.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode access token record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Set(ctx, common.AccessTokenKey, b); err != nil {
		return err
	}
	s.token, s.opts, s.loaded = token, opts, true
	return nil
}

func (s *PersistentStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token, s.opts, s.loaded = "", Options{}, true
	return s.repo.Delete(ctx, common.AccessTokenKey)
}

func (s *PersistentStore) load(ctx context.Context) error {
	b, err := s.repo.Get(ctx, common.AccessTokenKey)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}

	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if r.Value == "" {
		return ErrCorruptRecord
	}

	s.token = r.Value
	s.opts = Options{
		Path:      r.Path,
		SameSite:  parseSameSite(r.SameSite),
		Secure:    r.Secure,
		ExpiresAt: r.ExpiresAt,
	}.normalized()
	return nil
}

func (s *PersistentStore) dropLocked(ctx context.Context) {
	s.token, s.opts = "", Options{}
	if err := s.repo.Delete(ctx, common.AccessTokenKey); err != nil {
		s.log.Warn(ctx, "failed to delete access token record", "err", err)
	}
}

func sameSiteName(m http.SameSite) string {
	switch m {
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "strict"
	}
}

func parseSameSite(s string) http.SameSite {
	switch s {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}
