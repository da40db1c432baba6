package credentials

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/common"

	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T) (*sql.DB, *metadata.SQLiteRepository) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return db, metadata.NewSQLiteRepository(db)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

type failingRepo struct {
	metadata.Repository
	err error
}

func (f failingRepo) Get(ctx context.Context, key string) ([]byte, error) { return nil, f.err }
func (f failingRepo) Set(ctx context.Context, key string, v []byte) error { return f.err }
func (f failingRepo) Delete(ctx context.Context, key string) error        { return f.err }

func TestExpiryFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	assert.True(t, exp.Equal(ExpiryFromToken(signedToken(t, exp))))

	assert.True(t, ExpiryFromToken("opaque-token").IsZero())
	assert.True(t, ExpiryFromToken("").IsZero())
}

func TestOptions_Defaults(t *testing.T) {
	o := DefaultOptions(true)
	assert.Equal(t, "/", o.Path)
	assert.Equal(t, http.SameSiteStrictMode, o.SameSite)
	assert.True(t, o.Secure)

	n := Options{}.normalized()
	assert.Equal(t, "/", n.Path)
	assert.Equal(t, http.SameSiteStrictMode, n.SameSite)
}

func TestOptions_ForTokenKeepsExplicitExpiry(t *testing.T) {
	explicit := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	o := Options{ExpiresAt: explicit}.ForToken(signedToken(t, time.Now().Add(time.Hour)))
	assert.Equal(t, explicit, o.ExpiresAt)
}

func TestMemoryStore_SetGetClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok := s.Get(ctx)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "acc1", DefaultOptions(false)))
	tok, ok := s.Get(ctx)
	require.True(t, ok)
	require.Equal(t, "acc1", tok)

	require.NoError(t, s.Clear(ctx))
	_, ok = s.Get(ctx)
	require.False(t, ok)
}

func TestMemoryStore_RejectsEmptyToken(t *testing.T) {
	require.ErrorIs(t, NewMemoryStore().Set(context.Background(), "", Options{}), ErrEmptyToken)
}

func TestMemoryStore_ExpiredReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "acc1", Options{ExpiresAt: now.Add(time.Minute)}))
	_, ok := s.Get(ctx)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = s.Get(ctx)
	require.False(t, ok)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _ = s.Set(ctx, "tok", Options{}) }()
		go func() { defer wg.Done(); _, _ = s.Get(ctx) }()
	}
	wg.Wait()

	tok, ok := s.Get(ctx)
	require.True(t, ok)
	require.Equal(t, "tok", tok)
}

func TestPersistentStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	_, repo := setupRepo(t)

	token := signedToken(t, time.Now().Add(time.Hour))
	s1 := NewPersistentStore(repo, nil)
	require.NoError(t, s1.Set(ctx, token, DefaultOptions(true).ForToken(token)))

	s2 := NewPersistentStore(repo, nil)
	got, ok := s2.Get(ctx)
	require.True(t, ok)
	require.Equal(t, token, got)
	assert.True(t, s2.opts.Secure)
	assert.Equal(t, http.SameSiteStrictMode, s2.opts.SameSite)
	assert.False(t, s2.opts.ExpiresAt.IsZero())
}

func TestPersistentStore_ExpiredRecordIsRemoved(t *testing.T) {
	ctx := context.Background()
	_, repo := setupRepo(t)

	token := signedToken(t, time.Now().Add(-time.Minute))
	require.NoError(t, NewPersistentStore(repo, nil).Set(ctx, token, DefaultOptions(false).ForToken(token)))

	s := NewPersistentStore(repo, nil)
	_, ok := s.Get(ctx)
	require.False(t, ok)

	b, err := repo.Get(ctx, common.AccessTokenKey)
	require.NoError(t, err)
	require.Nil(t, b)
}

func TestPersistentStore_CorruptRecordIsRemoved(t *testing.T) {
	ctx := context.Background()
	_, repo := setupRepo(t)
	require.NoError(t, repo.Set(ctx, common.AccessTokenKey, []byte("{not json")))

	s := NewPersistentStore(repo, nil)
	_, ok := s.Get(ctx)
	require.False(t, ok)

	b, err := repo.Get(ctx, common.AccessTokenKey)
	require.NoError(t, err)
	require.Nil(t, b)
}

func TestPersistentStore_ClearDeletesRecord(t *testing.T) {
	ctx := context.Background()
	_, repo := setupRepo(t)
	s := NewPersistentStore(repo, nil)

	require.NoError(t, s.Set(ctx, "opaque", Options{}))
	require.NoError(t, s.Clear(ctx))

	_, ok := s.Get(ctx)
	require.False(t, ok)
	b, err := repo.Get(ctx, common.AccessTokenKey)
	require.NoError(t, err)
	require.Nil(t, b)
}

func TestPersistentStore_SetThenGetSeesNewToken(t *testing.T) {
	ctx := context.Background()
	_, repo := setupRepo(t)
	s := NewPersistentStore(repo, nil)

	require.NoError(t, s.Set(ctx, "old", Options{}))
	require.NoError(t, s.Set(ctx, "new", Options{}))

	got, ok := s.Get(ctx)
	require.True(t, ok)
	require.Equal(t, "new", got)
}

func TestPersistentStore_RepoErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	s := NewPersistentStore(failingRepo{err: boom}, nil)

	require.ErrorIs(t, s.Set(ctx, "t", Options{}), boom)
	require.ErrorIs(t, s.Clear(ctx), boom)

	_, ok := s.Get(ctx)
	require.False(t, ok)
}

func TestSameSiteRoundTrip(t *testing.T) {
	for _, m := range []http.SameSite{http.SameSiteStrictMode, http.SameSiteLaxMode, http.SameSiteNoneMode} {
		assert.Equal(t, m, parseSameSite(sameSiteName(m)))
	}
}
