package cookies

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/common"

	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T) *metadata.SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return metadata.NewSQLiteRepository(db)
}

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestJar_PersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	u := mustURL(t, "http://api.example.com/api/token/refresh/")

	j1, err := New(repo)
	require.NoError(t, err)
	j1.SetCookies(u, []*http.Cookie{{Name: "refresh_token", Value: "r1", Path: "/", HttpOnly: true, MaxAge: 3600}})
	require.NoError(t, j1.Flush(ctx))

	j2, err := New(repo)
	require.NoError(t, err)
	require.NoError(t, j2.Load(ctx))

	got := j2.Cookies(u)
	require.Len(t, got, 1)
	assert.Equal(t, "refresh_token", got[0].Name)
	assert.Equal(t, "r1", got[0].Value)
	assert.Equal(t, 1, j2.Len())
}

func TestJar_DeletionCookieRemovesEntry(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	u := mustURL(t, "http://api.example.com/")

	j, err := New(repo)
	require.NoError(t, err)
	j.SetCookies(u, []*http.Cookie{{Name: "refresh_token", Value: "r1", Path: "/"}})
	require.Equal(t, 1, j.Len())

	j.SetCookies(u, []*http.Cookie{{Name: "refresh_token", Value: "", Path: "/", MaxAge: -1}})
	require.Equal(t, 0, j.Len())
	require.Empty(t, j.Cookies(u))

	require.NoError(t, j.Flush(ctx))
	b, err := repo.Get(ctx, common.CookieJarKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
}

func TestJar_LoadSkipsExpired(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	u := mustURL(t, "http://api.example.com/")

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	j1, err := New(repo)
	require.NoError(t, err)
	j1.now = func() time.Time { return now }
	j1.SetCookies(u, []*http.Cookie{{Name: "short", Value: "v", Path: "/", MaxAge: 60}})
	require.NoError(t, j1.Flush(ctx))

	j2, err := New(repo)
	require.NoError(t, err)
	j2.now = func() time.Time { return now.Add(time.Hour) }
	require.NoError(t, j2.Load(ctx))
	assert.Equal(t, 0, j2.Len())
}

func TestJar_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	require.NoError(t, repo.Set(ctx, common.CookieJarKey, []byte("nope")))

	j, err := New(repo)
	require.NoError(t, err)
	require.ErrorIs(t, j.Load(ctx), common.ErrorIncorrectMetadata)
}

func TestJar_Clear(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	u := mustURL(t, "http://api.example.com/")

	j, err := New(repo)
	require.NoError(t, err)
	j.SetCookies(u, []*http.Cookie{{Name: "refresh_token", Value: "r1", Path: "/"}})
	require.NoError(t, j.Flush(ctx))

	require.NoError(t, j.Clear(ctx))
	assert.Empty(t, j.Cookies(u))

	b, err := repo.Get(ctx, common.CookieJarKey)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestJar_ForgetKeepsPersistedCopy(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	u := mustURL(t, "http://api.example.com/")

	j, err := New(repo)
	require.NoError(t, err)
	j.SetCookies(u, []*http.Cookie{{Name: "refresh_token", Value: "r1", Path: "/"}})
	require.NoError(t, j.Flush(ctx))

	require.NoError(t, j.Forget())
	assert.Empty(t, j.Cookies(u))
	assert.Equal(t, 0, j.Len())

	require.NoError(t, j.Flush(ctx))
	b, err := repo.Get(ctx, common.CookieJarKey)
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestJar_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	j, err := New(nil)
	require.NoError(t, err)

	j.SetCookies(mustURL(t, "http://x.test/"), []*http.Cookie{{Name: "a", Value: "b"}})
	require.NoError(t, j.Flush(ctx))
	require.NoError(t, j.Load(ctx))
	require.NoError(t, j.Clear(ctx))
}

func TestJar_WorksWithHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login/" {
			http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "r1", Path: "/", HttpOnly: true})
			return
		}
		c, err := r.Cookie("refresh_token")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(c.Value))
	}))
	defer srv.Close()

	j, err := New(nil)
	require.NoError(t, err)
	hc := &http.Client{Jar: j}

	resp, err := hc.Post(srv.URL+"/login/", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = hc.Post(srv.URL+"/token/refresh/", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
