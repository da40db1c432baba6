// Package cookies provides a cookie jar that can be persisted to the local
// metadata store. It carries the protected refresh cookie set by the
// backend; application code never reads that cookie's value, it only rides
// along with credentialed requests.
package cookies

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

type entry struct {
	Origin   string    `json:"origin"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
	SameSite int       `json:"same_site,omitempty"`
}

func (e entry) key() string {
	return e.Origin + "|" + e.Domain + "|" + e.Path + "|" + e.Name
}

func (e entry) cookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.Name,
		Value:    e.Value,
		Path:     e.Path,
		Domain:   e.Domain,
		Expires:  e.Expires,
		Secure:   e.Secure,
		HttpOnly: e.HTTPOnly,
		SameSite: http.SameSite(e.SameSite),
	}
}

// Jar is an http.CookieJar. Cookies set by responses are recorded and
// written to the repository on Flush; Load replays them into a fresh jar.
// A nil repository makes the jar memory-only.
type Jar struct {
	repo metadata.Repository
	now  func() time.Time

	mu      sync.Mutex
	jar     *cookiejar.Jar
	entries map[string]entry
	dirty   bool
}

func New(repo metadata.Repository) (*Jar, error) {
	j, err := newCookieJar()
	if err != nil {
		return nil, err
	}
	return &Jar{repo: repo, now: time.Now, jar: j, entries: make(map[string]entry)}, nil
}

func newCookieJar() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	origin := u.Scheme + "://" + u.Host
	now := j.now()
	for _, c := range cookies {
		e := entry{
			Origin:   origin,
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			SameSite: int(c.SameSite),
		}
		if c.MaxAge > 0 {
			e.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}

		if c.MaxAge < 0 || (!e.Expires.IsZero() && !e.Expires.After(now)) {
			delete(j.entries, e.key())
		} else {
			j.entries[e.key()] = e
		}
		j.dirty = true
	}
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// Len reports how many cookies are currently recorded.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Load replays the persisted cookies, skipping expired ones.
func (j *Jar) Load(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	b, err := j.repo.Get(ctx, common.CookieJarKey)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}

	var saved []entry
	if err := json.Unmarshal(b, &saved); err != nil {
		return fmt.Errorf("%w: cookie jar: %v", common.ErrorIncorrectMetadata, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	for _, e := range saved {
		if !e.Expires.IsZero() && !e.Expires.After(now) {
			j.dirty = true
			continue
		}
		u, err := url.Parse(e.Origin)
		if err != nil {
			j.dirty = true
			continue
		}
		j.jar.SetCookies(u, []*http.Cookie{e.cookie()})
		j.entries[e.key()] = e
	}
	return nil
}

// Flush writes the recorded cookies if anything changed since the last
// flush.
func (j *Jar) Flush(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.dirty {
		return nil
	}

	list := make([]entry, 0, len(j.entries))
	for _, e := range j.entries {
		list = append(list, e)
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := j.repo.Set(ctx, common.CookieJarKey, b); err != nil {
		return err
	}
	j.dirty = false
	return nil
}

// Forget drops every cookie held in memory, including the refresh cookie.
// The persisted copy is left in place.
func (j *Jar) Forget() error {
	fresh, err := newCookieJar()
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.jar = fresh
	j.entries = make(map[string]entry)
	j.dirty = false
	j.mu.Unlock()
	return nil
}

// Clear forgets every cookie and removes the persisted copy.
func (j *Jar) Clear(ctx context.Context) error {
	if err := j.Forget(); err != nil {
		return err
	}
	if j.repo == nil {
		return nil
	}
	return j.repo.Delete(ctx, common.CookieJarKey)
}
