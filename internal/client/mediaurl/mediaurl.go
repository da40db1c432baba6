// Package mediaurl turns profile picture paths returned by the backend into
// absolute URLs.
package mediaurl

import (
	"net/url"
	"regexp"
	"strings"
)

var absolute = regexp.MustCompile(`(?i)^https?://`)

// Resolver joins relative media paths onto a base.
type Resolver struct {
	base string
}

// New prefers mediaBase. Without it the origin of apiBase is used, so
// "http://host:8000/api/" serves media from "http://host:8000".
func New(mediaBase, apiBase string) *Resolver {
	base := strings.TrimSpace(mediaBase)
	if base == "" {
		base = origin(apiBase)
	}
	return &Resolver{base: strings.TrimRight(base, "/")}
}

func origin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Resolve returns "" for an empty path and absolute URLs unchanged.
func (r *Resolver) Resolve(pathOrURL string) string {
	if pathOrURL == "" {
		return ""
	}
	if absolute.MatchString(pathOrURL) {
		return pathOrURL
	}
	if !strings.HasPrefix(pathOrURL, "/") {
		pathOrURL = "/" + pathOrURL
	}
	return r.base + pathOrURL
}
