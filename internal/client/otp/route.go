package otp

import (
	"errors"
	"net/url"
	"strings"
)

// Route names the screen a verified flow leads to.
type Route string

const (
	RouteDashboard   Route = "dashboard"
	RouteLogin       Route = "login"
	RouteNewPassword Route = "new-password"
)

// NextStep returns where a verified flow continues.
func NextStep(c Context, isAuthenticated bool) Route {
	switch c {
	case ContextRegistration:
		if isAuthenticated {
			return RouteDashboard
		}
		return RouteLogin
	case ContextLogin:
		return RouteDashboard
	case ContextReset:
		return RouteNewPassword
	default:
		return RouteLogin
	}
}

var ErrNoCodeInLink = errors.New("link has no token parameter")

// CodeFromLink extracts the code from an emailed verification link such as
// https://app.example.com/verify?token=123456. A bare query string is
// accepted too.
func CodeFromLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var q url.Values
	if strings.HasPrefix(raw, "?") {
		v, err := url.ParseQuery(raw[1:])
		if err != nil {
			return "", err
		}
		q = v
	} else {
		u, err := url.Parse(raw)
		if err != nil {
			return "", err
		}
		q = u.Query()
	}

	code := strings.TrimSpace(q.Get("token"))
	if code == "" {
		return "", ErrNoCodeInLink
	}
	return code, nil
}
