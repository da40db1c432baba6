// Package client contains the HTTP side of the account client.
//
// # Overview
//
// The package provides:
//  1. The API contract (see the API interface) used by the session, OTP and
//     password-reset flows: register, password and phone-OTP login, OTP
//     verify/resend, refresh, logout, profile read/update/picture upload,
//     password change and reset, SSO token exchange, user listing.
//  2. HTTPClient, a JSON implementation that attaches the access token from
//     the credential store, sends every request with the cookie jar, and on
//     a 401 refreshes the token once and re-issues the request once.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Refresh and retry
//
// Each request moves through attach, send and classify. Classification
// yields done, refresh or failed. Refresh is only chosen for a 401 on a
// request that has not been retried; the request is marked retried before
// the refresh starts, so a second 401 is returned as is. Concurrent
// refreshes are coalesced into one round-trip. When the refresh fails the
// credential store is cleared and the caller receives the original 401.
//
// # Error Handling
//
// Backend failures are returned as *APIError. errors.Is matches
// ErrUnauthorized for 401/403 and ErrUnavailable for 5xx responses and
// transport failures.
package client
