// Package common contains shared constants and small helpers used across
// the gophauth client packages.
package common

// Keys of the local metadata store.
const (
	// AccessTokenKey holds the readable access-token cookie record.
	AccessTokenKey = "access_token"
	// CookieJarKey holds the serialized cookie jar, including the
	// server-managed refresh cookie.
	CookieJarKey = "cookie_jar"
	// OTPFlowKey holds the OTP flow checkpoint.
	OTPFlowKey = "otp_flow"
)

// HTTP header names set on outbound requests.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
	BearerPrefix            = "Bearer "
)
