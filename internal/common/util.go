package common

import "strings"

// WipeByteArray overwrites b with zeros.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// MaskToken returns a log-safe form of a credential: the first four
// characters followed by an ellipsis.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..."
}
