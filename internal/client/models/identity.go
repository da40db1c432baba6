package models

import "strings"

// Identity is the channel an OTP was sent to. Exactly one field is
// expected to be set.
type Identity struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

func (i Identity) IsZero() bool {
	return i.Email == "" && i.PhoneNumber == ""
}

// String renders the identity for prompts, e.g. "email (a@b.c)".
func (i Identity) String() string {
	switch {
	case i.Email != "":
		return "email (" + i.Email + ")"
	case i.PhoneNumber != "":
		return "phone (" + i.PhoneNumber + ")"
	default:
		return "your contact"
	}
}

// IdentityFrom builds an identity preferring email over phone.
func IdentityFrom(email, phone string) Identity {
	email = strings.TrimSpace(strings.ToLower(email))
	if email != "" {
		return Identity{Email: email}
	}
	return Identity{PhoneNumber: NormalizePhone(phone)}
}

// NormalizePhone keeps digits and '+', and rewrites a leading "00" to "+".
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
