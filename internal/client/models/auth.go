package models

import "strings"

// RegisterRequest is the body of POST /register/.
type RegisterRequest struct {
	Username        string `json:"username,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Email           string `json:"email,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	Address         string `json:"address,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest is the body of POST /login/. Either Email or Username is set.
type LoginRequest struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// NewLoginRequest picks the email field when the identifier looks like an
// address and the username field otherwise.
func NewLoginRequest(identifier, password string) LoginRequest {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return LoginRequest{Email: strings.ToLower(identifier), Password: password}
	}
	return LoginRequest{Username: identifier, Password: password}
}

// AuthResponse is the {access, user} shape returned by login, SSO and
// some verify and register calls.
type AuthResponse struct {
	Access string `json:"access,omitempty"`
	User   *User  `json:"user,omitempty"`
}

// RegisterResponse is either an AuthResponse (auto-login) or a pending
// OTP challenge.
type RegisterResponse struct {
	AuthResponse
	Pending   bool   `json:"pending,omitempty"`
	TempToken string `json:"temp_token,omitempty"`
	Message   string `json:"message,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone_number,omitempty"`
}

// OTPChallenge is returned by /send-otp/ and /password-reset/start/.
type OTPChallenge struct {
	Pending     bool   `json:"pending,omitempty"`
	Via         string `json:"via,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	TempToken   string `json:"temp_token,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Identity returns the identity echoed by the backend, if any.
func (c OTPChallenge) Identity() Identity {
	if c.Email != "" {
		return Identity{Email: c.Email}
	}
	if c.PhoneNumber != "" {
		return Identity{PhoneNumber: c.PhoneNumber}
	}
	return Identity{}
}

// VerifyRequest is the body of the verify endpoints. Extra keys are merged
// into the JSON object next to otp and temp_token.
type VerifyRequest struct {
	OTP       string
	TempToken string
	Extra     map[string]any
}

// Payload flattens the request into a JSON object.
func (r VerifyRequest) Payload() map[string]any {
	m := make(map[string]any, len(r.Extra)+2)
	for k, v := range r.Extra {
		m[k] = v
	}
	m["otp"] = r.OTP
	if r.TempToken != "" {
		m["temp_token"] = r.TempToken
	}
	return m
}

// VerifyResponse is {access?, user?, verified, reset_token?}.
type VerifyResponse struct {
	AuthResponse
	Verified   bool   `json:"verified"`
	ResetToken string `json:"reset_token,omitempty"`
}

// RefreshResponse is the body of POST /token/refresh/.
type RefreshResponse struct {
	Access string `json:"access"`
}

// MessageResponse covers {message} and {detail} bodies.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Text returns whichever of message/detail is set.
func (m MessageResponse) Text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Detail
}

// ChangePasswordRequest is the body of POST /change-password/.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ResetFinalizeRequest is the body of POST /password-reset/set/. Only one
// of ResetToken and TempToken is sent.
type ResetFinalizeRequest struct {
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
	ResetToken      string `json:"reset_token,omitempty"`
	TempToken       string `json:"temp_token,omitempty"`
}

// GoogleLoginRequest is the body of POST /auth/google/.
type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}
