package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoginRequest_PicksField(t *testing.T) {
	r := NewLoginRequest("  Alice@Example.com ", "pw")
	assert.Equal(t, LoginRequest{Email: "alice@example.com", Password: "pw"}, r)

	r = NewLoginRequest("alice", "pw")
	assert.Equal(t, LoginRequest{Username: "alice", Password: "pw"}, r)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"+1 (555) 123-0000", "+15551230000"},
		{"0044 20 7946 0000", "+442079460000"},
		{"555-12+34", "5551234"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), tt.in)
	}
}

func TestIdentityFrom_PrefersEmail(t *testing.T) {
	assert.Equal(t, Identity{Email: "a@b.c"}, IdentityFrom(" A@B.C", "+1555"))
	assert.Equal(t, Identity{PhoneNumber: "+1555"}, IdentityFrom("", "001555"))
	assert.True(t, IdentityFrom("", "").IsZero())
}

func TestIdentity_String(t *testing.T) {
	assert.Equal(t, "email (a@b.c)", Identity{Email: "a@b.c"}.String())
	assert.Equal(t, "phone (+1)", Identity{PhoneNumber: "+1"}.String())
	assert.Equal(t, "your contact", Identity{}.String())
}

func TestVerifyRequest_PayloadMergesExtra(t *testing.T) {
	r := VerifyRequest{OTP: "123456", TempToken: "tmp", Extra: map[string]any{"device": "cli", "otp": "ignored"}}

	b, err := json.Marshal(r.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"otp":"123456","temp_token":"tmp","device":"cli"}`, string(b))

	b, err = json.Marshal(VerifyRequest{OTP: "1"}.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"otp":"1"}`, string(b))
}

func TestResetFinalizeRequest_OmitsEmptyTokens(t *testing.T) {
	b, err := json.Marshal(ResetFinalizeRequest{NewPassword: "n", ConfirmPassword: "n", ResetToken: "rt"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"new_password":"n","confirm_password":"n","reset_token":"rt"}`, string(b))
}

func TestVerifyResponse_Decode(t *testing.T) {
	var v VerifyResponse
	require.NoError(t, json.Unmarshal([]byte(`{"verified":true,"access":"acc1","user":{"id":1}}`), &v))
	assert.True(t, v.Verified)
	assert.Equal(t, "acc1", v.Access)
	require.NotNil(t, v.User)
	assert.Equal(t, int64(1), v.User.ID)
	assert.Empty(t, v.ResetToken)
}

func TestUser_Helpers(t *testing.T) {
	var nilUser *User
	assert.Empty(t, nilUser.DisplayName())

	u := &User{Username: "alice", PhoneNumber: "+1"}
	assert.Equal(t, "alice", u.DisplayName())
	assert.Equal(t, "+1", u.Contact())

	u.FirstName, u.LastName, u.Email = "Alice", "Smith", "a@b.c"
	assert.Equal(t, "Alice", u.DisplayName())
	assert.Equal(t, "Alice Smith", u.FullName())
	assert.Equal(t, "a@b.c", u.Contact())
}

func TestProfileUpdate_Empty(t *testing.T) {
	assert.True(t, ProfileUpdate{}.Empty())
	name := "x"
	assert.False(t, ProfileUpdate{FirstName: &name}.Empty())
}
