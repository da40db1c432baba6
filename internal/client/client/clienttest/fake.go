// Package clienttest provides a scriptable client.API for tests of the
// packages built on top of the HTTP client.
package clienttest

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

// ErrNotScripted is returned by calls whose behaviour was not set.
var ErrNotScripted = errors.New("fake api: call not scripted")

// Call records one invocation.
type Call struct {
	Method string
	Path   string
	Args   any
}

// FakeAPI implements client.API. Each method delegates to the matching
// function field; unset fields return ErrNotScripted.
type FakeAPI struct {
	RegisterFn              func(models.RegisterRequest) (*models.RegisterResponse, error)
	LoginFn                 func(models.LoginRequest) (*models.AuthResponse, error)
	SendLoginOTPFn          func(phone string) (*models.OTPChallenge, error)
	VerifyOTPFn             func(path string, req models.VerifyRequest) (*models.VerifyResponse, error)
	ResendOTPFn             func(path string, identity models.Identity) (*models.MessageResponse, error)
	RefreshTokenFn          func() (string, error)
	LogoutFn                func() error
	MeFn                    func() (*models.User, error)
	UpdateProfileFn         func(models.ProfileUpdate) (*models.User, error)
	UploadProfilePictureFn  func(filename string, data []byte) (*models.User, error)
	ChangePasswordFn        func(models.ChangePasswordRequest) (*models.MessageResponse, error)
	StartPasswordResetFn    func(models.Identity) (*models.OTPChallenge, error)
	FinalizePasswordResetFn func(models.ResetFinalizeRequest) (map[string]any, error)
	GoogleLoginFn           func(idToken string) (*models.AuthResponse, error)
	ListUsersFn             func() ([]models.User, error)

	mu    sync.Mutex
	calls []Call
}

func (f *FakeAPI) record(method, path string, args any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Path: path, Args: args})
}

// Calls returns a copy of the recorded invocations.
func (f *FakeAPI) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Count returns how many times method was called.
func (f *FakeAPI) Count(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Last returns the most recent call of method.
func (f *FakeAPI) Last(method string) (Call, bool) {
	calls := f.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == method {
			return calls[i], true
		}
	}
	return Call{}, false
}

func (f *FakeAPI) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	f.record("Register", client.PathRegister, req)
	if f.RegisterFn == nil {
		return nil, ErrNotScripted
	}
	return f.RegisterFn(req)
}

func (f *FakeAPI) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	f.record("Login", client.PathLogin, req)
	if f.LoginFn == nil {
		return nil, ErrNotScripted
	}
	return f.LoginFn(req)
}

func (f *FakeAPI) SendLoginOTP(ctx context.Context, phone string) (*models.OTPChallenge, error) {
	f.record("SendLoginOTP", client.PathSendOTP, phone)
	if f.SendLoginOTPFn == nil {
		return nil, ErrNotScripted
	}
	return f.SendLoginOTPFn(phone)
}

func (f *FakeAPI) VerifyOTP(ctx context.Context, path string, req models.VerifyRequest) (*models.VerifyResponse, error) {
	f.record("VerifyOTP", path, req)
	if f.VerifyOTPFn == nil {
		return nil, ErrNotScripted
	}
	return f.VerifyOTPFn(path, req)
}

func (f *FakeAPI) ResendOTP(ctx context.Context, path string, identity models.Identity) (*models.MessageResponse, error) {
	f.record("ResendOTP", path, identity)
	if f.ResendOTPFn == nil {
		return nil, ErrNotScripted
	}
	return f.ResendOTPFn(path, identity)
}

func (f *FakeAPI) RefreshToken(ctx context.Context) (string, error) {
	f.record("RefreshToken", "/token/refresh/", nil)
	if f.RefreshTokenFn == nil {
		return "", ErrNotScripted
	}
	return f.RefreshTokenFn()
}

func (f *FakeAPI) Logout(ctx context.Context) error {
	f.record("Logout", client.PathLogout, nil)
	if f.LogoutFn == nil {
		return ErrNotScripted
	}
	return f.LogoutFn()
}

func (f *FakeAPI) Me(ctx context.Context) (*models.User, error) {
	f.record("Me", client.PathMe, nil)
	if f.MeFn == nil {
		return nil, ErrNotScripted
	}
	return f.MeFn()
}

func (f *FakeAPI) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	f.record("UpdateProfile", client.PathMe, upd)
	if f.UpdateProfileFn == nil {
		return nil, ErrNotScripted
	}
	return f.UpdateProfileFn(upd)
}

func (f *FakeAPI) UploadProfilePicture(ctx context.Context, filename string, r io.Reader) (*models.User, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.record("UploadProfilePicture", client.PathMe, filename)
	if f.UploadProfilePictureFn == nil {
		return nil, ErrNotScripted
	}
	return f.UploadProfilePictureFn(filename, data)
}

func (f *FakeAPI) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (*models.MessageResponse, error) {
	f.record("ChangePassword", client.PathChangePassword, req)
	if f.ChangePasswordFn == nil {
		return nil, ErrNotScripted
	}
	return f.ChangePasswordFn(req)
}

func (f *FakeAPI) StartPasswordReset(ctx context.Context, identity models.Identity) (*models.OTPChallenge, error) {
	f.record("StartPasswordReset", client.PathResetStart, identity)
	if f.StartPasswordResetFn == nil {
		return nil, ErrNotScripted
	}
	return f.StartPasswordResetFn(identity)
}

func (f *FakeAPI) FinalizePasswordReset(ctx context.Context, req models.ResetFinalizeRequest) (map[string]any, error) {
	f.record("FinalizePasswordReset", client.PathResetSet, req)
	if f.FinalizePasswordResetFn == nil {
		return nil, ErrNotScripted
	}
	return f.FinalizePasswordResetFn(req)
}

func (f *FakeAPI) GoogleLogin(ctx context.Context, idToken string) (*models.AuthResponse, error) {
	f.record("GoogleLogin", client.PathGoogleLogin, idToken)
	if f.GoogleLoginFn == nil {
		return nil, ErrNotScripted
	}
	return f.GoogleLoginFn(idToken)
}

func (f *FakeAPI) ListUsers(ctx context.Context) ([]models.User, error) {
	f.record("ListUsers", client.PathUsers, nil)
	if f.ListUsersFn == nil {
		return nil, ErrNotScripted
	}
	return f.ListUsersFn()
}

var _ client.API = (*FakeAPI)(nil)
