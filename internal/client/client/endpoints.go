package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

// Backend paths.
const (
	PathRegister        = "/register/"
	PathLogin           = "/login/"
	PathSendOTP         = "/send-otp/"
	PathLogout          = "/logout/"
	PathMe              = "/me/"
	PathChangePassword  = "/change-password/"
	PathResetStart      = "/password-reset/start/"
	PathResetSet        = "/password-reset/set/"
	PathGoogleLogin     = "/auth/google/"
	PathUsers           = "/users/"
	ProfilePictureField = "profile_picture"
)

func (c *HTTPClient) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	var out models.RegisterResponse
	if err := c.call(ctx, http.MethodPost, PathRegister, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.call(ctx, http.MethodPost, PathLogin, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SendLoginOTP(ctx context.Context, phoneNumber string) (*models.OTPChallenge, error) {
	var out models.OTPChallenge
	body := map[string]string{"phone_number": phoneNumber}
	if err := c.call(ctx, http.MethodPost, PathSendOTP, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP posts {otp, temp_token, ...extra} to the verify endpoint of
// the flow's context.
func (c *HTTPClient) VerifyOTP(ctx context.Context, path string, req models.VerifyRequest) (*models.VerifyResponse, error) {
	var out models.VerifyResponse
	if err := c.call(ctx, http.MethodPost, path, req.Payload(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ResendOTP(ctx context.Context, path string, identity models.Identity) (*models.MessageResponse, error) {
	var out models.MessageResponse
	if err := c.call(ctx, http.MethodPost, path, identity, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken runs the same refresh the interceptor uses. The new token
// is already stored when it returns.
func (c *HTTPClient) RefreshToken(ctx context.Context) (string, error) {
	return c.refresh(ctx)
}

// Logout asks the backend to drop the refresh cookie. The default
// Authorization header is dropped whatever the outcome.
func (c *HTTPClient) Logout(ctx context.Context) error {
	defer c.setDefaultAuthorization("")
	return c.call(ctx, http.MethodPost, PathLogout, nil, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.call(ctx, http.MethodGet, PathMe, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	var out models.User
	if err := c.call(ctx, http.MethodPatch, PathMe, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadProfilePicture sends r as the profile_picture field of a multipart
// PATCH /me/. The body is buffered so the request can be re-issued after a
// refresh.
func (c *HTTPClient) UploadProfilePicture(ctx context.Context, filename string, r io.Reader) (*models.User, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile(ProfilePictureField, filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("failed to read picture: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req := &request{
		method:      http.MethodPatch,
		path:        PathMe,
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
		requestID:   c.requestID(),
	}

	var out models.User
	if err := c.execute(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (*models.MessageResponse, error) {
	var out models.MessageResponse
	if err := c.call(ctx, http.MethodPost, PathChangePassword, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) StartPasswordReset(ctx context.Context, identity models.Identity) (*models.OTPChallenge, error) {
	var out models.OTPChallenge
	if err := c.call(ctx, http.MethodPost, PathResetStart, identity, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) FinalizePasswordReset(ctx context.Context, req models.ResetFinalizeRequest) (map[string]any, error) {
	out := map[string]any{}
	if err := c.call(ctx, http.MethodPost, PathResetSet, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GoogleLogin(ctx context.Context, idToken string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.call(ctx, http.MethodPost, PathGoogleLogin, models.GoogleLoginRequest{IDToken: idToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.call(ctx, http.MethodGet, PathUsers, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ API = (*HTTPClient)(nil)
