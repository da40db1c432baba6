package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

// API is the account backend as seen by the session, OTP and reset flows.
type API interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	SendLoginOTP(ctx context.Context, phoneNumber string) (*models.OTPChallenge, error)
	VerifyOTP(ctx context.Context, path string, req models.VerifyRequest) (*models.VerifyResponse, error)
	ResendOTP(ctx context.Context, path string, identity models.Identity) (*models.MessageResponse, error)
	RefreshToken(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error)
	UploadProfilePicture(ctx context.Context, filename string, r io.Reader) (*models.User, error)
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (*models.MessageResponse, error)
	StartPasswordReset(ctx context.Context, identity models.Identity) (*models.OTPChallenge, error)
	FinalizePasswordReset(ctx context.Context, req models.ResetFinalizeRequest) (map[string]any, error)
	GoogleLogin(ctx context.Context, idToken string) (*models.AuthResponse, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}
