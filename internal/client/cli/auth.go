package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/otp"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText, getPassword and getOptionalText are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText   = GetSimpleText
	getPassword     = GetPassword
	getOptionalText = GetOptionalText
)

var (
	errNotLoggedIn      = errors.New("you are not logged in")
	errPasswordMismatch = errors.New("passwords do not match")
)

// argOrPrompt returns args[0] when present and asks for the value otherwise.
func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}

// readNewPassword asks for a password twice.
func (a *App) readNewPassword(prompt string) (string, string, error) {
	pw, err := getPassword(prompt, a.out)
	if err != nil {
		return "", "", err
	}
	defer common.WipeByteArray(pw)

	confirm, err := getPassword("Repeat password", a.out)
	if err != nil {
		return "", "", err
	}
	defer common.WipeByteArray(confirm)

	if string(pw) != string(confirm) {
		return "", "", errPasswordMismatch
	}
	return string(pw), string(confirm), nil
}

// Register prompts for the profile fields and a password and creates an
// account. The backend either signs the user in straight away or sends a
// registration code, in which case a registration OTP flow is started.
func (a *App) Register(ctx context.Context, _ []string) error {
	var req models.RegisterRequest
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Enter username", &req.Username},
		{"Enter first name", &req.FirstName},
		{"Enter last name", &req.LastName},
		{"Enter email", &req.Email},
		{"Enter phone number", &req.PhoneNumber},
		{"Enter address", &req.Address},
	}
	for _, f := range fields {
		v, err := getSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	req.PhoneNumber = models.NormalizePhone(req.PhoneNumber)

	pw, confirm, err := a.readNewPassword("Enter password")
	if err != nil {
		return err
	}
	req.Password, req.ConfirmPassword = pw, confirm

	resp, err := a.session.Register(ctx, req)
	if err != nil {
		return err
	}

	if a.isLoggedIn() {
		fmt.Fprintln(a.out, a.welcome())
		return nil
	}
	if resp.TempToken == "" {
		fmt.Fprintln(a.out, "Registration complete, please log in.")
		return nil
	}

	email, phone := resp.Email, resp.Phone
	if email == "" && phone == "" {
		email, phone = req.Email, req.PhoneNumber
	}
	return a.startOTP(ctx, otp.ContextRegistration, models.IdentityFrom(email, phone), resp.TempToken, resp.Message)
}

// Login authenticates with an email or username and a password.
func (a *App) Login(ctx context.Context, args []string) error {
	identifier, err := a.argOrPrompt(args, "Enter email or username")
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.session.Login(ctx, identifier, string(password)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Login successful.", a.welcome())
	return nil
}

// OTPLogin sends a login code to a phone number.
func (a *App) OTPLogin(ctx context.Context, args []string) error {
	phone, err := a.argOrPrompt(args, "Enter phone number")
	if err != nil {
		return err
	}

	ch, err := a.session.SendLoginOTP(ctx, phone)
	if err != nil {
		return err
	}
	return a.startOTP(ctx, otp.ContextLogin, ch.Identity(), ch.TempToken, ch.Message)
}

// GoogleLogin exchanges a Google ID token for a session.
func (a *App) GoogleLogin(ctx context.Context, args []string) error {
	idToken, err := a.argOrPrompt(args, "Paste Google ID token")
	if err != nil {
		return err
	}
	if _, err := a.session.LoginWithGoogle(ctx, idToken); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Login successful.", a.welcome())
	return nil
}

// Logout ends the session. Local state is cleared even when the backend
// cannot be reached.
func (a *App) Logout(ctx context.Context, _ []string) error {
	err := a.session.Logout(ctx)
	if rerr := a.otp.Reset(ctx); rerr != nil {
		a.log.Warn(ctx, "failed to clear otp flow", "err", rerr)
	}
	a.reset.Clear()
	a.cooldown = nil

	if errors.Is(err, session.ErrLogoutNotConfirmed) {
		fmt.Fprintln(a.out, "Logged out locally; the server did not confirm.")
	} else {
		fmt.Fprintln(a.out, "Logged out.")
	}
	return err
}

func (a *App) welcome() string {
	if n := a.session.Snapshot().User.DisplayName(); n != "" {
		return "Welcome, " + n + "!"
	}
	return "Welcome!"
}
