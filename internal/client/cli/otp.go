package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/otp"
	"github.com/dmitrijs2005/gophauth/internal/client/reset"
)

// startOTP opens a verification flow and starts the resend cooldown.
func (a *App) startOTP(ctx context.Context, c otp.Context, identity models.Identity, tempToken, message string) error {
	if err := a.otp.Start(ctx, c, identity, tempToken, message); err != nil {
		return err
	}
	a.restartCooldown()

	if message != "" {
		fmt.Fprintln(a.out, message)
	}
	fmt.Fprintf(a.out, "A code was sent to %s. Enter it with 'verify <code>' or paste the link from the message.\n", identity)
	return nil
}

func (a *App) restartCooldown() {
	if a.resendCooldown <= 0 {
		return
	}
	if a.cooldown == nil {
		a.cooldown = otp.NewCountdown(a.resendCooldown)
		return
	}
	a.cooldown.Restart()
}

// Verify submits a code, or the token of an emailed link, for the pending
// flow and continues where the flow leads.
func (a *App) Verify(ctx context.Context, args []string) error {
	flow := a.otp.Snapshot()
	if !flow.Active {
		return otp.ErrNoActiveFlow
	}

	code, err := a.argOrPrompt(args, "Enter the code sent to "+flow.Identity.String())
	if err != nil {
		return err
	}
	if strings.Contains(code, "token=") {
		if code, err = otp.CodeFromLink(code); err != nil {
			return err
		}
	}

	if _, err := a.otp.Verify(ctx, otp.VerifyParams{Context: flow.Context, OTP: code}); err != nil {
		return err
	}

	switch otp.NextStep(flow.Context, a.isLoggedIn()) {
	case otp.RouteDashboard:
		fmt.Fprintln(a.out, "Verified.", a.welcome())
		a.finishOTP(ctx)
	case otp.RouteLogin:
		fmt.Fprintln(a.out, "Verified. Please log in.")
		a.finishOTP(ctx)
	case otp.RouteNewPassword:
		fmt.Fprintln(a.out, "Code verified. Set a new password with 'reset-password'.")
	}
	return nil
}

func (a *App) finishOTP(ctx context.Context) {
	if err := a.otp.Reset(ctx); err != nil {
		a.log.Warn(ctx, "failed to clear otp flow", "err", err)
	}
	a.cooldown = nil
}

// Resend asks for a fresh code once the cooldown has passed.
func (a *App) Resend(ctx context.Context, _ []string) error {
	flow := a.otp.Snapshot()
	if !flow.Active {
		return otp.ErrNoActiveFlow
	}
	if !a.otp.CanResend(flow.Context) {
		return fmt.Errorf("%w: start the %s again to get a new code", otp.ErrResendUnsupported, flow.Context)
	}
	if a.cooldown != nil && !a.cooldown.Expired() {
		return fmt.Errorf("please wait %s before requesting a new code", otp.FormatRemaining(a.cooldown.Remaining()))
	}

	resp, err := a.otp.Resend(ctx, flow.Context, models.Identity{})
	if err != nil {
		return err
	}
	a.restartCooldown()

	if msg := resp.Text(); msg != "" {
		fmt.Fprintln(a.out, msg)
	} else {
		fmt.Fprintf(a.out, "A new code was sent to %s.\n", flow.Identity)
	}
	return nil
}

// ForgotPassword starts a password reset for an email or phone number.
func (a *App) ForgotPassword(ctx context.Context, args []string) error {
	v, err := a.argOrPrompt(args, "Enter email or phone number")
	if err != nil {
		return err
	}

	identity := models.IdentityFrom("", v)
	if strings.Contains(v, "@") {
		identity = models.IdentityFrom(v, "")
	}

	ch, err := a.reset.Start(ctx, identity)
	if err != nil {
		return err
	}
	a.restartCooldown()

	if ch.Message != "" {
		fmt.Fprintln(a.out, ch.Message)
	}
	fmt.Fprintf(a.out, "A reset code was sent to %s. Enter it with 'verify <code>'.\n", a.reset.Snapshot().Identity)
	return nil
}

// ResetPassword sets the new password after a verified reset code.
func (a *App) ResetPassword(ctx context.Context, _ []string) error {
	if !a.reset.Snapshot().Verified {
		return fmt.Errorf("%w: start with 'forgot-password'", reset.ErrNotVerified)
	}

	pw, confirm, err := a.readNewPassword("Enter new password")
	if err != nil {
		return err
	}

	if _, err := a.reset.Finalize(ctx, pw, confirm); err != nil {
		if errors.Is(err, reset.ErrNoCredential) {
			return fmt.Errorf("%w: start with 'forgot-password'", err)
		}
		return err
	}
	a.cooldown = nil
	fmt.Fprintln(a.out, "Password updated. Please log in with your new password.")
	return nil
}
