package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/metrics"
	"github.com/dmitrijs2005/gophauth/internal/client/otp"
)

// Status prints the session and any pending verification.
func (a *App) Status(_ context.Context, _ []string) error {
	s := a.session.Snapshot()
	fmt.Fprintf(a.out, "Session: %s\n", s.Status)
	if s.User != nil {
		fmt.Fprintf(a.out, "User: %s (id %d)\n", s.User.Username, s.User.ID)
	}
	if s.Err != nil {
		fmt.Fprintf(a.out, "Last error: %v\n", s.Err)
	}

	o := a.otp.Snapshot()
	if !o.Active {
		fmt.Fprintln(a.out, "Verification: none")
		return nil
	}

	state := "pending"
	if o.Verified {
		state = "verified"
	}
	fmt.Fprintf(a.out, "Verification: %s %s for %s\n", o.Context, state, o.Identity)
	if !o.StartedAt.IsZero() {
		left := a.otp.TTL() - time.Since(o.StartedAt)
		fmt.Fprintf(a.out, "Resumable for: %s\n", otp.FormatRemaining(left))
	}
	if a.otp.CanResend(o.Context) && a.cooldown != nil {
		if a.cooldown.Expired() {
			fmt.Fprintln(a.out, "Resend: available")
		} else {
			fmt.Fprintf(a.out, "Resend: in %s\n", otp.FormatRemaining(a.cooldown.Remaining()))
		}
	}
	return nil
}

// Stats prints the client metrics collected in this run.
func (a *App) Stats(_ context.Context, _ []string) error {
	lines, err := metrics.Summary(a.gatherer)
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Fprintln(a.out, l)
	}
	return nil
}
