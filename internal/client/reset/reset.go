// Package reset drives the forgotten-password protocol: start with an
// identity, verify the emailed or texted code through the OTP flow in the
// reset context, then set a new password with the reset token.
package reset

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/otp"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

var (
	// ErrNotVerified means the code was not verified in this session; the
	// caller should go back to the start of the reset.
	ErrNotVerified = errors.New("password reset is not verified")
	// ErrNoCredential means neither a reset token nor a temp token is known.
	ErrNoCredential = errors.New("no reset or temp token available")
	ErrNoIdentity   = errors.New("email or phone number is required")
)

type State struct {
	Starting bool
	StartErr error

	Identity   models.Identity
	TempToken  string
	Verified   bool
	ResetToken string

	Finalizing  bool
	FinalizeErr error
	Finalized   bool
}

type Flow struct {
	api client.API
	otp *otp.Flow
	log logging.Logger

	mu    sync.Mutex
	state State
}

func NewFlow(api client.API, flow *otp.Flow, log logging.Logger) *Flow {
	if log == nil {
		log = logging.Nop()
	}
	return &Flow{api: api, otp: flow, log: log.With("component", "reset")}
}

func (f *Flow) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) update(fn func(s *State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.state)
}

// Start asks the backend to send a reset code to identity and opens the
// OTP flow in the reset context.
func (f *Flow) Start(ctx context.Context, identity models.Identity) (*models.OTPChallenge, error) {
	if identity.IsZero() {
		return nil, ErrNoIdentity
	}

	f.update(func(s *State) {
		*s = State{Starting: true}
	})

	ch, err := f.api.StartPasswordReset(ctx, identity)
	if err != nil {
		f.update(func(s *State) {
			s.Starting = false
			s.StartErr = err
		})
		return nil, err
	}

	if echoed := ch.Identity(); !echoed.IsZero() {
		identity = echoed
	}
	f.update(func(s *State) {
		s.Starting = false
		s.Identity = identity
		s.TempToken = ch.TempToken
	})

	if err := f.otp.Start(ctx, otp.ContextReset, identity, ch.TempToken, ch.Message); err != nil {
		return nil, err
	}
	f.log.Debug(ctx, "password reset started", "identity", identity.String())
	return ch, nil
}

// HandleVerified records a successful reset-context verification. Other
// contexts are ignored. The temp token is kept as a fallback credential.
func (f *Flow) HandleVerified(ctx context.Context, p otp.VerifyParams, resp *models.VerifyResponse) error {
	if p.Context != otp.ContextReset {
		return nil
	}
	f.update(func(s *State) {
		s.Verified = true
		if resp != nil && resp.ResetToken != "" {
			s.ResetToken = resp.ResetToken
		}
		if s.TempToken == "" {
			s.TempToken = p.TempToken
		}
	})
	return nil
}

// Resume adopts a rehydrated OTP flow in the reset context. The reset token
// is never persisted, so a verified flow can only resume when its temp
// token survived.
func (f *Flow) Resume(s otp.State) bool {
	if !s.Active || s.Context != otp.ContextReset {
		return false
	}
	f.update(func(st *State) {
		*st = State{
			Identity:  s.Identity,
			TempToken: s.TempToken,
			Verified:  s.Verified && s.TempToken != "",
		}
	})
	return true
}

// Finalize sets the new password. The reset token takes precedence over
// the temp token and only one of them is sent. A successful reset never
// signs the user in.
func (f *Flow) Finalize(ctx context.Context, newPassword, confirmPassword string) (map[string]any, error) {
	f.mu.Lock()
	s := f.state
	if !s.Verified {
		f.mu.Unlock()
		return nil, ErrNotVerified
	}
	req := models.ResetFinalizeRequest{NewPassword: newPassword, ConfirmPassword: confirmPassword}
	switch {
	case s.ResetToken != "":
		req.ResetToken = s.ResetToken
	case s.TempToken != "":
		req.TempToken = s.TempToken
	default:
		f.mu.Unlock()
		return nil, ErrNoCredential
	}
	f.state.Finalizing = true
	f.state.FinalizeErr = nil
	f.mu.Unlock()

	out, err := f.api.FinalizePasswordReset(ctx, req)
	if err != nil {
		f.update(func(s *State) {
			s.Finalizing = false
			s.FinalizeErr = err
		})
		return nil, err
	}

	f.update(func(s *State) {
		s.Finalizing = false
		s.Finalized = true
		s.ResetToken = ""
		s.TempToken = ""
	})
	if err := f.otp.Reset(ctx); err != nil {
		f.log.Warn(ctx, "failed to clear otp checkpoint", "err", err)
	}
	f.log.Info(ctx, "password reset finalized")
	return out, nil
}

// Clear forgets the reset in progress.
func (f *Flow) Clear() {
	f.update(func(s *State) { *s = State{} })
}
