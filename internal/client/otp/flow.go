// Package otp implements the one-time-code verification flow shared by
// registration, phone login and password reset. The flow keeps custody of
// the temp token between the identity check and the code check, and
// checkpoints itself so an interrupted verification can resume.
package otp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/metrics"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// DefaultTTL bounds how long a checkpoint can be resumed.
const DefaultTTL = 10 * time.Minute

var (
	ErrUnknownContext    = errors.New("unknown otp context")
	ErrResendUnsupported = errors.New("resend is not supported for this flow")
	ErrVerifyInProgress  = errors.New("verification already in progress")
	ErrNoActiveFlow      = errors.New("no verification in progress")
)

// Context selects the verify endpoint and the post-verify route.
type Context string

const (
	ContextRegistration Context = "registration"
	ContextLogin        Context = "login"
	ContextReset        Context = "reset"
)

func (c Context) Valid() bool {
	switch c {
	case ContextRegistration, ContextLogin, ContextReset:
		return true
	}
	return false
}

func ParseContext(s string) (Context, error) {
	c := Context(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownContext, s)
	}
	return c, nil
}

// Extras carry context-specific results of a verification.
type Extras struct {
	// ResetToken is set only by a successful reset-context verification.
	ResetToken string
}

// State is a snapshot of the flow. The zero value is the idle flow.
type State struct {
	Active    bool
	Context   Context
	Identity  models.Identity
	TempToken string
	Message   string

	VerifyLoading bool
	VerifyErr     error
	Verified      bool

	ResendLoading bool
	ResendErr     error

	Extras    Extras
	StartedAt time.Time
}

// Endpoints map contexts to backend paths. A context missing from Resend
// cannot resend.
type Endpoints struct {
	Verify map[Context]string
	Resend map[Context]string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Verify: map[Context]string{
			ContextLogin:        "/verify-otp/",
			ContextRegistration: "/verify-registration-otp/",
			ContextReset:        "/password-reset-verify/",
		},
		Resend: map[Context]string{
			ContextLogin: "/resend-otp/",
		},
	}
}

// VerifyParams are the arguments of Verify. An empty TempToken falls back
// to the one held by the flow.
type VerifyParams struct {
	Context   Context
	OTP       string
	TempToken string
	Extra     map[string]any
}

// VerifiedFunc observes successful verifications.
type VerifiedFunc func(ctx context.Context, p VerifyParams, resp *models.VerifyResponse) error

type Options struct {
	API        client.API
	Checkpoint CheckpointStore
	Endpoints  Endpoints
	TTL        time.Duration
	Log        logging.Logger
	Metrics    *metrics.Metrics
}

// Flow is safe for concurrent use, but only one Verify may be pending at a
// time.
type Flow struct {
	api        client.API
	checkpoint CheckpointStore
	endpoints  Endpoints
	ttl        time.Duration
	log        logging.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	mu        sync.Mutex
	state     State
	observers []VerifiedFunc
}

func NewFlow(opts Options) *Flow {
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ep := opts.Endpoints
	if ep.Verify == nil {
		ep.Verify = DefaultEndpoints().Verify
	}
	if ep.Resend == nil {
		ep.Resend = DefaultEndpoints().Resend
	}
	return &Flow{
		api:        opts.API,
		checkpoint: opts.Checkpoint,
		endpoints:  ep,
		ttl:        ttl,
		log:        log.With("component", "otp"),
		metrics:    opts.Metrics,
		now:        time.Now,
	}
}

// OnVerified registers fn to run after every successful Verify.
func (f *Flow) OnVerified(fn VerifiedFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

func (f *Flow) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// CanResend reports whether c has a resend endpoint.
func (f *Flow) CanResend(c Context) bool {
	_, ok := f.endpoints.Resend[c]
	return ok
}

// TTL returns how long a started flow can be resumed.
func (f *Flow) TTL() time.Duration {
	return f.ttl
}

// mutate applies fn under the lock and checkpoints the result.
func (f *Flow) mutate(ctx context.Context, fn func(s *State)) State {
	f.mu.Lock()
	fn(&f.state)
	f.touch()
	s := f.state
	f.mu.Unlock()

	f.save(ctx, s)
	return s
}

// Start re-initializes the flow. It is always allowed, even over an
// active flow.
func (f *Flow) Start(ctx context.Context, c Context, identity models.Identity, tempToken, message string) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownContext, c)
	}
	f.mutate(ctx, func(s *State) {
		*s = State{
			Active:    true,
			Context:   c,
			Identity:  identity,
			TempToken: tempToken,
			Message:   message,
			StartedAt: f.now(),
		}
	})
	f.log.Debug(ctx, "otp flow started", "context", c, "identity", identity.String())
	return nil
}

// Verify submits a code for the active flow. On success the flow is marked verified and the
// temp token is released according to the context; on failure the flow
// stays active for another attempt.
func (f *Flow) Verify(ctx context.Context, p VerifyParams) (*models.VerifyResponse, error) {
	path, ok := f.endpoints.Verify[p.Context]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContext, p.Context)
	}

	f.mu.Lock()
	if f.state.VerifyLoading {
		f.mu.Unlock()
		return nil, ErrVerifyInProgress
	}
	if !f.state.Active {
		f.mu.Unlock()
		return nil, ErrNoActiveFlow
	}
	f.state.VerifyLoading = true
	f.state.VerifyErr = nil
	if p.TempToken == "" {
		p.TempToken = f.state.TempToken
	}
	f.touch()
	pending := f.state
	f.mu.Unlock()
	f.save(ctx, pending)

	resp, err := f.api.VerifyOTP(ctx, path, models.VerifyRequest{OTP: p.OTP, TempToken: p.TempToken, Extra: p.Extra})
	if err != nil {
		f.mutate(ctx, func(s *State) {
			s.VerifyLoading = false
			s.VerifyErr = err
		})
		f.metrics.IncOTPVerification(string(p.Context), false)
		f.log.Info(ctx, "otp verification failed", "context", p.Context, "err", err)
		return nil, err
	}

	f.mutate(ctx, func(s *State) {
		s.VerifyLoading = false
		s.Verified = true
		if p.Context == ContextReset {
			if resp.ResetToken != "" {
				s.Extras.ResetToken = resp.ResetToken
				s.TempToken = ""
			}
		} else {
			s.TempToken = ""
		}
	})
	f.metrics.IncOTPVerification(string(p.Context), true)

	f.mu.Lock()
	observers := append([]VerifiedFunc(nil), f.observers...)
	f.mu.Unlock()

	var errs []error
	for _, fn := range observers {
		if err := fn(ctx, p, resp); err != nil {
			errs = append(errs, err)
		}
	}
	return resp, errors.Join(errs...)
}

// Resend asks for a new code. A zero identity falls back to the flow's.
func (f *Flow) Resend(ctx context.Context, c Context, identity models.Identity) (*models.MessageResponse, error) {
	path, ok := f.endpoints.Resend[c]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrResendUnsupported, c)
		f.mu.Lock()
		active := f.state.Active
		f.mu.Unlock()
		if active {
			f.mutate(ctx, func(s *State) { s.ResendErr = err })
		}
		return nil, err
	}

	f.mu.Lock()
	if identity.IsZero() {
		identity = f.state.Identity
	}
	f.state.ResendLoading = true
	f.state.ResendErr = nil
	f.mu.Unlock()

	resp, err := f.api.ResendOTP(ctx, path, identity)
	if err != nil {
		f.mutate(ctx, func(s *State) {
			s.ResendLoading = false
			s.ResendErr = err
		})
		return nil, err
	}

	f.mutate(ctx, func(s *State) {
		s.ResendLoading = false
		if msg := resp.Text(); msg != "" {
			s.Message = msg
		}
	})
	return resp, nil
}

// Reset returns the flow to idle and deletes the checkpoint.
func (f *Flow) Reset(ctx context.Context) error {
	f.mu.Lock()
	f.state = State{}
	f.mu.Unlock()

	if f.checkpoint == nil {
		return nil
	}
	return f.checkpoint.Delete(ctx)
}

// Rehydrate restores a checkpoint younger than the TTL. A stale or
// unreadable checkpoint is deleted and the flow stays idle.
func (f *Flow) Rehydrate(ctx context.Context) (bool, error) {
	if f.checkpoint == nil {
		return false, nil
	}

	cp, err := f.checkpoint.Load(ctx)
	if err != nil {
		f.log.Warn(ctx, "discarding unreadable otp checkpoint", "err", err)
		return false, f.checkpoint.Delete(ctx)
	}
	if cp == nil {
		return false, nil
	}

	if !cp.Context.Valid() || cp.StartedAt.IsZero() || f.now().Sub(cp.StartedAt) > f.ttl {
		f.log.Debug(ctx, "otp checkpoint expired", "started_at", cp.StartedAt)
		return false, f.checkpoint.Delete(ctx)
	}

	f.mu.Lock()
	f.state = State{
		Active:    cp.Active,
		Context:   cp.Context,
		Identity:  cp.Identity,
		TempToken: cp.TempToken,
		Message:   cp.Message,
		Verified:  cp.Verified,
		StartedAt: cp.StartedAt,
	}
	f.mu.Unlock()
	return true, nil
}

// touch restarts the TTL window of an active flow. Callers hold f.mu.
func (f *Flow) touch() {
	if f.state.Active {
		f.state.StartedAt = f.now()
	}
}

func (f *Flow) save(ctx context.Context, s State) {
	if f.checkpoint == nil {
		return
	}
	if err := f.checkpoint.Save(ctx, checkpointOf(s)); err != nil {
		f.log.Warn(ctx, "failed to save otp checkpoint", "err", err)
	}
}
