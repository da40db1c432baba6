// Package session holds the authentication status and the current user
// profile. All changes go through the Manager's named transitions; each
// transition that yields an access token stores it before the new state
// becomes visible.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/credentials"
	"github.com/dmitrijs2005/gophauth/internal/client/metrics"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusError          Status = "error"
)

// ErrLogoutNotConfirmed wraps a failed server-side logout. Local state is
// torn down regardless.
var ErrLogoutNotConfirmed = errors.New("server did not confirm logout")

// State is an immutable snapshot of the session.
type State struct {
	Status          Status
	User            *models.User
	Loading         bool
	Err             error
	IsAuthenticated bool
}

// Options configure a Manager.
type Options struct {
	API         client.API
	Credentials credentials.Store
	// CookieOptions are applied to every stored token.
	CookieOptions credentials.Options
	Log           logging.Logger
	Metrics       *metrics.Metrics
	// OnTeardown runs after every local logout, e.g. to drop the cookie jar.
	OnTeardown func(ctx context.Context) error
}

// Manager is safe for concurrent use. Network calls run outside the lock;
// a response arriving after the caller lost interest still applies cleanly.
type Manager struct {
	api        client.API
	creds      credentials.Store
	cookieOpts credentials.Options
	log        logging.Logger
	metrics    *metrics.Metrics
	onTeardown func(ctx context.Context) error

	mu    sync.Mutex
	state State
	subs  map[int]func(State)
	next  int
}

func NewManager(opts Options) *Manager {
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		api:        opts.API,
		creds:      opts.Credentials,
		cookieOpts: opts.CookieOptions,
		log:        log.With("component", "session"),
		metrics:    opts.Metrics,
		onTeardown: opts.OnTeardown,
		state:      State{Status: StatusAnonymous},
		subs:       make(map[int]func(State)),
	}
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn to receive the state after every transition and
// returns a function that removes it.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// update applies fn under the lock and then notifies subscribers.
func (m *Manager) update(fn func(s *State)) State {
	m.mu.Lock()
	fn(&m.state)
	s := m.state
	subs := make([]func(State), 0, len(m.subs))
	for _, f := range m.subs {
		subs = append(subs, f)
	}
	m.mu.Unlock()

	for _, f := range subs {
		f(s)
	}
	return s
}

func (m *Manager) storeToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.creds.Set(ctx, token, m.cookieOpts.ForToken(token)); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	return nil
}

func (m *Manager) begin() {
	m.update(func(s *State) {
		s.Loading = true
		s.Err = nil
		if !s.IsAuthenticated {
			s.Status = StatusAuthenticating
		}
	})
}

func (m *Manager) fail(err error) error {
	m.update(func(s *State) {
		s.Loading = false
		s.Err = err
		s.Status = StatusError
	})
	return err
}

// authenticate stores the token and promotes the session in one step.
func (m *Manager) authenticate(ctx context.Context, resp *models.AuthResponse) (*models.User, error) {
	if err := m.storeToken(ctx, resp.Access); err != nil {
		return nil, m.fail(err)
	}
	m.update(func(s *State) {
		s.Loading = false
		s.Err = nil
		s.User = resp.User
		s.IsAuthenticated = resp.User != nil || resp.Access != ""
		s.Status = statusFor(s.IsAuthenticated)
	})
	return resp.User, nil
}

func statusFor(authenticated bool) Status {
	if authenticated {
		return StatusAuthenticated
	}
	return StatusAnonymous
}

// Login authenticates with an email or username and a password.
func (m *Manager) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	m.begin()
	resp, err := m.api.Login(ctx, models.NewLoginRequest(identifier, password))
	if err != nil {
		m.log.Info(ctx, "login failed", "err", err)
		return nil, m.fail(err)
	}
	return m.authenticate(ctx, resp)
}

// LoginWithGoogle exchanges a Google identity token for a session.
func (m *Manager) LoginWithGoogle(ctx context.Context, idToken string) (*models.User, error) {
	m.begin()
	resp, err := m.api.GoogleLogin(ctx, idToken)
	if err != nil {
		return nil, m.fail(err)
	}
	return m.authenticate(ctx, resp)
}

// Register creates an account. When the backend logs the user in straight
// away the session is promoted; otherwise the response carries the temp
// token for a registration OTP flow.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	m.begin()
	resp, err := m.api.Register(ctx, req)
	if err != nil {
		return nil, m.fail(err)
	}
	if resp.Access != "" && resp.User != nil {
		if _, err := m.authenticate(ctx, &resp.AuthResponse); err != nil {
			return nil, err
		}
		return resp, nil
	}
	m.update(func(s *State) {
		s.Loading = false
		s.Status = statusFor(s.IsAuthenticated)
	})
	return resp, nil
}

// SendLoginOTP asks for a login code to be sent to phone. The session is
// unchanged; the challenge feeds a login OTP flow.
func (m *Manager) SendLoginOTP(ctx context.Context, phone string) (*models.OTPChallenge, error) {
	phone = models.NormalizePhone(phone)
	if phone == "" {
		return nil, errors.New("phone number is required")
	}
	m.begin()
	ch, err := m.api.SendLoginOTP(ctx, phone)
	if err != nil {
		return nil, m.fail(err)
	}
	if ch.PhoneNumber == "" {
		ch.PhoneNumber = phone
	}
	m.update(func(s *State) {
		s.Loading = false
		s.Status = statusFor(s.IsAuthenticated)
	})
	return ch, nil
}

// FetchProfile loads the current user. A failure is a hard invalidation:
// user and flag are cleared together.
func (m *Manager) FetchProfile(ctx context.Context) (*models.User, error) {
	u, err := m.api.Me(ctx)
	if err != nil {
		m.update(func(s *State) {
			s.User = nil
			s.IsAuthenticated = false
			s.Status = StatusAnonymous
		})
		return nil, err
	}
	m.SetUser(u)
	return u, nil
}

// Refresh obtains a new access token from the refresh cookie. The client
// stores the token; a failure clears user and flag.
func (m *Manager) Refresh(ctx context.Context) error {
	if _, err := m.api.RefreshToken(ctx); err != nil {
		m.Expire(ctx)
		return err
	}
	m.update(func(s *State) {
		s.IsAuthenticated = true
		s.Status = StatusAuthenticated
	})
	return nil
}

// Expire clears user and flag after the credential store was emptied
// elsewhere, e.g. by a failed refresh inside the HTTP client.
func (m *Manager) Expire(ctx context.Context) {
	m.update(func(s *State) {
		s.User = nil
		s.IsAuthenticated = false
		s.Loading = false
		s.Status = StatusAnonymous
	})
}

// Promote applies a successful OTP verification in the login or
// registration context.
func (m *Manager) Promote(ctx context.Context, resp *models.VerifyResponse) error {
	if resp == nil || (resp.Access == "" && resp.User == nil) {
		return nil
	}
	if err := m.storeToken(ctx, resp.Access); err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) {
		if resp.User != nil {
			s.User = resp.User
		}
		s.IsAuthenticated = true
		s.Status = StatusAuthenticated
		s.Err = nil
	})
	return nil
}

// SetUser replaces the user; a nil user leaves the session anonymous.
func (m *Manager) SetUser(u *models.User) {
	m.update(func(s *State) {
		s.User = u
		s.IsAuthenticated = u != nil
		s.Status = statusFor(s.IsAuthenticated)
	})
}

func (m *Manager) ClearError() {
	m.update(func(s *State) {
		s.Err = nil
		if s.Status == StatusError {
			s.Status = statusFor(s.IsAuthenticated)
		}
	})
}

// Logout always tears down the local session. A server failure is
// reported as ErrLogoutNotConfirmed after the teardown.
func (m *Manager) Logout(ctx context.Context) error {
	serverErr := m.api.Logout(ctx)

	var errs []error
	if serverErr != nil {
		m.log.Warn(ctx, "server logout failed, clearing local session anyway", "err", serverErr)
		errs = append(errs, fmt.Errorf("%w: %w", ErrLogoutNotConfirmed, serverErr))
	}
	if err := m.creds.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to clear access token: %w", err))
	}
	if m.onTeardown != nil {
		if err := m.onTeardown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	m.update(func(s *State) {
		s.User = nil
		s.IsAuthenticated = false
		s.Loading = false
		s.Err = nil
		s.Status = StatusAnonymous
	})
	m.metrics.IncTeardown("logout")
	m.log.Info(ctx, "logged out")

	return errors.Join(errs...)
}

// Bootstrap restores the session on start-up: with a stored token the
// profile is fetched, without one the session stays anonymous.
func (m *Manager) Bootstrap(ctx context.Context) error {
	token, ok := m.creds.Get(ctx)
	if !ok {
		return nil
	}
	m.log.Debug(ctx, "restoring session", "token", common.MaskToken(token))
	_, err := m.FetchProfile(ctx)
	return err
}

func (m *Manager) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	u, err := m.api.UpdateProfile(ctx, upd)
	if err != nil {
		return nil, err
	}
	m.SetUser(u)
	return u, nil
}

func (m *Manager) UploadPicture(ctx context.Context, filename string, r io.Reader) (*models.User, error) {
	u, err := m.api.UploadProfilePicture(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	m.SetUser(u)
	return u, nil
}

// ChangePassword returns the backend's confirmation message.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) (string, error) {
	resp, err := m.api.ChangePassword(ctx, models.ChangePasswordRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
