package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/mediaurl"
	"github.com/dmitrijs2005/gophauth/internal/client/otp"
	"github.com/dmitrijs2005/gophauth/internal/client/reset"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/client/state"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

type App struct {
	session  *session.Manager
	otp      *otp.Flow
	reset    *reset.Flow
	api      client.API
	media    *mediaurl.Resolver
	gatherer prometheus.Gatherer
	log      logging.Logger

	resendCooldown time.Duration
	cooldown       *otp.Countdown

	restore func(ctx context.Context) error
	close   func(ctx context.Context) error

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens local storage and wires the client state for cfg.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	st, err := state.New(ctx, c, log)
	if err != nil {
		return nil, err
	}

	return &App{
		session:        st.Session,
		otp:            st.OTP,
		reset:          st.Reset,
		api:            st.Client,
		media:          st.Media,
		gatherer:       st.Registry,
		log:            log,
		resendCooldown: c.ResendCooldown,
		restore:        st.Restore,
		close:          st.Close,
		reader:         bufio.NewReader(os.Stdin),
		out:            os.Stdout,
	}, nil
}

// Run restores the previous session and blocks in the REPL until the user
// exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if a.close != nil {
			if err := a.close(context.WithoutCancel(ctx)); err != nil {
				a.log.Warn(ctx, "failed to close local storage", "err", err)
			}
		}
	}()

	if a.restore != nil {
		if err := a.restore(ctx); err != nil {
			a.log.Info(ctx, "stored session could not be restored", "err", err)
		}
	}

	fmt.Fprintln(a.out, "Welcome to gophauth CLI (type 'help' for commands)")
	if s := a.otp.Snapshot(); s.Active && !s.Verified {
		fmt.Fprintf(a.out, "A %s verification is still pending for %s, use 'verify'.\n", s.Context, s.Identity)
	}

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.session.Snapshot().IsAuthenticated
}

func (a *App) getStatus() string {
	s := a.session.Snapshot()
	status := string(s.Status)
	if n := s.User.DisplayName(); n != "" {
		status = n
	}
	if o := a.otp.Snapshot(); o.Active && !o.Verified {
		status += " otp:" + string(o.Context)
	}
	return fmt.Sprintf("(%s)", status)
}
