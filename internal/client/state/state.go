// Package state builds the application state container: the local
// database, the credential store and cookie jar, the HTTP client and the
// session, OTP and password-reset flows that share them.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/cookies"
	"github.com/dmitrijs2005/gophauth/internal/client/credentials"
	"github.com/dmitrijs2005/gophauth/internal/client/mediaurl"
	"github.com/dmitrijs2005/gophauth/internal/client/metrics"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/otp"
	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/client/reset"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// Container owns every long-lived client component. Close releases the
// database.
type Container struct {
	Config      *config.Config
	DB          *sql.DB
	Repo        *metadata.SQLiteRepository
	Credentials credentials.Store
	Jar         *cookies.Jar
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Client      *client.HTTPClient
	Session     *session.Manager
	OTP         *otp.Flow
	Reset       *reset.Flow
	Media       *mediaurl.Resolver
	Log         logging.Logger
}

// New opens the database at cfg.DatabasePath and wires the components.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*Container, error) {
	if log == nil {
		log = logging.Nop()
	}

	if _, err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		return nil, fmt.Errorf("failed to prepare database directory: %w", err)
	}

	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	c, err := build(ctx, cfg, db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func build(ctx context.Context, cfg *config.Config, db *sql.DB, log logging.Logger) (*Container, error) {
	repo := metadata.NewSQLiteRepository(db)
	cookieOpts := credentials.DefaultOptions(cfg.SecureCookies())

	var (
		store   credentials.Store
		jarRepo metadata.Repository
	)
	if cfg.PersistCookies {
		store = credentials.NewPersistentStore(repo, log)
		jarRepo = repo
	} else {
		store = credentials.NewMemoryStore()
	}

	jar, err := cookies.New(jarRepo)
	if err != nil {
		return nil, err
	}
	if err := jar.Load(ctx); err != nil {
		log.Warn(ctx, "discarding stored cookies", "err", err)
		if err := jar.Clear(ctx); err != nil {
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	c := &Container{
		Config:      cfg,
		DB:          db,
		Repo:        repo,
		Credentials: store,
		Jar:         jar,
		Registry:    reg,
		Metrics:     m,
		Media:       mediaurl.New(cfg.MediaBaseURL, cfg.APIBaseURL),
		Log:         log,
	}

	hc, err := client.NewHTTPClient(client.Options{
		BaseURL:       cfg.APIBaseURL,
		Credentials:   store,
		CookieOptions: cookieOpts,
		Jar:           jar,
		Timeout:       cfg.RequestTimeout,
		Log:           log,
		Metrics:       m,
		OnSessionExpired: func(ctx context.Context) {
			if c.Session != nil {
				c.Session.Expire(ctx)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	c.Client = hc

	c.Session = session.NewManager(session.Options{
		API:           hc,
		Credentials:   store,
		CookieOptions: cookieOpts,
		Log:           log,
		Metrics:       m,
		OnTeardown:    c.teardown,
	})

	c.OTP = otp.NewFlow(otp.Options{
		API:        hc,
		Checkpoint: otp.NewRepositoryCheckpointStore(repo),
		Endpoints:  endpoints(cfg.ResendEndpoints),
		TTL:        cfg.OTPTTL,
		Log:        log,
		Metrics:    m,
	})
	c.Reset = reset.NewFlow(hc, c.OTP, log)

	c.OTP.OnVerified(c.promote)
	c.OTP.OnVerified(c.Reset.HandleVerified)

	return c, nil
}

// endpoints overlays the configured resend table on the defaults. Unknown
// contexts are ignored.
func endpoints(resend map[string]string) otp.Endpoints {
	ep := otp.DefaultEndpoints()
	if resend == nil {
		return ep
	}
	ep.Resend = make(map[otp.Context]string, len(resend))
	for k, v := range resend {
		if c, err := otp.ParseContext(k); err == nil && v != "" {
			ep.Resend[c] = v
		}
	}
	return ep
}

func (c *Container) promote(ctx context.Context, p otp.VerifyParams, resp *models.VerifyResponse) error {
	switch p.Context {
	case otp.ContextLogin, otp.ContextRegistration:
		return c.Session.Promote(ctx, resp)
	}
	return nil
}

// teardown drops the in-memory cookies and deletes the stored access token
// and cookie jar in one transaction.
func (c *Container) teardown(ctx context.Context) error {
	if err := c.Jar.Forget(); err != nil {
		return err
	}
	if !c.Config.PersistCookies {
		return nil
	}
	return metadata.Wipe(ctx, c.DB, common.AccessTokenKey, common.CookieJarKey)
}

// Restore resumes what a previous run left behind: an unexpired OTP flow
// and a session backed by a stored access token.
func (c *Container) Restore(ctx context.Context) error {
	ok, err := c.OTP.Rehydrate(ctx)
	if err != nil {
		c.Log.Warn(ctx, "failed to restore otp flow", "err", err)
	}
	if ok {
		c.Reset.Resume(c.OTP.Snapshot())
	}
	return c.Session.Bootstrap(ctx)
}

// Close flushes pending cookies and closes the database.
func (c *Container) Close(ctx context.Context) error {
	return errors.Join(c.Jar.Flush(ctx), c.DB.Close())
}
