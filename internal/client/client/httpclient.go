package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/gophauth/internal/client/credentials"
	"github.com/dmitrijs2005/gophauth/internal/client/metrics"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

const refreshPath = "/token/refresh/"

// Options configure an HTTPClient. Credentials and BaseURL are required.
type Options struct {
	BaseURL     string
	Credentials credentials.Store
	// CookieOptions are applied to tokens obtained by a refresh.
	CookieOptions credentials.Options
	// Jar carries the protected refresh cookie. A jar that also has a
	// Flush(ctx) error method is flushed after every response.
	Jar       http.CookieJar
	Timeout   time.Duration
	Transport http.RoundTripper
	Log       logging.Logger
	Metrics   *metrics.Metrics
	// OnSessionExpired runs once per failed refresh, after the credential
	// store was cleared.
	OnSessionExpired func(ctx context.Context)
}

type flusher interface {
	Flush(ctx context.Context) error
}

// HTTPClient talks JSON to the account backend. Every request goes through
// the same attach, send, classify cycle; a 401 on a request that was not
// retried yet triggers one shared refresh and a single re-issue.
type HTTPClient struct {
	baseURL    string
	hc         *http.Client
	creds      credentials.Store
	cookieOpts credentials.Options
	log        logging.Logger
	metrics    *metrics.Metrics
	onExpired  func(ctx context.Context)
	requestID  func() string

	refreshGroup singleflight.Group

	mu          sync.RWMutex
	defaultAuth string
}

func NewHTTPClient(opts Options) (*HTTPClient, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if opts.Credentials == nil {
		return nil, errors.New("credential store is required")
	}
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		hc: &http.Client{
			Jar:       opts.Jar,
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		creds:      opts.Credentials,
		cookieOpts: opts.CookieOptions,
		log:        log.With("component", "http"),
		metrics:    opts.Metrics,
		onExpired:  opts.OnSessionExpired,
		requestID:  uuid.NewString,
	}, nil
}

// DefaultAuthorization is the header value refreshed tokens install for
// future requests.
func (c *HTTPClient) DefaultAuthorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultAuth
}

func (c *HTTPClient) setDefaultAuthorization(v string) {
	c.mu.Lock()
	c.defaultAuth = v
	c.mu.Unlock()
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	requestID   string

	retried   bool
	sentToken string
}

type response struct {
	status int
	header http.Header
	body   []byte
}

type step int

const (
	stepDone step = iota
	stepRefresh
	stepFailed
)

func (c *HTTPClient) newRequest(method, path string, payload any) (*request, error) {
	r := &request{method: method, path: path, contentType: "application/json", requestID: c.requestID()}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		r.body = b
	}
	return r, nil
}

// call issues method path with payload encoded as JSON and decodes a 2xx
// body into out (when out is not nil).
func (c *HTTPClient) call(ctx context.Context, method, path string, payload, out any) error {
	r, err := c.newRequest(method, path, payload)
	if err != nil {
		return err
	}
	return c.execute(ctx, r, out)
}

func (c *HTTPClient) execute(ctx context.Context, r *request, out any) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, r *request) (*response, error) {
	start := time.Now()

	for {
		resp, err := c.send(ctx, r)

		switch c.classify(r, resp, err) {
		case stepDone:
			c.metrics.ObserveRequest(r.method, resp.status, start)
			return resp, nil

		case stepFailed:
			status := 0
			if resp != nil {
				status = resp.status
			}
			c.metrics.ObserveRequest(r.method, status, start)
			if err != nil {
				return nil, err
			}
			return nil, newAPIError(resp.status, resp.body)

		case stepRefresh:
			r.retried = true
			original := newAPIError(resp.status, resp.body)

			if token, ok := c.creds.Get(ctx); ok && token != r.sentToken {
				// another request already refreshed while this one was in flight
				c.log.Debug(ctx, "retrying with newer token", "request_id", r.requestID)
			} else if _, rerr := c.refresh(ctx); rerr != nil {
				c.log.Info(ctx, "refresh failed, returning original error",
					"request_id", r.requestID, "path", r.path, "err", rerr)
				c.metrics.ObserveRequest(r.method, resp.status, start)
				return nil, original
			}
			c.metrics.IncRetry()
		}
	}
}

func (c *HTTPClient) classify(r *request, resp *response, err error) step {
	switch {
	case err != nil:
		return stepFailed
	case resp.status == http.StatusUnauthorized && !r.retried:
		return stepRefresh
	case resp.status >= http.StatusBadRequest:
		return stepFailed
	default:
		return stepDone
	}
}

// send performs the attach step and one round-trip.
func (c *HTTPClient) send(ctx context.Context, r *request) (*response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", r.contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, r.requestID)

	if def := c.DefaultAuthorization(); def != "" {
		req.Header.Set(common.AuthorizationHeaderName, def)
	}
	r.sentToken = ""
	if token, ok := c.creds.Get(ctx); ok {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
		r.sentToken = token
	}

	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	c.log.Debug(ctx, "api request",
		"method", r.method, "path", r.path, "status", resp.status,
		"request_id", r.requestID, "retried", r.retried)
	return resp, nil
}

func (c *HTTPClient) roundTrip(ctx context.Context, req *http.Request) (*response, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if f, ok := c.hc.Jar.(flusher); ok {
		if err := f.Flush(ctx); err != nil {
			c.log.Warn(ctx, "failed to persist cookies", "err", err)
		}
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: b}, nil
}

// refresh obtains a new access token using the refresh cookie. Concurrent
// callers share one round-trip. On failure the credential store is
// cleared and the session-expired hook runs.
func (c *HTTPClient) refresh(ctx context.Context) (string, error) {
	v, err, shared := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.refreshOnce(context.WithoutCancel(ctx))
	})
	if shared {
		c.log.Debug(ctx, "joined in-flight refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *HTTPClient) refreshOnce(ctx context.Context) (string, error) {
	token, err := c.postRefresh(ctx)
	if err != nil {
		outcome := metrics.RefreshFailure
		if errors.Is(err, ErrNoAccessToken) {
			outcome = metrics.RefreshNoToken
		}
		c.metrics.IncRefresh(outcome)
		c.expire(ctx)
		return "", err
	}

	if err := c.creds.Set(ctx, token, c.cookieOpts.ForToken(token)); err != nil {
		c.metrics.IncRefresh(metrics.RefreshFailure)
		c.expire(ctx)
		return "", fmt.Errorf("failed to store refreshed token: %w", err)
	}
	c.setDefaultAuthorization(common.BearerPrefix + token)
	c.metrics.IncRefresh(metrics.RefreshSuccess)
	c.log.Info(ctx, "access token refreshed", "token", common.MaskToken(token))
	return token, nil
}

// postRefresh calls the refresh endpoint directly, skipping the attach
// step, so only the cookie jar authenticates it.
func (c *HTTPClient) postRefresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, c.requestID())

	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.status >= http.StatusBadRequest {
		return "", newAPIError(resp.status, resp.body)
	}

	var out struct {
		Access string `json:"access"`
	}
	if len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, &out); err != nil {
			return "", fmt.Errorf("failed to decode refresh response: %w", err)
		}
	}
	if out.Access == "" {
		return "", ErrNoAccessToken
	}
	return out.Access, nil
}

func (c *HTTPClient) expire(ctx context.Context) {
	if err := c.creds.Clear(ctx); err != nil {
		c.log.Error(ctx, "failed to clear credentials", "err", err)
	}
	c.setDefaultAuthorization("")
	c.metrics.IncTeardown("refresh_failed")
	if c.onExpired != nil {
		c.onExpired(ctx)
	}
}
