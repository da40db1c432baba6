package config

import (
	"net/url"
	"strings"
	"time"
)

// Config holds runtime settings for the gophauth CLI.
//
// Units: RequestTimeout, OTPTTL and ResendCooldown are time.Duration values.
type Config struct {
	APIBaseURL     string
	MediaBaseURL   string
	DatabasePath   string
	RequestTimeout time.Duration
	// Secure forces the Secure attribute on the stored access token. It is
	// implied by an https API base URL.
	Secure          bool
	OTPTTL          time.Duration
	ResendCooldown  time.Duration
	ResendEndpoints map[string]string
	LogLevel        string
	PersistCookies  bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8000/api"
	c.MediaBaseURL = ""
	c.DatabasePath = "gophauth.db"
	c.RequestTimeout = 15 * time.Second
	c.Secure = false
	c.OTPTTL = 10 * time.Minute
	c.ResendCooldown = time.Minute
	c.ResendEndpoints = map[string]string{"login": "/resend-otp/"}
	c.LogLevel = "info"
	c.PersistCookies = true
}

// SecureCookies reports whether stored credentials must carry Secure.
func (c *Config) SecureCookies() bool {
	if c.Secure {
		return true
	}
	u, err := url.Parse(c.APIBaseURL)
	return err == nil && strings.EqualFold(u.Scheme, "https")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
