package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from the zero value, so a file only overrides
// what it names. Durations accept "10m" or integer nanoseconds.
type JsonConfig struct {
	APIBaseURL      *string           `json:"api_base_url"`
	MediaBaseURL    *string           `json:"media_base_url"`
	DatabasePath    *string           `json:"database_path"`
	RequestTimeout  *timex.Duration   `json:"request_timeout"`
	Secure          *bool             `json:"secure"`
	OTPTTL          *timex.Duration   `json:"otp_ttl"`
	ResendCooldown  *timex.Duration   `json:"resend_cooldown"`
	ResendEndpoints map[string]string `json:"resend_endpoints"`
	LogLevel        *string           `json:"log_level"`
	PersistCookies  *bool             `json:"persist_cookies"`
}

// parseJson overlays cfg with values from the file named by -c/-config (or
// $GOPHAUTH_CONFIG). No file means no changes.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.MediaBaseURL, jc.MediaBaseURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.OTPTTL, jc.OTPTTL)
	setDuration(&cfg.ResendCooldown, jc.ResendCooldown)
	if jc.Secure != nil {
		cfg.Secure = *jc.Secure
	}
	if jc.PersistCookies != nil {
		cfg.PersistCookies = *jc.PersistCookies
	}
	if jc.ResendEndpoints != nil {
		cfg.ResendEndpoints = jc.ResendEndpoints
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
