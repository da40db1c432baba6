// Package config loads runtime configuration for the gophauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config, or $GOPHAUTH_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   backend API base URL
//	-m string   media base URL
//	-d string   local SQLite database path
//	-t int      request timeout (seconds)
//	-l string   log level
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "10m" or
// integer nanoseconds:
//
//	{
//	  "api_base_url": "https://auth.example.com/api",
//	  "media_base_url": "https://cdn.example.com",
//	  "database_path": "/var/lib/gophauth/client.db",
//	  "request_timeout": "15s",
//	  "secure": true,
//	  "otp_ttl": "10m",
//	  "resend_cooldown": "60s",
//	  "resend_endpoints": {"login": "/resend-otp/"},
//	  "log_level": "debug",
//	  "persist_cookies": true
//	}
package config
