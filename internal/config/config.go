// Package config loads the gateway's configuration from a YAML file with
// environment-variable overrides, following the shape of §6.4.
//
// Grounded on the teacher's internal/config (goccy/go-yaml unmarshal plus
// joho/godotenv for .env loading), regeneralized from the proxy's model-
// routing config keys to the gateway's host/port/auth/cors/rateLimit/
// static/timeouts/limits/logging keys.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// AuthMode selects the pluggable authentication strategy (§6.4, wired
// concretely in internal/auth).
type AuthMode string

const (
	AuthNone  AuthMode = "none"
	AuthToken AuthMode = "token"
	AuthAPIKey AuthMode = "apikey"
	AuthMulti AuthMode = "multi"
)

// Config is the gateway's full configuration surface.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Static    StaticConfig    `yaml:"static"`
	Timeouts  TimeoutsConfig  `yaml:"timeouts"`
	Limits    LimitsConfig    `yaml:"limits"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AuthConfig selects and parameterizes the auth strategy.
type AuthConfig struct {
	Mode AuthMode `yaml:"mode"`
}

// CORSConfig controls the CORS middleware (wired to github.com/rs/cors).
type CORSConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Origins     []string `yaml:"origins"`
	Methods     []string `yaml:"methods"`
	Headers     []string `yaml:"headers"`
	Credentials bool     `yaml:"credentials"`
	MaxAge      int      `yaml:"maxAge"`
}

// RateLimitConfig holds the rate-limit settings. No middleware applies
// them; they are only reported through PublicView.
type RateLimitConfig struct {
	Enabled      bool `yaml:"enabled"`
	DefaultLimit int  `yaml:"defaultLimit"`
	WindowMs     int  `yaml:"windowMs"`
}

// StaticConfig holds the static-file settings. No static file serving is
// installed; they are only reported through PublicView.
type StaticConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Root        string `yaml:"root"`
	Index       string `yaml:"index"`
	MaxAge      int    `yaml:"maxAge"`
	Compression bool   `yaml:"compression"`
}

// TimeoutsConfig controls request, websocket, and shutdown timeouts.
type TimeoutsConfig struct {
	RequestMs   int `yaml:"request"`
	WebsocketMs int `yaml:"websocket"`
	ShutdownMs  int `yaml:"shutdown"`
}

func (t TimeoutsConfig) Request() time.Duration  { return time.Duration(t.RequestMs) * time.Millisecond }
func (t TimeoutsConfig) Websocket() time.Duration { return time.Duration(t.WebsocketMs) * time.Millisecond }
func (t TimeoutsConfig) Shutdown() time.Duration  { return time.Duration(t.ShutdownMs) * time.Millisecond }

// LimitsConfig controls admission control and body-size caps.
type LimitsConfig struct {
	MaxBodySize                     int64 `yaml:"maxBodySize"`
	MaxConnections                  int   `yaml:"maxConnections"`
	MaxConnectionsPerIP             int   `yaml:"maxConnectionsPerIp"`
	MaxWsSubscriptionsPerConnection int   `yaml:"maxWsSubscriptionsPerConnection"`
	MaxWsBufferedAmount             int   `yaml:"maxWsBufferedAmount"`
}

// LoggingConfig toggles which request lifecycle events get logged.
type LoggingConfig struct {
	Requests  bool `yaml:"requests"`
	Responses bool `yaml:"responses"`
	Errors    bool `yaml:"errors"`
}

// Default returns a Config populated with the spec's implied defaults: an
// ephemeral port, auth disabled, CORS/rate-limit/static disabled, generous
// timeouts, and conservative connection limits.
func Default() Config {
	return Config{
		Host: "0.0.0.0",
		Port: 0,
		Auth: AuthConfig{Mode: AuthNone},
		CORS: CORSConfig{Enabled: false},
		RateLimit: RateLimitConfig{
			Enabled:      false,
			DefaultLimit: 100,
			WindowMs:     60_000,
		},
		Static: StaticConfig{Enabled: false},
		Timeouts: TimeoutsConfig{
			RequestMs:   30_000,
			WebsocketMs: 60_000,
			ShutdownMs:  10_000,
		},
		Limits: LimitsConfig{
			MaxBodySize:                     1 << 20,
			MaxConnections:                  1000,
			MaxConnectionsPerIP:             50,
			MaxWsSubscriptionsPerConnection: 16,
			MaxWsBufferedAmount:             1 << 20,
		},
		Logging: LoggingConfig{Requests: true, Responses: false, Errors: true},
	}
}

// Load reads .env (if present, ignored if absent), then a YAML config file
// at path (optional — Default() is used if path is empty or missing), then
// applies a small set of environment-variable overrides for the keys most
// commonly tweaked per-deployment (HOST, PORT).
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}
	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	return cfg, nil
}

// PublicView strips nothing secret-bearing exists on Config today, but this
// is the seam §6.1's GET /api/v1/config route renders through — keeping it
// separate from Config means a future secret field doesn't leak by default.
func (c Config) PublicView() map[string]any {
	return map[string]any{
		"host":      c.Host,
		"port":      c.Port,
		"auth":      map[string]any{"mode": c.Auth.Mode},
		"cors":      c.CORS,
		"rateLimit": c.RateLimit,
		"static":    map[string]any{"enabled": c.Static.Enabled, "index": c.Static.Index},
		"timeouts":  c.Timeouts,
		"limits":    c.Limits,
		"logging":   c.Logging,
	}
}
