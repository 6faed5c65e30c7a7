// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, mail delivery, rate limiting, and observability.
//
// The Config value is built once at startup and passed by value or reference
// into the components that need it; nothing below cmd/ reads the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "portfolio-contact")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// MailConfig holds the outbound mail provider settings.
//
// Service selects a well-known provider (gmail, outlook, ...) whose SMTP host
// and port are used unless Host/Port are set explicitly. Missing credentials
// are not a load error: sends fail at dispatch time instead.
type MailConfig struct {
	Service   string        // EMAIL_SERVICE
	Host      string        // SMTP_HOST (overrides Service)
	Port      int           // SMTP_PORT (0 = provider default)
	User      string        // EMAIL_USER
	Pass      string        // EMAIL_PASS
	From      string        // EMAIL_FROM (defaults to User)
	OwnerAddr string        // OWNER_EMAIL (defaults to User)
	OwnerName string        // OWNER_NAME, used in the confirmation signature
	Timeout   time.Duration // MAIL_TIMEOUT per send
}

// RateLimitConfig configures the per-client contact submission window.
type RateLimitConfig struct {
	Window   time.Duration // CONTACT_RATE_WINDOW
	Max      int           // CONTACT_RATE_MAX
	Store    string        // memory|redis
	RedisURL string        // REDIS_URL when Store == "redis"
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 30s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body cap
	GinMode           string        // debug|release|test
	ServiceName       string        // reported by /api/health

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	LogFile        string // optional rotated log file
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Delivery log
	DBPath string // SQLite path

	// Global token bucket (all routes)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Contact submission window
	ContactRate RateLimitConfig

	// Mail
	Mail MailConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// TrustedProxies lists the peer IPs/CIDRs whose X-Forwarded-For and
	// X-Real-IP headers are believed when deriving the client IP. Empty
	// means the TCP peer address is always the client.
	TrustedProxies []string

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, applies defaults and validates the result.
// Every invalid setting is reported, joined into one error.
func Load() (Config, error) {
	cfg := Config{
		Port:              str("PORT", "3000"),
		ReadTimeout:       env("READ_TIMEOUT", 15*time.Second, time.ParseDuration),
		ReadHeaderTimeout: env("READ_HEADER_TIMEOUT", 10*time.Second, time.ParseDuration),
		WriteTimeout:      env("WRITE_TIMEOUT", 30*time.Second, time.ParseDuration),
		IdleTimeout:       env("IDLE_TIMEOUT", 60*time.Second, time.ParseDuration),
		MaxHeaderBytes:    env("MAX_HEADER_BYTES", 1<<20, strconv.Atoi),
		MaxBodyBytes:      env("MAX_BODY_BYTES", int64(10<<20), parseInt64),
		GinMode:           ginMode(str("GIN_MODE", "release")),
		ServiceName:       str("SERVICE_NAME", "Portfolio Contact API"),

		LogLevel:       logLevel(str("LOG_LEVEL", "info")),
		LogPretty:      env("LOG_PRETTY", false, parseBool),
		LogFile:        str("LOG_FILE", ""),
		SwaggerEnabled: env("SWAGGER_ENABLED", false, parseBool),
		APIBasePath:    normalizeBasePath(str("API_BASE_PATH", "/api")),

		DBPath: str("DB_PATH", "contact.db"),

		RateRPS:   env("RATE_RPS", 10.0, parseFloat),
		RateBurst: env("RATE_BURST", 20, strconv.Atoi),

		ContactRate:    loadContactRate(),
		Mail:           loadMail(),
		CORS:           CORSConfig{AllowedOrigins: splitCSV(str("FRONTEND_URL", "http://localhost:5500"))},
		Security:       loadSecurity(),
		TrustedProxies: splitCSV(str("TRUSTED_PROXIES", "")),
		IdempotencyTTL: env("IDEMPOTENCY_TTL", 24*time.Hour, time.ParseDuration),
		OTEL:           loadOTEL(),
	}
	return cfg, cfg.Validate()
}

func loadContactRate() RateLimitConfig {
	return RateLimitConfig{
		Window:   env("CONTACT_RATE_WINDOW", 15*time.Minute, time.ParseDuration),
		Max:      env("CONTACT_RATE_MAX", 5, strconv.Atoi),
		Store:    strings.ToLower(str("RATE_STORE", "memory")),
		RedisURL: str("REDIS_URL", "redis://localhost:6379/0"),
	}
}

// loadMail mirrors the nodemailer-style settings: EMAIL_USER is the SMTP
// login and, unless overridden, both the sender and the owner mailbox.
func loadMail() MailConfig {
	user := str("EMAIL_USER", "")
	return MailConfig{
		Service:   strings.ToLower(str("EMAIL_SERVICE", "gmail")),
		Host:      str("SMTP_HOST", ""),
		Port:      env("SMTP_PORT", 0, strconv.Atoi),
		User:      user,
		Pass:      str("EMAIL_PASS", ""),
		From:      str("EMAIL_FROM", user),
		OwnerAddr: str("OWNER_EMAIL", user),
		OwnerName: str("OWNER_NAME", "Aman Gupta"),
		Timeout:   env("MAIL_TIMEOUT", 10*time.Second, time.ParseDuration),
	}
}

func loadSecurity() SecurityConfig {
	return SecurityConfig{
		EnableHSTS: env("ENABLE_HSTS", false, parseBool),
		HSTSMaxAge: env("HSTS_MAX_AGE", 180*24*time.Hour, time.ParseDuration),
	}
}

func loadOTEL() OTELConfig {
	return OTELConfig{
		Enabled:     env("OTEL_ENABLED", false, parseBool),
		Endpoint:    str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Insecure:    env("OTEL_EXPORTER_OTLP_INSECURE", true, parseBool),
		ServiceName: str("OTEL_SERVICE_NAME", "portfolio-contact"),
		SampleRatio: env("OTEL_TRACES_SAMPLER_ARG", 1.0, parseFloat),
	}
}

// Validate reports every invalid field. Missing mail credentials are not
// an error: the server starts and dispatches fail instead.
func (c Config) Validate() error {
	var errs []error
	check := func(bad bool, format string, a ...any) {
		if bad {
			errs = append(errs, fmt.Errorf(format, a...))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q must be one of: debug, info, warn, error, fatal, panic", c.LogLevel))
	}
	check(strings.TrimSpace(c.Port) == "", "PORT must not be empty")
	check(c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0")
	check(c.MaxBodyBytes <= 0, "MAX_BODY_BYTES must be > 0")
	check(strings.TrimSpace(c.DBPath) == "", "DB_PATH must not be empty")
	check(c.RateRPS < 0, "RATE_RPS must be >= 0")
	check(c.RateBurst < 1, "RATE_BURST must be >= 1")

	cr := c.ContactRate
	check(cr.Window <= 0, "CONTACT_RATE_WINDOW must be > 0")
	check(cr.Max < 1, "CONTACT_RATE_MAX must be >= 1")
	switch cr.Store {
	case "memory":
	case "redis":
		check(strings.TrimSpace(cr.RedisURL) == "", "REDIS_URL must not be empty when RATE_STORE=redis")
	default:
		errs = append(errs, fmt.Errorf("RATE_STORE %q must be one of: memory, redis", cr.Store))
	}

	check(c.Mail.Timeout <= 0, "MAIL_TIMEOUT must be > 0")
	check(c.Mail.Port < 0 || c.Mail.Port > 65535, "SMTP_PORT must be in [0,65535]")
	check(c.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0")
	for _, p := range c.TrustedProxies {
		check(!validProxy(p), "TRUSTED_PROXIES entry %q must be an IP or CIDR", p)
	}
	check(c.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

// env reads k with parse; unset, empty, or unparsable values yield def.
func env[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	out, err := parse(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return out
}

func str(k, def string) string {
	return env(k, def, func(s string) (string, error) { return s, nil })
}

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

var errNotBool = errors.New("not a boolean")

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, errNotBool
}

func logLevel(s string) string {
	s = strings.ToLower(s)
	if s == "warning" {
		return "warn"
	}
	return s
}

func ginMode(s string) string {
	switch s = strings.ToLower(s); s {
	case "debug", "release", "test":
		return s
	}
	return "release"
}

func validProxy(s string) bool {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}

// splitCSV splits a comma list, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
