package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Print modes understood by PRINT_MODE.
const (
	PrintModeSpool   = "spool"
	PrintModeCommand = "command"
	PrintModeQueue   = "queue"
	PrintModeNone    = "none"
)

// Business is the header printed on every invoice.
type Business struct {
	Name         string
	AddressLines []string
	Phone        string
	SupportEmail string
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	StoreAPIURL        string
	StoreAPITimeout    time.Duration
	RedisURL           string
	CORSAllowedOrigins []string
	SessionTTL         time.Duration
	SessionCookieName  string
	CookieDomain       string
	CookieSecure       bool
	CookieSameSite     http.SameSite
	LoginRateLimit     string
	IdempotencyTTL     time.Duration
	BodyLimitBytes     int64

	SearchDebounce    time.Duration
	SearchCacheTTL    time.Duration
	AnalyticsCacheTTL time.Duration

	CircuitMinRequests  int
	CircuitFailureRatio float64
	CircuitOpenFor      time.Duration
	RetryMaxAttempts    int
	RetryBase           time.Duration
	RetryJitter         float64

	PrintMode         string
	PrintSpoolDir     string
	PrintCommand      string
	PrintQueue        string
	WorkerPrintMode   string
	WorkerConcurrency int

	CurrencySymbol  string
	InvoiceTimezone string
	Business        Business

	LogFormat       string
	LogLevel        string
	MetricsEnabled  bool
	MetricsBuckets  string
	TracingEnabled  bool
	TracingExporter string
	TracingEndpoint string
	TracingRatio    float64
	ServiceName     string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8090"),
		StoreAPIURL:        strings.TrimRight(valueOrDefault(k.String("STORE_API_URL"), "http://localhost:8080/api"), "/"),
		StoreAPITimeout:    parseDuration(k.String("STORE_API_TIMEOUT"), "10s"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		SessionTTL:         parseDuration(k.String("SESSION_TTL"), "12h"),
		SessionCookieName:  valueOrDefault(k.String("SESSION_COOKIE_NAME"), "pos_session"),
		CookieDomain:       strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:       parseBool(k.String("COOKIE_SECURE")),
		CookieSameSite:     parseSameSite(k.String("COOKIE_SAMESITE")),
		LoginRateLimit:     valueOrDefault(k.String("LOGIN_RATE_LIMIT"), "10-M"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),

		SearchDebounce:    parseDuration(k.String("SEARCH_DEBOUNCE"), "500ms"),
		SearchCacheTTL:    parseDuration(k.String("SEARCH_CACHE_TTL"), "30s"),
		AnalyticsCacheTTL: parseDuration(k.String("ANALYTICS_CACHE_TTL"), "5m"),

		CircuitMinRequests:  parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 5),
		CircuitFailureRatio: parseFloat(k.String("CIRCUIT_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:      parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),
		RetryMaxAttempts:    parseInt(k.String("RETRY_MAX_ATTEMPTS"), 1),
		RetryBase:           parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryJitter:         parseFloat(k.String("RETRY_JITTER"), 0.2),

		PrintMode:         strings.ToLower(valueOrDefault(k.String("PRINT_MODE"), PrintModeSpool)),
		PrintSpoolDir:     valueOrDefault(k.String("PRINT_SPOOL_DIR"), "./spool"),
		PrintCommand:      valueOrDefault(k.String("PRINT_COMMAND"), "lp"),
		PrintQueue:        valueOrDefault(k.String("PRINT_QUEUE"), "invoices"),
		WorkerPrintMode:   strings.ToLower(valueOrDefault(k.String("WORKER_PRINT_MODE"), PrintModeSpool)),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 2),

		CurrencySymbol:  valueOrDefault(k.String("CURRENCY_SYMBOL"), "₹"),
		InvoiceTimezone: valueOrDefault(k.String("INVOICE_TIMEZONE"), "Asia/Kolkata"),
		Business: Business{
			Name:         valueOrDefault(k.String("BUSINESS_NAME"), "Store"),
			AddressLines: splitLines(k.String("BUSINESS_ADDRESS")),
			Phone:        strings.TrimSpace(k.String("BUSINESS_PHONE")),
			SupportEmail: strings.TrimSpace(k.String("BUSINESS_SUPPORT_EMAIL")),
		},

		LogFormat:       valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:        valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsEnabled:  parseBoolDefault(k.String("OBS_METRICS_ENABLED"), true),
		MetricsBuckets:  k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:  parseBool(k.String("OBS_TRACING_ENABLED")),
		TracingExporter: valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		TracingEndpoint: k.String("OBS_TRACING_ENDPOINT"),
		TracingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLER_RATIO"), 1),
		ServiceName:     valueOrDefault(k.String("OBS_SERVICE_NAME"), "pos-terminal"),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	if cfg.RetryMaxAttempts < 1 {
		cfg.RetryMaxAttempts = 1
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.StoreAPIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("STORE_API_URL must be an absolute URL, got %q", c.StoreAPIURL)
	}
	switch c.PrintMode {
	case PrintModeSpool, PrintModeCommand, PrintModeNone:
	case PrintModeQueue:
		if c.RedisURL == "" {
			return errors.New("PRINT_MODE=queue requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unsupported PRINT_MODE %q", c.PrintMode)
	}
	switch c.WorkerPrintMode {
	case PrintModeSpool, PrintModeCommand, PrintModeNone:
	default:
		return fmt.Errorf("unsupported WORKER_PRINT_MODE %q", c.WorkerPrintMode)
	}
	if _, err := time.LoadLocation(c.InvoiceTimezone); err != nil {
		return fmt.Errorf("INVOICE_TIMEZONE: %w", err)
	}
	return nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Location resolves InvoiceTimezone, defaulting to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.InvoiceTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// splitLines accepts "|" as an address line separator.
func splitLines(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, "|") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return parseBool(value)
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
