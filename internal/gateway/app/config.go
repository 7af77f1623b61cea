package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	SessionSecret string        // Required: signing secret for wrapper tokens
	CookieName    string        // Optional: session cookie name (default: certifai_session)
	CookieDomain  string        // Optional: production root domain for cookie clearing (e.g. .certifai.app)
	WrapperTTL    time.Duration // Optional: wrapper token lifetime (default: 1h)

	ProviderJWKSURL  string        // Required: identity provider JWKS endpoint
	ProviderIssuer   string        // Optional: expected iss claim
	ProviderAudience string        // Optional: expected aud claim
	JWKSRefresh      time.Duration // Optional: JWKS refetch interval (default: 15m)
	CacheTTL         time.Duration // Optional: verification cache TTL (default: 5m)

	BackendBaseURL      string        // Required: downstream API base URL
	BackendTimeout      time.Duration // Optional: per-request backend timeout (default: 10s)
	BackendServiceToken string        // Optional: bearer credential for reconciler calls

	MarketingBaseURL string // Optional: marketing list provider URL
	MarketingAPIKey  string // Optional: marketing list API key
	MarketingListID  string // Optional: marketing list identifier

	DatabaseFile string // Optional: path to SQLite database file (default: ./gateway.db)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
	ReconcileInterval   time.Duration // Fallback reconciler interval (default: 15m)
}

// ErrMissingConfig covers the required settings the service refuses to start
// without. A missing signing secret in particular must fail loudly here, not
// at the first token mint.
var ErrMissingConfig = errors.New("app: missing required configuration")

func LoadConfig() Config {
	return Config{
		SessionSecret: os.Getenv("SESSION_SECRET"),
		CookieName:    getEnvOrDefault("SESSION_COOKIE_NAME", "certifai_session"),
		CookieDomain:  os.Getenv("SESSION_COOKIE_DOMAIN"),
		WrapperTTL:    getEnvDurationOrDefault("SESSION_WRAPPER_TTL", time.Hour),

		ProviderJWKSURL:  os.Getenv("PROVIDER_JWKS_URL"),
		ProviderIssuer:   os.Getenv("PROVIDER_ISSUER"),
		ProviderAudience: os.Getenv("PROVIDER_AUDIENCE"),
		JWKSRefresh:      getEnvDurationOrDefault("PROVIDER_JWKS_REFRESH", 15*time.Minute),
		CacheTTL:         getEnvDurationOrDefault("VERIFY_CACHE_TTL", 5*time.Minute),

		BackendBaseURL:      os.Getenv("BACKEND_BASE_URL"),
		BackendTimeout:      getEnvDurationOrDefault("BACKEND_TIMEOUT", 10*time.Second),
		BackendServiceToken: os.Getenv("BACKEND_SERVICE_TOKEN"),

		MarketingBaseURL: os.Getenv("MARKETING_BASE_URL"),
		MarketingAPIKey:  os.Getenv("MARKETING_API_KEY"),
		MarketingListID:  os.Getenv("MARKETING_LIST_ID"),

		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "gateway.db"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		ReconcileInterval:   getEnvDurationOrDefault("RECONCILE_INTERVAL", 15*time.Minute),
	}
}

// Validate reports the first missing required setting.
func (c Config) Validate() error {
	switch {
	case c.SessionSecret == "":
		return errors.Join(ErrMissingConfig, errors.New("SESSION_SECRET is required"))
	case c.ProviderJWKSURL == "":
		return errors.Join(ErrMissingConfig, errors.New("PROVIDER_JWKS_URL is required"))
	case c.BackendBaseURL == "":
		return errors.Join(ErrMissingConfig, errors.New("BACKEND_BASE_URL is required"))
	}
	return nil
}

// Production reports whether cookies should carry the Secure flag.
func (c Config) Production() bool {
	return c.Env == "prod" || c.Env == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Duration syntax first (e.g. "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
