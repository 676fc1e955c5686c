package app

import (
	"os"
	"strconv"
	"time"

	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/pkg/httpx"
)

type Config struct {
	Issuer string // Required: public base URL of the hub, also the token issuer

	SSOIssuerURL    string   // Required: OIDC issuer URL of the corporate IdP (ADFS)
	SSOClientID     string   // Required: client id registered at the IdP
	SSOClientSecret string   // Required: client secret registered at the IdP
	SSORedirectURL  string   // Required: the hub's /auth/sso/callback URL as the IdP sees it
	SSOScopes       []string // Optional: scopes requested from the IdP (default: openid profile email)

	DatabaseFile string // Optional: path to SQLite database file (default: ./hub.db)

	SessionCookieName   string        // Optional: session cookie name (default: hub_session)
	SessionTTL          time.Duration // Optional: session lifetime (default: 1h)
	TrustForwardedProto bool          // Optional: treat X-Forwarded-Proto: https as TLS (default: false)

	CodeTTL    time.Duration // Optional: authorization code lifetime (default: 10m)
	AccessTTL  time.Duration // Optional: access token lifetime (default: 1h)
	RefreshTTL time.Duration // Optional: refresh token lifetime (default: 720h)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired record sweep interval (default: 15m)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer: getEnvOrDefault("HUB_ISSUER", "http://localhost:8080"),

		SSOIssuerURL:    os.Getenv("HUB_SSO_ISSUER_URL"),
		SSOClientID:     os.Getenv("HUB_SSO_CLIENT_ID"),
		SSOClientSecret: os.Getenv("HUB_SSO_CLIENT_SECRET"),
		SSORedirectURL:  os.Getenv("HUB_SSO_REDIRECT_URL"),
		SSOScopes:       httpx.ParseSpaceDelimitedFields(os.Getenv("HUB_SSO_SCOPES")),

		DatabaseFile: getEnvOrDefault("HUB_DATABASE_FILE", "hub.db"),

		SessionCookieName:   getEnvOrDefault("HUB_SESSION_COOKIE", "hub_session"),
		SessionTTL:          getEnvDurationOrDefault("HUB_SESSION_TTL", service.DefaultSessionTTL),
		TrustForwardedProto: getEnvBoolOrDefault("HUB_TRUST_FORWARDED_PROTO", false),

		CodeTTL:    getEnvDurationOrDefault("HUB_CODE_TTL", service.DefaultCodeTTL),
		AccessTTL:  getEnvDurationOrDefault("HUB_ACCESS_TOKEN_TTL", service.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("HUB_REFRESH_TOKEN_TTL", service.DefaultRefreshTokenTTL),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", service.DefaultHousekeepingInterval),
	}

	return cfg
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
