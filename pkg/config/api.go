package config

import (
	"errors"
	"time"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment       string
	Addr              string
	BaseURL           string
	DatabaseURL       string
	MigrationsDir     string
	SessionSecret     string
	SessionTTL        time.Duration
	ProviderTTL       time.Duration
	ChallengeTTL      time.Duration
	ChallengeAttempts int
	ResendWindow      time.Duration
	CookieName        string
	CookieSecure      bool
	TOTPIssuer        string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthUserInfoURL  string
	SeedUsersFile     string
	RateRedisAddr     string
	RateRedisPass     string
	RateRedisDB       int
}

// ErrMissingSessionSecret indicates the signing secret was not configured.
// The token layer never falls back to a default secret.
var ErrMissingSessionSecret = errors.New("config: SESSION_SECRET is required")

// LoadAPIConfig constructs an APIConfig from environment variables. It fails
// when the session signing secret is absent rather than defaulting it.
func LoadAPIConfig() (APIConfig, error) {
	cfg := APIConfig{
		Environment:       GetString("APP_ENV", "development"),
		Addr:              GetString("API_ADDR", ":4000"),
		BaseURL:           GetString("BASE_URL", "http://localhost:4000"),
		DatabaseURL:       GetString("DATABASE_URL", "postgres://tracking:tracking@db:5432/tracking?sslmode=disable"),
		MigrationsDir:     GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		SessionSecret:     GetString("SESSION_SECRET", ""),
		SessionTTL:        GetDuration("SESSION_TTL", 24*time.Hour),
		ProviderTTL:       GetDuration("PROVIDER_SESSION_TTL", 30*24*time.Hour),
		ChallengeTTL:      GetDuration("TWO_FACTOR_CHALLENGE_TTL", 5*time.Minute),
		ChallengeAttempts: GetInt("TWO_FACTOR_MAX_ATTEMPTS", 5),
		ResendWindow:      GetDuration("TWO_FACTOR_RESEND_WINDOW", 30*time.Second),
		CookieName:        GetString("SESSION_COOKIE_NAME", "ts_session"),
		CookieSecure:      GetBool("SESSION_COOKIE_SECURE", false),
		TOTPIssuer:        GetString("TOTP_ISSUER", "Tracking System"),
		OAuthClientID:     GetString("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: GetString("OAUTH_CLIENT_SECRET", ""),
		OAuthAuthURL:      GetString("OAUTH_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
		OAuthTokenURL:     GetString("OAUTH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		OAuthUserInfoURL:  GetString("OAUTH_USERINFO_URL", "https://openidconnect.googleapis.com/v1/userinfo"),
		SeedUsersFile:     GetString("SEED_USERS_FILE", ""),
		RateRedisAddr:     GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateRedisPass:     GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateRedisDB:       GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
	if cfg.SessionSecret == "" {
		return APIConfig{}, ErrMissingSessionSecret
	}
	return cfg, nil
}
