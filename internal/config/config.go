package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort int
	DataDir    string // Base path for per-user budget databases
	AuthDBPath string // Shared credential database

	JWTSecret  string
	TokenTTL   time.Duration
	SessionTTL time.Duration

	LockoutThreshold int
	LockoutDuration  time.Duration

	RecaptchaSecret    string
	RecaptchaSiteKey   string
	RecaptchaVerifyURL string
	CaptchaTimeout     time.Duration

	CleanupSchedule string // cron expression for the background janitor
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, err
	}

	threshold, err := strconv.Atoi(getEnv("LOCKOUT_THRESHOLD", "5"))
	if err != nil {
		return nil, err
	}

	lockout, err := time.ParseDuration(getEnv("LOCKOUT_DURATION", "15m"))
	if err != nil {
		return nil, err
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, err
	}

	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "168h"))
	if err != nil {
		return nil, err
	}

	captchaTimeout, err := time.ParseDuration(getEnv("CAPTCHA_TIMEOUT", "5s"))
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:         port,
		DataDir:            getEnv("DATA_DIR", "./data"),
		AuthDBPath:         getEnv("AUTH_DB_PATH", "./data/users.db"),
		JWTSecret:          getEnv("JWT_SECRET", "octopus-shared-secret-change-in-production"),
		TokenTTL:           tokenTTL,
		SessionTTL:         sessionTTL,
		LockoutThreshold:   threshold,
		LockoutDuration:    lockout,
		RecaptchaSecret:    getEnv("RECAPTCHA_SECRET_KEY", ""),
		RecaptchaSiteKey:   getEnv("RECAPTCHA_SITE_KEY", ""),
		RecaptchaVerifyURL: getEnv("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		CaptchaTimeout:     captchaTimeout,
		CleanupSchedule:    getEnv("CLEANUP_SCHEDULE", "*/5 * * * *"),
	}, nil
}

// IsProduction reports whether the app is running with production settings.
func IsProduction() bool {
	return os.Getenv("APP_ENV") == "production"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
