package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string
	Env  string

	DatabaseURL       string
	PublicDatabaseURL string

	JWTSecret           string
	TokenTTL            time.Duration
	OTPTTL              time.Duration
	RequireEmailConfirm bool
	SiteURL             string

	UploadDir  string
	SessionDir string

	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration
	SessionLimit  int

	GoogleClientID     string
	GoogleClientSecret string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string

	DemoMode    bool
	CORSOrigins string
}

// Load reads configuration from environment variables. Call godotenv.Load
// beforehand if a .env file should be honoured.
func Load() Config {
	databaseURL := os.Getenv("DATABASE_URL")

	return Config{
		Addr: getEnv("APP_ADDR", ":8080"),
		Env:  getEnv("APP_ENV", "development"),

		DatabaseURL:       databaseURL,
		PublicDatabaseURL: getEnv("PUBLIC_DATABASE_URL", databaseURL),

		JWTSecret:           os.Getenv("JWT_SECRET"),
		TokenTTL:            getDuration("TOKEN_TTL", 72*time.Hour),
		OTPTTL:              getDuration("OTP_TTL", 24*time.Hour),
		RequireEmailConfirm: getBool("REQUIRE_EMAIL_CONFIRM", true),
		SiteURL:             strings.TrimRight(getEnv("SITE_URL", "http://localhost:8080"), "/"),

		UploadDir:  getEnv("UPLOAD_DIR", "./uploads"),
		SessionDir: getEnv("SESSION_DIR", "./data/sessions"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		SessionTTL:    getDuration("SESSION_TTL", 0),
		SessionLimit:  getInt("SESSION_LIMIT", 10000),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnv("SMTP_PORT", "465"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),

		DemoMode:    getBool("DEMO_MODE", false),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

// IsProduction reports whether the service runs with production defaults.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}
