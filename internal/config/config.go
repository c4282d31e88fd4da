package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Session backends for OTP challenges.
const (
	SessionBackendDatabase = "database"
	SessionBackendRedis    = "redis"
)

// Config holds runtime settings resolved from the environment.
type Config struct {
	AppPort string

	DatabaseDriver string
	DatabaseDSN    string

	RabbitMQURL      string
	RabbitMQExchange string

	JWTSecret     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	LinkTokenTTL  time.Duration

	SessionBackend string
	SessionCookie  string
	CookieSecure   bool
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	ShowOTPInUIFallback bool
	RegistrationOTPTTL  time.Duration
	LoginOTPTTL         time.Duration
	OTPResendInterval   time.Duration
	ChallengeRetention  time.Duration
	JanitorSchedule     string

	AdminPageSize   int
	CatalogPageSize int
	LogLevel        string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("Could not load .env file: %v", err)
	}

	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "storefront.db")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "storefront")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_ACCESS_TTL", "60m")
	v.SetDefault("JWT_REFRESH_TTL", "24h")
	v.SetDefault("LINK_TOKEN_TTL", "72h")
	v.SetDefault("SESSION_BACKEND", SessionBackendDatabase)
	v.SetDefault("SESSION_COOKIE", "storefront_sid")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SHOW_OTP_IN_UI_FALLBACK", false)
	v.SetDefault("REGISTRATION_OTP_TTL", "600s")
	v.SetDefault("LOGIN_OTP_TTL", "300s")
	v.SetDefault("OTP_RESEND_INTERVAL", "60s")
	v.SetDefault("CHALLENGE_RETENTION", "1h")
	v.SetDefault("JANITOR_SCHEDULE", "@every 10m")
	v.SetDefault("ADMIN_PAGE_SIZE", 25)
	v.SetDefault("CATALOG_PAGE_SIZE", 4)
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:             v.GetString("APP_PORT"),
		DatabaseDriver:      v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:         v.GetString("DATABASE_DSN"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		RabbitMQExchange:    v.GetString("RABBITMQ_EXCHANGE"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		JWTAccessTTL:        v.GetDuration("JWT_ACCESS_TTL"),
		JWTRefreshTTL:       v.GetDuration("JWT_REFRESH_TTL"),
		LinkTokenTTL:        v.GetDuration("LINK_TOKEN_TTL"),
		SessionBackend:      v.GetString("SESSION_BACKEND"),
		SessionCookie:       v.GetString("SESSION_COOKIE"),
		CookieSecure:        v.GetBool("COOKIE_SECURE"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		ShowOTPInUIFallback: v.GetBool("SHOW_OTP_IN_UI_FALLBACK"),
		RegistrationOTPTTL:  v.GetDuration("REGISTRATION_OTP_TTL"),
		LoginOTPTTL:         v.GetDuration("LOGIN_OTP_TTL"),
		OTPResendInterval:   v.GetDuration("OTP_RESEND_INTERVAL"),
		ChallengeRetention:  v.GetDuration("CHALLENGE_RETENTION"),
		JanitorSchedule:     v.GetString("JANITOR_SCHEDULE"),
		AdminPageSize:       v.GetInt("ADMIN_PAGE_SIZE"),
		CatalogPageSize:     v.GetInt("CATALOG_PAGE_SIZE"),
		LogLevel:            v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return errors.New("DATABASE_DRIVER must be sqlite or postgres")
	}
	switch c.SessionBackend {
	case SessionBackendDatabase, SessionBackendRedis:
	default:
		return errors.New("SESSION_BACKEND must be database or redis")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.RegistrationOTPTTL <= 0 || c.LoginOTPTTL <= 0 {
		return errors.New("OTP lifetimes must be positive")
	}
	if c.AdminPageSize <= 0 || c.CatalogPageSize <= 0 {
		return errors.New("page sizes must be positive")
	}
	return nil
}
