package server

import (
	"fmt"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/repositories"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ConfigureLogging sets the logrus level, falling back to info on an unknown name.
func ConfigureLogging(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// OpenDatabase connects to the configured database and migrates the schema.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// ChallengeStore picks the OTP challenge store for cfg.SessionBackend.
// The returned close func releases the redis client, if any.
func ChallengeStore(cfg *config.Config, db *gorm.DB) (repositories.ChallengeRepository, func() error, error) {
	switch cfg.SessionBackend {
	case "", config.SessionBackendDatabase:
		return repositories.NewGORMChallengeRepository(db), func() error { return nil }, nil
	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		log.Printf("Storing OTP challenges in redis at %s", cfg.RedisAddr)
		return repositories.NewRedisChallengeRepository(client, cfg.ChallengeRetention), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session backend %q", cfg.SessionBackend)
	}
}
