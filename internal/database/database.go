package database

import (
	"context"
	"fmt"
	"time"

	"gupayment/internal/config"
	"gupayment/internal/models"
	"gupayment/pkg/logging"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	DB          *gorm.DB
	RedisClient *redis.Client
)

// InitDatabase initializes database connection
func InitDatabase(cfg *config.Config) error {
	var err error
	DB, err = Open(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logging.Infof("Database connected successfully")

	// Redis only backs the webhook delivery lock, so it is optional
	if cfg.RedisURL != "" {
		if err := initRedis(cfg.RedisURL); err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
	} else {
		logging.Infof("REDIS_URL not set, webhook delivery lock disabled")
	}

	// Auto migrate tables
	if err := AutoMigrate(DB, cfg.Iugu.SignatureTable, cfg.Iugu.ModelForeignKey); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Open connects to PostgreSQL when dsn is set and falls back to a local
// SQLite file otherwise. A dsn starting with "file:" or equal to ":memory:"
// is handed to SQLite as is.
func Open(dsn string, level logger.LogLevel) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch {
	case dsn == "":
		logging.Infof("Database URL not set, using SQLite for development")
		db, err = gorm.Open(sqlite.Open("gupayment.db"), gormConfig)
	case dsn == ":memory:" || len(dsn) > 5 && dsn[:5] == "file:":
		db, err = gorm.Open(sqlite.Open(dsn), gormConfig)
	default:
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// AutoMigrate creates the users table and the configurable subscriptions table.
func AutoMigrate(db *gorm.DB, table, ownerKey string) error {
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return err
	}
	return NewSubscriptionStore(db, table, ownerKey).Migrate()
}

// initRedis initializes Redis connection
func initRedis(redisURL string) error {
	logging.Infof("Connecting to Redis: %s", maskRedisURL(redisURL))

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Infof("Redis connected successfully")
	return nil
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-10:]
	}
	return "***"
}

// GetDB returns database instance
func GetDB() *gorm.DB {
	return DB
}

// GetRedis returns Redis client, nil when Redis is not configured
func GetRedis() *redis.Client {
	return RedisClient
}

// CloseDatabase closes database connections
func CloseDatabase() error {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logging.Errorf("Failed to close database: %v", err)
			}
		}
	}

	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logging.Errorf("Failed to close Redis: %v", err)
		}
	}

	return nil
}
