// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"fmt"
	"time"

	"momopay/internal/config"
	"momopay/internal/logger"
	"momopay/internal/models"
	"momopay/internal/repositories/cache"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the global database instance used across the application.
var DB *gorm.DB

// RedisClient backs Store and is shared with the job queue.
var RedisClient *redis.Client

// Store is the shared TTL store (tokens, correlations, voucher slots, replay markers).
var Store *cache.RedisStore

// Models lists every persisted model, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.Wallet{},
		&models.LedgerEntry{},
		&models.Transaction{},
		&models.Withdrawal{},
		&models.PlatformRevenue{},
		&models.WebhookLog{},
	}
}

// InitDB opens PostgreSQL and Redis and migrates the schema.
func InitDB(cfg *config.Config) error {
	db, err := openPostgres(cfg.Database)
	if err != nil {
		return err
	}
	DB = db

	RedisClient = cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	Store = cache.NewRedisStore(RedisClient)

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	logger.Info("PostgreSQL connected & migrations applied")
	return nil
}

// Migrate runs AutoMigrate for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func openPostgres(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(
			gormLogWriter{},
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// gormLogWriter routes gorm's logger through logrus.
type gormLogWriter struct{}

func (gormLogWriter) Printf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// Close releases the database and Redis connections.
func Close() {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Warnf("failed to close database connection: %v", err)
			}
		}
	}
	if Store != nil {
		if err := Store.Close(); err != nil {
			logger.Warnf("failed to close Redis connection: %v", err)
		}
	}
}
