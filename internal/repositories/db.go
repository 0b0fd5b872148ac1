// Package repositories provides the data access layer. All repositories
// take an explicit *gorm.DB handle; there is no process-wide database
// singleton.
package repositories

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"rnrspay/internal/config"
	"rnrspay/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DBConfig holds connection and pool settings.
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DBConfigFromEnv reads connection settings from the environment.
func DBConfigFromEnv() DBConfig {
	return DBConfig{
		Host:            config.GetEnv("DB_HOST", "localhost"),
		Port:            config.GetEnv("DB_PORT", "5432"),
		User:            config.GetEnv("DB_USER", "postgres"),
		Password:        config.GetEnv("DB_PASSWORD", "postgres"),
		Name:            config.GetEnv("DB_NAME", "rnrspay"),
		MaxIdleConns:    config.GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    config.GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		ConnMaxLifetime: config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: config.GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
	}
}

// NewDB opens the Postgres connection, applies pool settings and runs
// migrations.
func NewDB(cfg DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
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

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema for all core entities.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Organization{},
		&models.Employee{},
		&models.Loan{},
		&models.Payment{},
		&models.DisbursementAccount{},
	)
}
