package config

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/talent-intake/internal/models"
)

// connPool is the part of *sql.DB the pool settings touch.
type connPool interface {
	SetMaxOpenConns(n int)
	SetMaxIdleConns(n int)
	SetConnMaxLifetime(d time.Duration)
}

// InitDatabase connects to Postgres and migrates the intake tables.
func InitDatabase(cfg *Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	applyPoolSettings(sqlDB, cfg.Database)

	log.Printf("✅ Database connected (%s@%s:%s/%s)\n",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	if err := db.AutoMigrate(
		&models.Candidate{},
		&models.Job{},
		&models.Application{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("✅ Candidate, job and application tables migrated")

	return db, nil
}

// applyPoolSettings leaves the driver default in place for non-positive
// values. Idle connections never exceed the open limit.
func applyPoolSettings(pool connPool, cfg DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	idle := cfg.MaxIdleConns
	if cfg.MaxOpenConns > 0 && idle > cfg.MaxOpenConns {
		idle = cfg.MaxOpenConns
	}
	if idle > 0 {
		pool.SetMaxIdleConns(idle)
	}

	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}
