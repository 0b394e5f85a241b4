package db

import (
	"fmt"
	"log"

	"docsync/internal/config"
	"docsync/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormDB wraps the GORM database instance
type GormDB struct {
	*gorm.DB
}

// NewGorm opens the Postgres connection and migrates the snapshot schema.
// Only document snapshots and users are persisted; operations and presence
// are ephemeral and never touch the database.
func NewGorm(cfg *config.Config) (*GormDB, error) {
	dsn := cfg.DatabaseURL()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Document{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("✓ Database connected and migrated successfully")

	return &GormDB{db}, nil
}

// Close closes the database connection
func (db *GormDB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
