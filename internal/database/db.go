package database

import (
	"log"
	"strings"

	"stockino/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens the PostgreSQL pool through GORM and migrates the schema.
func NewConnection(dsn, logLevel string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(ParseLogLevel(logLevel)),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Organization{},
		&model.Profile{},
		&model.Product{},
		&model.Sale{},
		&model.SaleItem{},
		&model.Receipt{},
		&model.ReceiptItem{},
		&model.StockMovement{},
		&model.DocumentSequence{},
		&model.AuditLog{},
	)
}

// ParseLogLevel maps DB_LOG_LEVEL to a gorm log level; unknown values fall back to warn.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
