// Package database defines the history store models and the Postgres
// connection. The store is an audit log of completed syncs, never a queue
// of pending ones.
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/glucopilot/glucopilot-agent/internal/config"
	"github.com/glucopilot/glucopilot-agent/internal/database/migrations"
	"github.com/glucopilot/glucopilot-agent/internal/logger"
)

// SyncRecord is one completed snapshot push.
type SyncRecord struct {
	gorm.Model
	SyncID       string `gorm:"uniqueIndex"`
	RunID        string `gorm:"index"`
	RecordCount  int
	StepCount    int
	WorkoutCount int
	SleepHours   float64
	StartDate    time.Time
	EndDate      time.Time
	SyncedAt     time.Time
}

// GlucoseRecord is one CGM reading captured alongside a sync.
type GlucoseRecord struct {
	gorm.Model
	SyncID    string `gorm:"index"`
	Value     int
	Trend     string
	Timestamp time.Time
	Unit      string
}

// InsightRecord is one normalized recommendation as shown to the user.
// ActionItems are stored newline-joined.
type InsightRecord struct {
	gorm.Model
	SyncID      string `gorm:"index"`
	Title       string
	Description string
	Category    string
	Priority    string
	ActionItems string
	Timestamp   time.Time
}

func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate the schema first so registered migrations can assume the
	// tables exist.
	if err := db.AutoMigrate(&SyncRecord{}, &GlucoseRecord{}, &InsightRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("database connection established and migrations completed")
	return db, nil
}
