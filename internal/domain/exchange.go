package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExchangeOutcome is the terminal result of one send
type ExchangeOutcome string

const (
	// ExchangeOutcomeCompleted const
	ExchangeOutcomeCompleted ExchangeOutcome = "completed"
	// ExchangeOutcomeFailed const
	ExchangeOutcomeFailed ExchangeOutcome = "failed"
)

// ExchangeRecord is the operational ledger row for one send.
// It never carries message text.
type ExchangeRecord struct {
	ID            *uuid.UUID      `gorm:"type:uuid;primary_key;"`
	StartedAt     time.Time       `gorm:"type:timestamp;not null;"`
	FinishedAt    time.Time       `gorm:"type:timestamp;not null;"`
	DurationMs    int64           `gorm:"not null;"`
	Outcome       ExchangeOutcome `gorm:"type:varchar(16);not null;"`
	FailureClass  FailureClass    `gorm:"type:varchar(32);"`
	DeltaCount    int             `gorm:"not null;"`
	ResponseChars int             `gorm:"not null;"`
	Provider      string          `gorm:"type:varchar(32);"`
	Model         string          `gorm:"type:varchar(100);"`
	CreatedAt     *time.Time      `gorm:"type:timestamp"`
}

// TableName func
func (r *ExchangeRecord) TableName() string {
	return "exchanges"
}

// BeforeCreate hook - generates UUID before creating
func (r *ExchangeRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID != nil {
		return nil
	}
	id, err := uuid.NewRandom() // v4
	if err != nil {
		return err
	}
	r.ID = &id
	return nil
}

// MigrateDatabase func - Auto-migrate database schema
func MigrateDatabase(db *gorm.DB) error {
	if db == nil {
		return ErrDatabaseUnavailable
	}
	return db.AutoMigrate(&ExchangeRecord{})
}
