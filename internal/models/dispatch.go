package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dispatch outcomes
const (
	DispatchOutcomeSent             = "sent"
	DispatchOutcomeConfigError      = "config_error"
	DispatchOutcomeConnectionFailed = "connection_failed"
	DispatchOutcomeDispatchFailed   = "dispatch_failed"
	// The relay was cut off mid-delivery and may or may not have accepted the message.
	DispatchOutcomeIndeterminate = "indeterminate"
)

// DispatchRecord is the audit trail of one relay attempt. It deliberately
// holds no submitter content: the contact submission itself is never stored.
type DispatchRecord struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CorrelationID  string    `gorm:"type:varchar(64);not null;default:''" json:"correlation_id"`
	IdempotencyKey string    `gorm:"type:varchar(128);not null;default:''" json:"idempotency_key"`
	Provider       string    `gorm:"type:varchar(32);not null" json:"provider"`
	Outcome        string    `gorm:"type:varchar(32);not null;index" json:"outcome"`
	MessageID      string    `gorm:"type:varchar(255);not null;default:''" json:"message_id"`
	RelayResponse  string    `gorm:"type:text;not null;default:''" json:"relay_response"`
	ErrorDetail    string    `gorm:"type:text;not null;default:''" json:"error_detail"`
	LatencyMs      int64     `gorm:"not null;default:0" json:"latency_ms"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

func (DispatchRecord) TableName() string {
	return "dispatch_records"
}

func (d *DispatchRecord) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}
