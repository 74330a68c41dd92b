// Package domain contains the idempotency record models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Record lifecycle. A processing record blocks concurrent retries; a
// completed record replays its stored response; a failed record lets
// the next retry run the operation again.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Record pins the outcome of a mutating request to a client-supplied
// key. RequestHash is the SHA-256 of the request body, so a key reused
// with a different payload is rejected rather than replayed.
type Record struct {
	ID            snowflake.ID   `gorm:"primaryKey"`
	Key           string         `gorm:"type:text;not null;uniqueIndex"`
	RequestMethod string         `gorm:"type:text;not null"`
	RequestPath   string         `gorm:"type:text;not null"`
	RequestHash   string         `gorm:"type:text;not null"`
	Status        string         `gorm:"type:text;not null"`
	ResponseCode  int            `gorm:"column:response_status_code"`
	ResponseBody  datatypes.JSON `gorm:""`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
	ExpiresAt     time.Time      `gorm:"not null;index"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "idempotency_records" }

// Expired reports whether the record no longer binds its key.
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
