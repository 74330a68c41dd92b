// Package domain contains the consent ledger and personal data models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Consent actions accepted by the ledger.
const (
	ActionGrant    = "grant"
	ActionWithdraw = "withdraw"
)

// Derived consent states. A subject's state is the fold of its events in
// timestamp order; nothing is ever stored as state.
const (
	StateUnconsented = "unconsented"
	StateConsented   = "consented"
	StateWithdrawn   = "withdrawn"
)

// ConsentEvent is one entry in the append-only ledger. Events are never
// updated or deleted; a correction is a new event.
type ConsentEvent struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	SubjectID  string       `gorm:"type:text;not null;index"`
	Action     string       `gorm:"type:text;not null"`
	OccurredAt time.Time    `gorm:"not null;index"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ConsentEvent) TableName() string { return "consent_events" }

// PersonalDataRecord tracks one collected piece of personal data. Purging
// clears PurgedAt and replaces SubjectEmail with an irreversible hash so
// aggregate counts survive while the subject cannot be re-identified.
type PersonalDataRecord struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	SubjectID    string       `gorm:"type:text;not null;index"`
	Category     string       `gorm:"type:text;not null;index"`
	SubjectEmail string       `gorm:"type:text"`
	Description  string       `gorm:"type:text"`
	CollectedAt  time.Time    `gorm:"not null;index"`
	PurgedAt     *time.Time   `gorm:"index"`
	AnonymizedAt *time.Time   `gorm:""`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PersonalDataRecord) TableName() string { return "personal_data_records" }

// FoldState derives a subject's consent state from its events. The slice
// must be ordered by occurrence; the ledger guarantees per-subject
// timestamps are non-decreasing at append time.
func FoldState(events []ConsentEvent) string {
	state := StateUnconsented
	for _, event := range events {
		switch event.Action {
		case ActionGrant:
			state = StateConsented
		case ActionWithdraw:
			state = StateWithdrawn
		}
	}
	return state
}

// LatestWithdrawal returns the occurrence time of the most recent
// withdrawal, or nil if the subject never withdrew. Re-consent does not
// erase it: records collected up to that instant stay scheduled for purge.
func LatestWithdrawal(events []ConsentEvent) *time.Time {
	var latest *time.Time
	for _, event := range events {
		if event.Action != ActionWithdraw {
			continue
		}
		occurredAt := event.OccurredAt
		if latest == nil || occurredAt.After(*latest) {
			latest = &occurredAt
		}
	}
	return latest
}
