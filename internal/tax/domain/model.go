// Package domain contains the versioned GST rule models.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// IRAS transaction codes attached to tax lines for GST filing. The
// codes are stable once referenced by issued invoices.
const (
	IRASCodeStandardRate  = "SR"
	IRASCodeZeroRate      = "ZR"
	IRASCodeOutOfScope    = "OS"
	IRASCodeTaxableSupply = "TX"
)

// TaxRule binds a transaction category to a GST rate for an effective range.
//
// Rules are append-only: a correction is issued as a new rule with an
// adjusted effective range, never an in-place edit. EffectiveTo is exclusive
// and nil means open-ended. For any category and instant at most one rule
// may be effective.
type TaxRule struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	Category      string       `gorm:"type:text;not null;index"`
	RateBps       int64        `gorm:"column:rate_bps;not null"`
	IRASCode      string       `gorm:"column:iras_code;type:text;not null;default:'SR'"`
	EffectiveFrom time.Time    `gorm:"not null;index"`
	EffectiveTo   *time.Time   `gorm:""`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TaxRule) TableName() string { return "tax_rules" }

func (r *TaxRule) Validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return ErrInvalidCategory
	}
	if r.RateBps < 0 {
		return ErrInvalidRate
	}
	if r.EffectiveFrom.IsZero() {
		return ErrInvalidEffectiveRange
	}
	if r.EffectiveTo != nil && !r.EffectiveTo.After(r.EffectiveFrom) {
		return ErrInvalidEffectiveRange
	}
	switch r.IRASCode {
	case IRASCodeStandardRate, IRASCodeZeroRate, IRASCodeOutOfScope, IRASCodeTaxableSupply:
		return nil
	default:
		return ErrInvalidIRASCode
	}
}

// Covers reports whether the rule is effective at the given instant.
// The effective range is half-open: [EffectiveFrom, EffectiveTo).
func (r TaxRule) Covers(at time.Time) bool {
	if at.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !at.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

// Overlaps reports whether two effective ranges intersect.
func (r TaxRule) Overlaps(other TaxRule) bool {
	if r.EffectiveTo != nil && !other.EffectiveFrom.Before(*r.EffectiveTo) {
		return false
	}
	if other.EffectiveTo != nil && !r.EffectiveFrom.Before(*other.EffectiveTo) {
		return false
	}
	return true
}

// RateSnapshot is the resolved rate captured on an invoice tax line.
type RateSnapshot struct {
	RuleID   snowflake.ID `json:"rule_id"`
	Category string       `json:"category"`
	RateBps  int64        `json:"rate_bps"`
	IRASCode string       `json:"iras_code"`
}
