// Package domain defines the retention policy surface.
package domain

import (
	"errors"
	"time"
)

// ErrUnknownCategory is returned for any category without an explicit
// policy. There is no fallback duration: deletion decisions for unknown
// categories are blocked until an operator configures one.
var ErrUnknownCategory = errors.New("unknown_retention_category")

// Policy is the retention rule for one data category.
type Policy struct {
	Category         string        `json:"category"`
	MaxRetention     time.Duration `json:"-"`
	MaxRetentionDays int           `json:"max_retention_days"`
	LegalHold        bool          `json:"legal_hold"`
}

// Service resolves retention policies from the live compliance
// configuration. Lookups reflect config hot reloads immediately.
type Service interface {
	MaxRetention(category string) (time.Duration, error)
	LegalHold(category string) (bool, error)
	Policy(category string) (Policy, error)
	List() []Policy
}
