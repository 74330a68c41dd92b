// Package domain contains the data subject access request models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Request types a subject may file under the PDPA.
const (
	TypeExport        = "export"
	TypeAccess        = "access"
	TypeDelete        = "delete"
	TypeRectification = "rectification"
)

// Request lifecycle. Deletion requests pause at awaiting_approval: an
// operator must approve before any data is destroyed.
const (
	StatusPendingVerification = "pending_verification"
	StatusAwaitingApproval    = "awaiting_approval"
	StatusProcessing          = "processing"
	StatusCompleted           = "completed"
	StatusFailed              = "failed"
)

// SLA states relative to the 72 hour response window.
const (
	SLAWithin      = "within_sla"
	SLAApproaching = "approaching_deadline"
	SLABreached    = "breached"
)

// ResponseSLA is the window within which a request must be resolved.
const ResponseSLA = 72 * time.Hour

// Request is one DSAR. VerificationToken is mailed to the subject and
// must be echoed back before anything is disclosed or deleted.
type Request struct {
	ID                snowflake.ID   `gorm:"primaryKey"`
	SubjectID         string         `gorm:"type:text;not null;index"`
	SubjectEmail      string         `gorm:"type:text;not null"`
	RequestType       string         `gorm:"type:text;not null"`
	Status            string         `gorm:"type:text;not null;index"`
	VerificationToken string         `gorm:"type:text;not null"`
	VerifiedAt        *time.Time     `gorm:""`
	ApprovedBy        *string        `gorm:"type:text"`
	ApprovedAt        *time.Time     `gorm:""`
	CompletedAt       *time.Time     `gorm:""`
	ExportPayload     datatypes.JSON `gorm:""`
	ExportExpiresAt   *time.Time     `gorm:"index"`
	FailureReason     *string        `gorm:"type:text"`
	CreatedAt         time.Time      `gorm:"not null;index"`
	UpdatedAt         time.Time      `gorm:"not null"`
}

// TableName sets the database table name.
func (Request) TableName() string { return "dsar_requests" }

// SLAStatus classifies the request against the response window. Resolved
// requests are judged by their completion time, open ones by now.
func (r Request) SLAStatus(now time.Time) string {
	reference := now
	if r.CompletedAt != nil {
		reference = *r.CompletedAt
	}
	elapsed := reference.Sub(r.CreatedAt)
	switch {
	case elapsed > ResponseSLA:
		return SLABreached
	case elapsed > ResponseSLA-24*time.Hour:
		return SLAApproaching
	default:
		return SLAWithin
	}
}

func ValidRequestType(requestType string) bool {
	switch requestType {
	case TypeExport, TypeAccess, TypeDelete, TypeRectification:
		return true
	default:
		return false
	}
}
