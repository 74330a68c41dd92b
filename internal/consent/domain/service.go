package domain

import (
	"context"
	"time"
)

type Service interface {
	// RecordEvent appends one grant or withdrawal to the ledger. It fails
	// with ErrOutOfOrderEvent if the timestamp precedes the subject's
	// latest recorded event.
	RecordEvent(ctx context.Context, req RecordEventRequest) (*EventResponse, error)

	// RecordCollection registers a newly collected personal data record.
	RecordCollection(ctx context.Context, req CollectionRequest) (*RecordResponse, error)

	// SubjectState folds the subject's events into its current state.
	SubjectState(ctx context.Context, subjectID string) (*SubjectStateResponse, error)

	// DueForPurge derives the purge queue at the given instant. It is a
	// read-only view: nothing is deleted or marked. An active record in an
	// unknown category is a hard error, blocking the whole computation.
	DueForPurge(ctx context.Context, now time.Time) (*PurgeQueue, error)

	// PurgeDue marks every due record purged and anonymizes its subject
	// payload. Returns what was touched; records under legal hold and
	// unknown categories abort before any write.
	PurgeDue(ctx context.Context, now time.Time) (*PurgeResult, error)
}

type RecordEventRequest struct {
	SubjectID string     `json:"subject_id"`
	Action    string     `json:"action"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type EventResponse struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subject_id"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
	State      string    `json:"state"`
}

type CollectionRequest struct {
	SubjectID    string     `json:"subject_id"`
	Category     string     `json:"category"`
	SubjectEmail string     `json:"subject_email,omitempty"`
	Description  string     `json:"description,omitempty"`
	CollectedAt  *time.Time `json:"collected_at,omitempty"`
}

type RecordResponse struct {
	ID           string     `json:"id"`
	SubjectID    string     `json:"subject_id"`
	Category     string     `json:"category"`
	Description  string     `json:"description,omitempty"`
	CollectedAt  time.Time  `json:"collected_at"`
	PurgedAt     *time.Time `json:"purged_at,omitempty"`
	AnonymizedAt *time.Time `json:"anonymized_at,omitempty"`
}

type SubjectStateResponse struct {
	SubjectID string           `json:"subject_id"`
	State     string           `json:"state"`
	Events    []EventResponse  `json:"events"`
	Records   []RecordResponse `json:"records"`
}

// PurgeQueue groups due records by subject. SubjectIDs is the distinct,
// sorted set consumed by the external deletion job.
type PurgeQueue struct {
	SubjectIDs []string         `json:"subject_ids"`
	Records    []PurgeCandidate `json:"records"`
}

type PurgeCandidate struct {
	RecordID    string    `json:"record_id"`
	SubjectID   string    `json:"subject_id"`
	Category    string    `json:"category"`
	CollectedAt time.Time `json:"collected_at"`
	Reason      string    `json:"reason"`
}

// Purge reasons.
const (
	ReasonWithdrawn         = "consent_withdrawn"
	ReasonRetentionExceeded = "retention_exceeded"
)

type PurgeResult struct {
	Purged     int `json:"purged"`
	Anonymized int `json:"anonymized"`
}
