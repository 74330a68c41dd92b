package domain

import (
	"context"
	"time"
)

type Service interface {
	// Create files a new request and returns the verification token that
	// is delivered to the subject out of band.
	Create(ctx context.Context, req CreateRequest) (*Response, error)

	// Verify matches the token against the request. Export and access
	// requests complete immediately with a payload; deletion requests move
	// to awaiting_approval; rectification moves to processing.
	Verify(ctx context.Context, id string, token string) (*Response, error)

	// ApproveDeletion executes a verified deletion request: the subject's
	// consent is withdrawn and every purgeable record is destroyed.
	ApproveDeletion(ctx context.Context, id string, approver string) (*Response, error)

	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)

	// ExpireExports drops export payloads past their TTL and reports how
	// many were cleared.
	ExpireExports(ctx context.Context, now time.Time) (int, error)
}

type CreateRequest struct {
	SubjectID    string `json:"subject_id"`
	SubjectEmail string `json:"subject_email"`
	RequestType  string `json:"request_type"`
}

type ListRequest struct {
	SubjectID string
	Status    string
	Limit     int
}

type Response struct {
	ID                string     `json:"id"`
	SubjectID         string     `json:"subject_id"`
	RequestType       string     `json:"request_type"`
	Status            string     `json:"status"`
	SLAStatus         string     `json:"sla_status"`
	VerificationToken string     `json:"verification_token,omitempty"`
	ExportPayload     any        `json:"export_payload,omitempty"`
	ExportExpiresAt   *time.Time `json:"export_expires_at,omitempty"`
	ApprovedBy        *string    `json:"approved_by,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
