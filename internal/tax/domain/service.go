package domain

import (
	"context"
	"time"
)

// Resolver resolves the effective rate for a category at an instant.
//
// A gap in rule coverage is ErrNoApplicableRule: the caller must abort,
// never assume a default rate.
type Resolver interface {
	RateFor(category string, at time.Time) (RateSnapshot, error)
}

type Service interface {
	Resolver

	Insert(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
}

type CreateRequest struct {
	Category      string     `json:"category"`
	RateBps       int64      `json:"rate_bps"`
	IRASCode      string     `json:"iras_code"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

type ListRequest struct {
	Category string
	At       *time.Time
}

type Response struct {
	ID            string     `json:"id"`
	Category      string     `json:"category"`
	RateBps       int64      `json:"rate_bps"`
	IRASCode      string     `json:"iras_code"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
