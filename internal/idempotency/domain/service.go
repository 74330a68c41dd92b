package domain

import (
	"context"
	"time"
)

// StoredResponse is a previously recorded outcome replayed to a retry.
type StoredResponse struct {
	StatusCode int
	Body       []byte
}

type Service interface {
	// Begin claims the key for the given request. It returns a stored
	// response when the key already completed with the same payload,
	// nil when the caller should run the operation, ErrKeyInProgress
	// when another request holds the key, and ErrKeyPayloadMismatch
	// when the key was used with a different body.
	Begin(ctx context.Context, key, method, path string, body []byte) (*StoredResponse, error)

	// Complete records the response for a key claimed by Begin.
	Complete(ctx context.Context, key string, statusCode int, body []byte) error

	// Fail releases a claimed key after a failed operation so a retry
	// may run it again.
	Fail(ctx context.Context, key string) error

	// DeleteExpired removes records past their expiry and reports how
	// many were dropped.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
