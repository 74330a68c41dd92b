package domain

import "errors"

var (
	ErrKeyInProgress      = errors.New("idempotency_key_in_progress")
	ErrKeyPayloadMismatch = errors.New("idempotency_key_payload_mismatch")
)
