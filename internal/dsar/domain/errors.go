package domain

import "errors"

var (
	ErrRequestNotFound     = errors.New("dsar_request_not_found")
	ErrInvalidRequestType  = errors.New("invalid_dsar_request_type")
	ErrInvalidSubject      = errors.New("invalid_dsar_subject")
	ErrInvalidToken        = errors.New("invalid_verification_token")
	ErrNotVerifiable       = errors.New("dsar_request_not_verifiable")
	ErrNotAwaitingApproval = errors.New("dsar_request_not_awaiting_approval")
)
