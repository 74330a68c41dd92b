package domain

import "errors"

var (
	ErrOutOfOrderEvent = errors.New("out_of_order_event")
	ErrInvalidAction   = errors.New("invalid_consent_action")
	ErrInvalidSubject  = errors.New("invalid_subject")
	ErrRecordNotFound  = errors.New("personal_data_record_not_found")
)
