package domain

import "errors"

var (
	ErrNoApplicableRule      = errors.New("no_applicable_rule")
	ErrRuleConflict          = errors.New("rule_conflict")
	ErrInvalidCategory       = errors.New("invalid_category")
	ErrInvalidRate           = errors.New("invalid_rate")
	ErrInvalidEffectiveRange = errors.New("invalid_effective_range")
	ErrInvalidIRASCode       = errors.New("invalid_iras_code")
)
