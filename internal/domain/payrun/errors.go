package payrun

import "errors"

var (
	ErrPayrunNotFound = errors.New("payrun not found")
	ErrNotDraft       = errors.New("payrun must be in draft to recalculate")
	ErrNoPayItems     = errors.New("payrun has no computed pay items")
	ErrNoApprovers    = errors.New("pay group has no configured approver levels")
	ErrInvalidPeriod  = errors.New("period end must not precede period start")
)
