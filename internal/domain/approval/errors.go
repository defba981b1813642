package approval

import "errors"

var (
	ErrInvalidChainConfig   = errors.New("approval levels must be contiguous from 1 with distinct approvers per level")
	ErrStepNotFound         = errors.New("approval step not found")
	ErrNotCurrentStep       = errors.New("step is not the current approval step")
	ErrAlreadyActioned      = errors.New("step has already been actioned")
	ErrChainHalted          = errors.New("approval chain halted by a rejection")
	ErrNotAssignedApprover  = errors.New("acting user is not the step's assigned approver")
	ErrCommentsRequired     = errors.New("rejection requires comments")
	ErrChainAlreadyExists   = errors.New("payrun already has an active approval chain")
)
