package approval

import "context"

// StoreAPI is the repository contract the workflow service depends on. The
// state machine itself performs no I/O; all persistence races are resolved
// here with compare-and-swap updates keyed on the pending status.
type StoreAPI interface {
	StepPayrunID(ctx context.Context, tenantID, stepID string) (string, error)
	LoadSteps(ctx context.Context, tenantID, payrunID string) ([]Step, error)
	InsertSteps(ctx context.Context, tenantID string, steps []Step) error
	SupersedeSteps(ctx context.Context, tenantID, payrunID string) error
	HasActiveChain(ctx context.Context, tenantID, payrunID string) (bool, error)
	// ApplyTransition persists an actioned or delegated step only if the row
	// is still pending, returning ErrAlreadyActioned when a concurrent writer
	// got there first.
	ApplyTransition(ctx context.Context, tenantID string, step Step) error
	UpdatePayrunStatus(ctx context.Context, tenantID, payrunID string, status PayrunStatus) error
}
