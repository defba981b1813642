package approval

import (
	"context"
	"log/slog"
	"time"
)

// AuditRecorder appends approval actions to the audit trail. Satisfied by
// the audit domain service.
type AuditRecorder interface {
	Record(ctx context.Context, tenantID, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

// Actor identifies who is driving a transition, for auditing.
type Actor struct {
	UserID    string
	RequestID string
	IP        string
}

type Service struct {
	Store StoreAPI
	Audit AuditRecorder
	Now   func() time.Time
	// OnPayrunApproved fires after the final step approves, once the new
	// status is persisted. Used to queue payslip generation.
	OnPayrunApproved func(ctx context.Context, tenantID, payrunID string)
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store, Now: time.Now}
}

// CreateChain initializes the approval steps for a payrun entering the
// workflow. A payrun can only carry one active chain at a time.
func (s *Service) CreateChain(ctx context.Context, tenantID, payrunID string, assignments []LevelAssignment) ([]Step, error) {
	active, err := s.Store.HasActiveChain(ctx, tenantID, payrunID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrChainAlreadyExists
	}

	steps, err := NewChain(payrunID, assignments, s.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.Store.InsertSteps(ctx, tenantID, steps); err != nil {
		return nil, err
	}
	if err := s.Store.UpdatePayrunStatus(ctx, tenantID, payrunID, PayrunPendingApproval); err != nil {
		return nil, err
	}
	return steps, nil
}

// ReplaceChain supersedes the active chain and installs a new one. The old
// steps stay on record; the audit trail never loses a sign-off.
func (s *Service) ReplaceChain(ctx context.Context, tenantID, payrunID string, assignments []LevelAssignment, actor Actor) ([]Step, error) {
	steps, err := NewChain(payrunID, assignments, s.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.Store.SupersedeSteps(ctx, tenantID, payrunID); err != nil {
		return nil, err
	}
	if err := s.Store.InsertSteps(ctx, tenantID, steps); err != nil {
		return nil, err
	}
	if err := s.Store.UpdatePayrunStatus(ctx, tenantID, payrunID, PayrunPendingApproval); err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, actor, "payrun.approval.chain_replaced", payrunID, nil, assignments)
	return steps, nil
}

// Steps returns the active chain and the status derived from it.
func (s *Service) Steps(ctx context.Context, tenantID, payrunID string) ([]Step, PayrunStatus, error) {
	steps, err := s.Store.LoadSteps(ctx, tenantID, payrunID)
	if err != nil {
		return nil, "", err
	}
	return steps, DeriveStatus(steps), nil
}

func (s *Service) Approve(ctx context.Context, tenantID, stepID, comments string, actor Actor) (Step, PayrunStatus, error) {
	return s.transition(ctx, tenantID, stepID, actor, "payrun.approval.approved",
		func(steps []Step) (Step, error) {
			return Approve(steps, stepID, actor.UserID, comments, s.Now().UTC())
		})
}

func (s *Service) Reject(ctx context.Context, tenantID, stepID, comments string, actor Actor) (Step, PayrunStatus, error) {
	return s.transition(ctx, tenantID, stepID, actor, "payrun.approval.rejected",
		func(steps []Step) (Step, error) {
			return Reject(steps, stepID, actor.UserID, comments, s.Now().UTC())
		})
}

func (s *Service) Delegate(ctx context.Context, tenantID, stepID, toUserID string, actor Actor) (Step, PayrunStatus, error) {
	return s.transition(ctx, tenantID, stepID, actor, "payrun.approval.delegated",
		func(steps []Step) (Step, error) {
			return Delegate(steps, stepID, actor.UserID, toUserID, s.Now().UTC())
		})
}

// transition runs one load / pure-transition / compare-and-swap cycle and
// rolls the derived payrun status forward.
func (s *Service) transition(ctx context.Context, tenantID, stepID string, actor Actor, action string, apply func([]Step) (Step, error)) (Step, PayrunStatus, error) {
	payrunID, err := s.Store.StepPayrunID(ctx, tenantID, stepID)
	if err != nil {
		return Step{}, "", err
	}
	steps, err := s.Store.LoadSteps(ctx, tenantID, payrunID)
	if err != nil {
		return Step{}, "", err
	}

	var before Step
	for _, step := range steps {
		if step.ID == stepID {
			before = step
		}
	}

	updated, err := apply(steps)
	if err != nil {
		return Step{}, "", err
	}
	if err := s.Store.ApplyTransition(ctx, tenantID, updated); err != nil {
		return Step{}, "", err
	}

	merged := make([]Step, len(steps))
	copy(merged, steps)
	for i := range merged {
		if merged[i].ID == updated.ID {
			merged[i] = updated
		}
	}
	status := DeriveStatus(merged)
	if err := s.Store.UpdatePayrunStatus(ctx, tenantID, payrunID, status); err != nil {
		return Step{}, "", err
	}

	s.record(ctx, tenantID, actor, action, payrunID, before, updated)

	if status == PayrunApproved && s.OnPayrunApproved != nil {
		s.OnPayrunApproved(ctx, tenantID, payrunID)
	}
	return updated, status, nil
}

func (s *Service) record(ctx context.Context, tenantID string, actor Actor, action, entityID string, before, after any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, tenantID, actor.UserID, action, "payrun", entityID, actor.RequestID, actor.IP, before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
