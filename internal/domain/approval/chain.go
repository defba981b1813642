package approval

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// NewChain builds one pending step per configured level. Levels must be
// contiguous starting at 1; duplicates or gaps are configuration errors.
func NewChain(payrunID string, assignments []LevelAssignment, now time.Time) ([]Step, error) {
	if payrunID == "" || len(assignments) == 0 {
		return nil, ErrInvalidChainConfig
	}

	ordered := make([]LevelAssignment, len(assignments))
	copy(ordered, assignments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Level < ordered[j].Level })

	steps := make([]Step, 0, len(ordered))
	for i, a := range ordered {
		if a.Level != i+1 || a.ApproverID == "" {
			return nil, ErrInvalidChainConfig
		}
		steps = append(steps, Step{
			ID:         uuid.NewString(),
			PayrunID:   payrunID,
			Level:      a.Level,
			Status:     StatusPending,
			ApproverID: a.ApproverID,
			CreatedAt:  now,
		})
	}
	return steps, nil
}

// CurrentStep returns the lowest-level step still pending. The
// contiguous-approved-prefix invariant makes it unique: every step below it
// is approved, so at most one step is ever actionable.
func CurrentStep(steps []Step) (Step, bool) {
	sorted := sortedByLevel(steps)
	for _, step := range sorted {
		switch step.Status {
		case StatusApproved:
			continue
		case StatusPending:
			return step, true
		default:
			return Step{}, false
		}
	}
	return Step{}, false
}

// DeriveStatus rolls the step set up into the payrun's status. A pure read:
// draft with no steps, rejected dominates, approved only when every step is
// approved.
func DeriveStatus(steps []Step) PayrunStatus {
	if len(steps) == 0 {
		return PayrunDraft
	}
	allApproved := true
	for _, step := range steps {
		if step.Status == StatusRejected {
			return PayrunRejected
		}
		if step.Status != StatusApproved {
			allApproved = false
		}
	}
	if allApproved {
		return PayrunApproved
	}
	return PayrunPendingApproval
}

// Approve transitions the current step to approved and returns the updated
// step. The input slice is not mutated.
func Approve(steps []Step, stepID, actingUserID, comments string, now time.Time) (Step, error) {
	step, err := actionableStep(steps, stepID)
	if err != nil {
		return Step{}, err
	}
	step.Status = StatusApproved
	step.ActionedAt = &now
	step.ActionedByUserID = actingUserID
	step.Comments = comments
	return step, nil
}

// Reject transitions the current step to rejected, halting the chain.
// Comments are mandatory: a rejection without a reason is not actionable
// by the submitter.
func Reject(steps []Step, stepID, actingUserID, comments string, now time.Time) (Step, error) {
	if comments == "" {
		return Step{}, ErrCommentsRequired
	}
	step, err := actionableStep(steps, stepID)
	if err != nil {
		return Step{}, err
	}
	step.Status = StatusRejected
	step.ActionedAt = &now
	step.ActionedByUserID = actingUserID
	step.Comments = comments
	return step, nil
}

// Delegate reassigns the current step's approver without consuming the
// step. Only the assigned approver may hand the step off.
func Delegate(steps []Step, stepID, fromUserID, toUserID string, now time.Time) (Step, error) {
	step, err := actionableStep(steps, stepID)
	if err != nil {
		return Step{}, err
	}
	if step.ApproverID != fromUserID {
		return Step{}, ErrNotAssignedApprover
	}
	if toUserID == "" {
		return Step{}, ErrInvalidChainConfig
	}
	step.ApproverID = toUserID
	step.DelegatedByUserID = fromUserID
	return step, nil
}

// actionableStep enforces the ordering guarantee shared by every transition:
// the step must exist, the chain must not be halted, the step must still be
// pending, and it must be the unique current step.
func actionableStep(steps []Step, stepID string) (Step, error) {
	var step Step
	found := false
	for _, s := range steps {
		if s.ID == stepID {
			step = s
			found = true
		}
		if s.Status == StatusRejected {
			return Step{}, ErrChainHalted
		}
	}
	if !found {
		return Step{}, ErrStepNotFound
	}
	if step.Status != StatusPending {
		return Step{}, ErrAlreadyActioned
	}
	current, ok := CurrentStep(steps)
	if !ok || current.ID != step.ID {
		return Step{}, ErrNotCurrentStep
	}
	return step, nil
}

func sortedByLevel(steps []Step) []Step {
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })
	return sorted
}
