package approval

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func threeLevelChain(t *testing.T) []Step {
	t.Helper()
	steps, err := NewChain("payrun-1", []LevelAssignment{
		{Level: 1, ApproverID: "alice"},
		{Level: 2, ApproverID: "bob"},
		{Level: 3, ApproverID: "carol"},
	}, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return steps
}

func replaceStep(steps []Step, updated Step) []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	for i := range out {
		if out[i].ID == updated.ID {
			out[i] = updated
		}
	}
	return out
}

func TestNewChain(t *testing.T) {
	steps := threeLevelChain(t)
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	for i, step := range steps {
		if step.Level != i+1 {
			t.Fatalf("expected level %d, got %d", i+1, step.Level)
		}
		if step.Status != StatusPending {
			t.Fatalf("expected pending step, got %s", step.Status)
		}
	}
	if DeriveStatus(steps) != PayrunPendingApproval {
		t.Fatalf("expected pending_approval, got %s", DeriveStatus(steps))
	}
}

func TestNewChainRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name        string
		assignments []LevelAssignment
	}{
		{"empty", nil},
		{"starts at 2", []LevelAssignment{{Level: 2, ApproverID: "alice"}}},
		{"duplicate level", []LevelAssignment{
			{Level: 1, ApproverID: "alice"},
			{Level: 1, ApproverID: "bob"},
		}},
		{"gap", []LevelAssignment{
			{Level: 1, ApproverID: "alice"},
			{Level: 3, ApproverID: "bob"},
		}},
		{"missing approver", []LevelAssignment{{Level: 1, ApproverID: ""}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewChain("payrun-1", tc.assignments, testNow); !errors.Is(err, ErrInvalidChainConfig) {
				t.Fatalf("expected ErrInvalidChainConfig, got %v", err)
			}
		})
	}
}

func TestApprovalOrdering(t *testing.T) {
	steps := threeLevelChain(t)

	// Level 2 cannot act before level 1 is approved.
	if _, err := Approve(steps, steps[1].ID, "bob", "", testNow); !errors.Is(err, ErrNotCurrentStep) {
		t.Fatalf("expected ErrNotCurrentStep, got %v", err)
	}

	first, err := Approve(steps, steps[0].ID, "alice", "looks right", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Status != StatusApproved || first.ActionedByUserID != "alice" {
		t.Fatalf("unexpected step after approve: %+v", first)
	}
	steps = replaceStep(steps, first)

	if DeriveStatus(steps) != PayrunPendingApproval {
		t.Fatalf("expected pending_approval mid-chain, got %s", DeriveStatus(steps))
	}

	current, ok := CurrentStep(steps)
	if !ok || current.Level != 2 {
		t.Fatalf("expected level 2 current, got %+v ok=%v", current, ok)
	}
}

func TestFullApprovalFlow(t *testing.T) {
	steps := threeLevelChain(t)
	actors := []string{"alice", "bob", "carol"}
	for i := range steps {
		updated, err := Approve(steps, steps[i].ID, actors[i], "", testNow)
		if err != nil {
			t.Fatalf("level %d: unexpected error: %v", i+1, err)
		}
		steps = replaceStep(steps, updated)
	}
	if DeriveStatus(steps) != PayrunApproved {
		t.Fatalf("expected approved, got %s", DeriveStatus(steps))
	}
	if _, ok := CurrentStep(steps); ok {
		t.Fatal("completed chain should have no current step")
	}
}

func TestIdempotentDoubleAction(t *testing.T) {
	steps := threeLevelChain(t)

	updated, err := Approve(steps, steps[0].ID, "alice", "", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	steps = replaceStep(steps, updated)

	before := steps[0]
	if _, err := Approve(steps, steps[0].ID, "alice", "", testNow); !errors.Is(err, ErrAlreadyActioned) {
		t.Fatalf("expected ErrAlreadyActioned, got %v", err)
	}
	if steps[0] != before {
		t.Fatal("failed second approve must not change step state")
	}
}

func TestTerminalRejection(t *testing.T) {
	steps := threeLevelChain(t)

	rejected, err := Reject(steps, steps[0].ID, "alice", "numbers are off", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	steps = replaceStep(steps, rejected)

	if DeriveStatus(steps) != PayrunRejected {
		t.Fatalf("expected rejected, got %s", DeriveStatus(steps))
	}

	// No step in a halted chain can transition, regardless of its own state.
	for i := range steps {
		if _, err := Approve(steps, steps[i].ID, "bob", "", testNow); !errors.Is(err, ErrChainHalted) {
			t.Fatalf("step %d: expected ErrChainHalted, got %v", i, err)
		}
		if _, err := Delegate(steps, steps[i].ID, steps[i].ApproverID, "dave", testNow); !errors.Is(err, ErrChainHalted) {
			t.Fatalf("step %d: expected ErrChainHalted, got %v", i, err)
		}
	}
}

func TestRejectRequiresComments(t *testing.T) {
	steps := threeLevelChain(t)
	if _, err := Reject(steps, steps[0].ID, "alice", "", testNow); !errors.Is(err, ErrCommentsRequired) {
		t.Fatalf("expected ErrCommentsRequired, got %v", err)
	}
}

func TestDelegate(t *testing.T) {
	steps := threeLevelChain(t)

	delegated, err := Delegate(steps, steps[0].ID, "alice", "dave", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delegated.ApproverID != "dave" || delegated.DelegatedByUserID != "alice" {
		t.Fatalf("unexpected step after delegate: %+v", delegated)
	}
	if delegated.Status != StatusPending || delegated.Level != 1 {
		t.Fatal("delegation must not change status or level")
	}
	steps = replaceStep(steps, delegated)

	// The delegate can now action the step.
	if _, err := Approve(steps, steps[0].ID, "dave", "", testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelegateByNonApprover(t *testing.T) {
	steps := threeLevelChain(t)
	if _, err := Delegate(steps, steps[0].ID, "mallory", "dave", testNow); !errors.Is(err, ErrNotAssignedApprover) {
		t.Fatalf("expected ErrNotAssignedApprover, got %v", err)
	}
}

func TestDelegateNonCurrentStep(t *testing.T) {
	steps := threeLevelChain(t)
	if _, err := Delegate(steps, steps[2].ID, "carol", "dave", testNow); !errors.Is(err, ErrNotCurrentStep) {
		t.Fatalf("expected ErrNotCurrentStep, got %v", err)
	}
}

func TestDeriveStatusDraft(t *testing.T) {
	if DeriveStatus(nil) != PayrunDraft {
		t.Fatalf("expected draft for empty step set, got %s", DeriveStatus(nil))
	}
}

func TestUnknownStep(t *testing.T) {
	steps := threeLevelChain(t)
	if _, err := Approve(steps, "nope", "alice", "", testNow); !errors.Is(err, ErrStepNotFound) {
		t.Fatalf("expected ErrStepNotFound, got %v", err)
	}
}
