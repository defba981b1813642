package approval

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	steps        map[string][]Step // payrunID -> active steps
	payrunStatus map[string]PayrunStatus
	conflictOnce bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		steps:        map[string][]Step{},
		payrunStatus: map[string]PayrunStatus{},
	}
}

func (f *fakeStore) StepPayrunID(_ context.Context, _, stepID string) (string, error) {
	for payrunID, steps := range f.steps {
		for _, step := range steps {
			if step.ID == stepID {
				return payrunID, nil
			}
		}
	}
	return "", ErrStepNotFound
}

func (f *fakeStore) LoadSteps(_ context.Context, _, payrunID string) ([]Step, error) {
	out := make([]Step, len(f.steps[payrunID]))
	copy(out, f.steps[payrunID])
	return out, nil
}

func (f *fakeStore) InsertSteps(_ context.Context, _ string, steps []Step) error {
	if len(steps) == 0 {
		return nil
	}
	payrunID := steps[0].PayrunID
	f.steps[payrunID] = append(f.steps[payrunID], steps...)
	return nil
}

func (f *fakeStore) SupersedeSteps(_ context.Context, _, payrunID string) error {
	f.steps[payrunID] = nil
	return nil
}

func (f *fakeStore) HasActiveChain(_ context.Context, _, payrunID string) (bool, error) {
	return len(f.steps[payrunID]) > 0, nil
}

func (f *fakeStore) ApplyTransition(_ context.Context, _ string, step Step) error {
	if f.conflictOnce {
		f.conflictOnce = false
		return ErrAlreadyActioned
	}
	steps := f.steps[step.PayrunID]
	for i := range steps {
		if steps[i].ID == step.ID {
			if steps[i].Status != StatusPending {
				return ErrAlreadyActioned
			}
			steps[i] = step
			return nil
		}
	}
	return ErrStepNotFound
}

func (f *fakeStore) UpdatePayrunStatus(_ context.Context, _, payrunID string, status PayrunStatus) error {
	f.payrunStatus[payrunID] = status
	return nil
}

func newTestService(store *fakeStore) *Service {
	svc := NewService(store)
	svc.Now = func() time.Time { return testNow }
	return svc
}

func TestServiceCreateChain(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	steps, err := svc.CreateChain(context.Background(), "t1", "payrun-1", []LevelAssignment{
		{Level: 1, ApproverID: "alice"},
		{Level: 2, ApproverID: "bob"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if store.payrunStatus["payrun-1"] != PayrunPendingApproval {
		t.Fatalf("expected pending_approval, got %s", store.payrunStatus["payrun-1"])
	}

	if _, err := svc.CreateChain(context.Background(), "t1", "payrun-1", []LevelAssignment{
		{Level: 1, ApproverID: "alice"},
	}); !errors.Is(err, ErrChainAlreadyExists) {
		t.Fatalf("expected ErrChainAlreadyExists, got %v", err)
	}
}

func TestServiceApproveFlow(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	var approvedPayrun string
	svc.OnPayrunApproved = func(_ context.Context, _, payrunID string) {
		approvedPayrun = payrunID
	}

	steps, err := svc.CreateChain(context.Background(), "t1", "payrun-1", []LevelAssignment{
		{Level: 1, ApproverID: "alice"},
		{Level: 2, ApproverID: "bob"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, status, err := svc.Approve(context.Background(), "t1", steps[0].ID, "ok", Actor{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != PayrunPendingApproval {
		t.Fatalf("expected pending_approval after first approve, got %s", status)
	}
	if approvedPayrun != "" {
		t.Fatal("final-approval hook fired too early")
	}

	_, status, err = svc.Approve(context.Background(), "t1", steps[1].ID, "", Actor{UserID: "bob"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != PayrunApproved {
		t.Fatalf("expected approved, got %s", status)
	}
	if approvedPayrun != "payrun-1" {
		t.Fatalf("expected final-approval hook for payrun-1, got %q", approvedPayrun)
	}
	if store.payrunStatus["payrun-1"] != PayrunApproved {
		t.Fatalf("expected persisted status approved, got %s", store.payrunStatus["payrun-1"])
	}
}

func TestServiceConcurrentApproveLoses(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	steps, err := svc.CreateChain(context.Background(), "t1", "payrun-1", []LevelAssignment{
		{Level: 1, ApproverID: "alice"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Another writer wins the compare-and-swap between load and update.
	store.conflictOnce = true
	if _, _, err := svc.Approve(context.Background(), "t1", steps[0].ID, "", Actor{UserID: "alice"}); !errors.Is(err, ErrAlreadyActioned) {
		t.Fatalf("expected ErrAlreadyActioned, got %v", err)
	}
}

func TestServiceRejectHaltsChain(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	steps, err := svc.CreateChain(context.Background(), "t1", "payrun-1", []LevelAssignment{
		{Level: 1, ApproverID: "alice"},
		{Level: 2, ApproverID: "bob"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, status, err := svc.Reject(context.Background(), "t1", steps[0].ID, "wrong period", Actor{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != PayrunRejected {
		t.Fatalf("expected rejected, got %s", status)
	}

	if _, _, err := svc.Approve(context.Background(), "t1", steps[1].ID, "", Actor{UserID: "bob"}); !errors.Is(err, ErrChainHalted) {
		t.Fatalf("expected ErrChainHalted, got %v", err)
	}
}

func TestServiceDelegate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	steps, err := svc.CreateChain(context.Background(), "t1", "payrun-1", []LevelAssignment{
		{Level: 1, ApproverID: "alice"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	step, status, err := svc.Delegate(context.Background(), "t1", steps[0].ID, "dave", Actor{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.ApproverID != "dave" || step.DelegatedByUserID != "alice" {
		t.Fatalf("unexpected step after delegate: %+v", step)
	}
	if status != PayrunPendingApproval {
		t.Fatalf("delegation must not advance the payrun, got %s", status)
	}
}
