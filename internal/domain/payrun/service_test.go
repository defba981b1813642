package payrun

import (
	"context"
	"errors"
	"testing"
	"time"

	"payadmin/internal/domain/approval"
	"payadmin/internal/domain/core"
	"payadmin/internal/domain/deduction"
	"payadmin/internal/platform/crypto"
)

type fakeStore struct {
	runs   map[string]Payrun
	items  map[string][]PayItem
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{runs: map[string]Payrun{}, items: map[string][]PayItem{}}
}

func (f *fakeStore) Insert(_ context.Context, _ string, run Payrun) (string, error) {
	f.nextID++
	id := "run-" + string(rune('0'+f.nextID))
	run.ID = id
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	f.runs[id] = run
	return id, nil
}

func (f *fakeStore) GetByID(_ context.Context, _ string, payrunID string) (Payrun, error) {
	run, ok := f.runs[payrunID]
	if !ok {
		return Payrun{}, ErrPayrunNotFound
	}
	return run, nil
}

func (f *fakeStore) List(_ context.Context, _ string, _, _ int) ([]Payrun, int, error) {
	var runs []Payrun
	for _, run := range f.runs {
		runs = append(runs, run)
	}
	return runs, len(runs), nil
}

func (f *fakeStore) ReplacePayItems(_ context.Context, _ string, payrunID string, items []PayItem) error {
	f.items[payrunID] = items
	return nil
}

func (f *fakeStore) ListPayItems(_ context.Context, _ string, payrunID string) ([]PayItem, error) {
	return f.items[payrunID], nil
}

func (f *fakeStore) CountPayItems(_ context.Context, _ string, payrunID string) (int, error) {
	return len(f.items[payrunID]), nil
}

func (f *fakeStore) SetPayslipURL(_ context.Context, _ string, payItemID, url string) error {
	for runID, items := range f.items {
		for i := range items {
			if items[i].ID == payItemID {
				f.items[runID][i].PayslipURL = url
			}
		}
	}
	return nil
}

func (f *fakeStore) SetStatus(_ context.Context, _ string, payrunID string, status approval.PayrunStatus) error {
	run, ok := f.runs[payrunID]
	if !ok {
		return ErrPayrunNotFound
	}
	run.Status = status
	f.runs[payrunID] = run
	return nil
}

type fakeCore struct {
	group core.PayGroup
	data  []core.EmployeePayData
}

func (f *fakeCore) PayGroupByID(_ context.Context, _, payGroupID string) (core.PayGroup, error) {
	if payGroupID != f.group.ID {
		return core.PayGroup{}, core.ErrPayGroupNotFound
	}
	return f.group, nil
}

func (f *fakeCore) EmployeePayData(_ context.Context, _, _ string) ([]core.EmployeePayData, error) {
	return f.data, nil
}

type fakeApprovalStore struct {
	steps    []approval.Step
	statuses map[string]approval.PayrunStatus
}

func (f *fakeApprovalStore) StepPayrunID(_ context.Context, _, stepID string) (string, error) {
	for _, s := range f.steps {
		if s.ID == stepID {
			return s.PayrunID, nil
		}
	}
	return "", approval.ErrStepNotFound
}

func (f *fakeApprovalStore) LoadSteps(_ context.Context, _, payrunID string) ([]approval.Step, error) {
	var out []approval.Step
	for _, s := range f.steps {
		if s.PayrunID == payrunID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeApprovalStore) InsertSteps(_ context.Context, _ string, steps []approval.Step) error {
	f.steps = append(f.steps, steps...)
	return nil
}

func (f *fakeApprovalStore) SupersedeSteps(_ context.Context, _, payrunID string) error {
	var kept []approval.Step
	for _, s := range f.steps {
		if s.PayrunID != payrunID {
			kept = append(kept, s)
		}
	}
	f.steps = kept
	return nil
}

func (f *fakeApprovalStore) HasActiveChain(_ context.Context, _, payrunID string) (bool, error) {
	for _, s := range f.steps {
		if s.PayrunID == payrunID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeApprovalStore) ApplyTransition(_ context.Context, _ string, step approval.Step) error {
	for i := range f.steps {
		if f.steps[i].ID == step.ID {
			f.steps[i] = step
			return nil
		}
	}
	return approval.ErrStepNotFound
}

func (f *fakeApprovalStore) UpdatePayrunStatus(_ context.Context, _, payrunID string, status approval.PayrunStatus) error {
	if f.statuses == nil {
		f.statuses = map[string]approval.PayrunStatus{}
	}
	f.statuses[payrunID] = status
	return nil
}

func salaryPtr(v int64) *int64 { return &v }

func newTestService(t *testing.T, data []core.EmployeePayData, levels []core.ApproverLevel) (*Service, *fakeStore, *fakeApprovalStore) {
	t.Helper()
	rules, err := deduction.NewRegistry(deduction.Builtin())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	crypt, err := crypto.New("")
	if err != nil {
		t.Fatalf("crypto: %v", err)
	}
	store := newFakeStore()
	approvalStore := &fakeApprovalStore{}
	svc := NewService(store, &fakeCore{
		group: core.PayGroup{
			ID:               "pg-1",
			Name:             "Nairobi Monthly",
			JurisdictionCode: "KE",
			Currency:         "KES",
			ApproverLevels:   levels,
		},
		data: data,
	}, rules, crypt, approval.NewService(approvalStore))
	return svc, store, approvalStore
}

func TestCreateComputesItems(t *testing.T) {
	data := []core.EmployeePayData{
		{EmployeeID: "e1", Classification: deduction.ClassLocal, SalaryPlain: salaryPtr(50000)},
		{EmployeeID: "e2", Classification: deduction.ClassLocal, SalaryPlain: salaryPtr(20000)},
	}
	svc, store, _ := newTestService(t, data, nil)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	run, summary, err := svc.Create(context.Background(), "t1", "pg-1", start, end)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if run.Status != approval.PayrunDraft {
		t.Errorf("status %q, want draft", run.Status)
	}
	if run.Currency != "KES" {
		t.Errorf("currency %q, want KES", run.Currency)
	}
	if summary.EmployeeCount != 2 {
		t.Errorf("employee count %d, want 2", summary.EmployeeCount)
	}
	items := store.items[run.ID]
	if len(items) != 2 {
		t.Fatalf("stored items %d, want 2", len(items))
	}
	for _, item := range items {
		if item.Gross-item.TotalDeductions != item.Net {
			t.Errorf("net identity broken for %s", item.EmployeeID)
		}
	}
}

func TestCreateRejectsInvertedPeriod(t *testing.T) {
	svc, _, _ := newTestService(t, nil, nil)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, 30)
	if _, _, err := svc.Create(context.Background(), "t1", "pg-1", start, end); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestRecalculateOnlyDraft(t *testing.T) {
	data := []core.EmployeePayData{
		{EmployeeID: "e1", Classification: deduction.ClassLocal, SalaryPlain: salaryPtr(50000)},
	}
	svc, store, _ := newTestService(t, data, nil)

	run, _, err := svc.Create(context.Background(), "t1", "pg-1",
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Recalculate(context.Background(), "t1", run.ID); err != nil {
		t.Fatalf("recalculate draft: %v", err)
	}

	if err := store.SetStatus(context.Background(), "t1", run.ID, approval.PayrunPendingApproval); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := svc.Recalculate(context.Background(), "t1", run.ID); !errors.Is(err, ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft, got %v", err)
	}
}

func TestRecalculateReportsMissingSalary(t *testing.T) {
	data := []core.EmployeePayData{
		{EmployeeID: "e1", Classification: deduction.ClassLocal, SalaryPlain: salaryPtr(50000)},
		{EmployeeID: "no-salary", Classification: deduction.ClassLocal},
	}
	svc, store, _ := newTestService(t, data, nil)

	run, summary, err := svc.Create(context.Background(), "t1", "pg-1",
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if summary.EmployeeCount != 1 {
		t.Errorf("employee count %d, want 1", summary.EmployeeCount)
	}
	if len(summary.Issues) != 1 || summary.Issues[0].EmployeeID != "no-salary" {
		t.Errorf("issues %+v", summary.Issues)
	}
	if len(store.items[run.ID]) != 1 {
		t.Errorf("stored items %d, want 1", len(store.items[run.ID]))
	}
}

func TestSubmitBuildsChainFromPayGroup(t *testing.T) {
	data := []core.EmployeePayData{
		{EmployeeID: "e1", Classification: deduction.ClassLocal, SalaryPlain: salaryPtr(50000)},
	}
	levels := []core.ApproverLevel{
		{Level: 1, ApproverID: "mgr"},
		{Level: 2, ApproverID: "finance"},
	}
	svc, _, approvalStore := newTestService(t, data, levels)

	run, _, err := svc.Create(context.Background(), "t1", "pg-1",
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	steps, err := svc.Submit(context.Background(), "t1", run.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("steps %d, want 2", len(steps))
	}
	if steps[0].Level != 1 || steps[0].ApproverID != "mgr" {
		t.Errorf("first step %+v", steps[0])
	}
	if got := approvalStore.statuses[run.ID]; got != approval.PayrunPendingApproval {
		t.Errorf("payrun status %q, want pending_approval", got)
	}
}

func TestSubmitRequiresApprovers(t *testing.T) {
	data := []core.EmployeePayData{
		{EmployeeID: "e1", Classification: deduction.ClassLocal, SalaryPlain: salaryPtr(50000)},
	}
	svc, _, _ := newTestService(t, data, nil)

	run, _, err := svc.Create(context.Background(), "t1", "pg-1",
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Submit(context.Background(), "t1", run.ID); !errors.Is(err, ErrNoApprovers) {
		t.Fatalf("expected ErrNoApprovers, got %v", err)
	}
}

func TestSubmitRequiresItems(t *testing.T) {
	levels := []core.ApproverLevel{{Level: 1, ApproverID: "mgr"}}
	svc, _, _ := newTestService(t, nil, levels)

	run, _, err := svc.Create(context.Background(), "t1", "pg-1",
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Submit(context.Background(), "t1", run.ID); !errors.Is(err, ErrNoPayItems) {
		t.Fatalf("expected ErrNoPayItems, got %v", err)
	}
}

func TestResolveGrossFromEncryptedSalary(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	crypt, err := crypto.New(key)
	if err != nil {
		t.Fatalf("crypto: %v", err)
	}
	enc, err := crypt.Encrypt([]byte("75000"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	svc := &Service{Crypto: crypt}
	gross, err := svc.resolveGross(core.EmployeePayData{EmployeeID: "e1", SalaryEnc: enc})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if gross != 75000 {
		t.Errorf("gross %d, want 75000", gross)
	}
}
