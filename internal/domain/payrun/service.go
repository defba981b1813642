package payrun

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"payadmin/internal/domain/approval"
	"payadmin/internal/domain/core"
	"payadmin/internal/domain/deduction"
	"payadmin/internal/platform/crypto"
)

// CoreAPI is the slice of the core store the payrun service reads.
type CoreAPI interface {
	PayGroupByID(ctx context.Context, tenantID, payGroupID string) (core.PayGroup, error)
	EmployeePayData(ctx context.Context, tenantID, payGroupID string) ([]core.EmployeePayData, error)
}

type Service struct {
	Store     StoreAPI
	Core      CoreAPI
	Rules     *deduction.Registry
	Crypto    *crypto.Service
	Approvals *approval.Service
	Now       func() time.Time
}

func NewService(store StoreAPI, coreStore CoreAPI, rules *deduction.Registry, crypt *crypto.Service, approvals *approval.Service) *Service {
	return &Service{
		Store:     store,
		Core:      coreStore,
		Rules:     rules,
		Crypto:    crypt,
		Approvals: approvals,
		Now:       time.Now,
	}
}

// Create opens a draft payrun for a pay group and computes its initial item
// set.
func (s *Service) Create(ctx context.Context, tenantID, payGroupID string, periodStart, periodEnd time.Time) (Payrun, Summary, error) {
	if periodEnd.Before(periodStart) {
		return Payrun{}, Summary{}, ErrInvalidPeriod
	}
	group, err := s.Core.PayGroupByID(ctx, tenantID, payGroupID)
	if err != nil {
		return Payrun{}, Summary{}, err
	}
	if _, err := s.Rules.Get(group.JurisdictionCode); err != nil {
		return Payrun{}, Summary{}, err
	}

	run := Payrun{
		PayGroupID:  payGroupID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      approval.PayrunDraft,
		Currency:    group.Currency,
	}
	id, err := s.Store.Insert(ctx, tenantID, run)
	if err != nil {
		return Payrun{}, Summary{}, err
	}

	summary, err := s.recalculate(ctx, tenantID, id, group)
	if err != nil {
		return Payrun{}, Summary{}, err
	}
	created, err := s.Store.GetByID(ctx, tenantID, id)
	if err != nil {
		return Payrun{}, Summary{}, err
	}
	return created, summary, nil
}

func (s *Service) Get(ctx context.Context, tenantID, payrunID string) (Payrun, []PayItem, error) {
	run, err := s.Store.GetByID(ctx, tenantID, payrunID)
	if err != nil {
		return Payrun{}, nil, err
	}
	items, err := s.Store.ListPayItems(ctx, tenantID, payrunID)
	if err != nil {
		return Payrun{}, nil, err
	}
	return run, items, nil
}

func (s *Service) List(ctx context.Context, tenantID string, limit, offset int) ([]Payrun, int, error) {
	return s.Store.List(ctx, tenantID, limit, offset)
}

// Recalculate recomputes the full item set from current employee data and
// deduction tables. Only a draft may be recalculated; once a payrun enters
// the approval workflow its figures are what the approvers signed off on.
func (s *Service) Recalculate(ctx context.Context, tenantID, payrunID string) (Summary, error) {
	run, err := s.Store.GetByID(ctx, tenantID, payrunID)
	if err != nil {
		return Summary{}, err
	}
	if run.Status != approval.PayrunDraft {
		return Summary{}, ErrNotDraft
	}
	group, err := s.Core.PayGroupByID(ctx, tenantID, run.PayGroupID)
	if err != nil {
		return Summary{}, err
	}
	return s.recalculate(ctx, tenantID, payrunID, group)
}

func (s *Service) recalculate(ctx context.Context, tenantID, payrunID string, group core.PayGroup) (Summary, error) {
	set, err := s.Rules.Get(group.JurisdictionCode)
	if err != nil {
		return Summary{}, err
	}
	data, err := s.Core.EmployeePayData(ctx, tenantID, group.ID)
	if err != nil {
		return Summary{}, err
	}

	inputs := make([]EmployeeInput, 0, len(data))
	var issues []ComputeIssue
	for _, d := range data {
		gross, err := s.resolveGross(d)
		if err != nil {
			issues = append(issues, ComputeIssue{EmployeeID: d.EmployeeID, Reason: err.Error()})
			continue
		}
		inputs = append(inputs, EmployeeInput{
			EmployeeID:     d.EmployeeID,
			Gross:          gross,
			Classification: d.Classification,
			RuleOverrides:  d.RuleOverrides,
		})
	}

	items, computeIssues := Compute(payrunID, inputs, set, s.Now().UTC())
	issues = append(issues, computeIssues...)

	if err := s.Store.ReplacePayItems(ctx, tenantID, payrunID, items); err != nil {
		return Summary{}, err
	}
	return Summarize(items, issues), nil
}

// Submit moves a draft into the approval workflow, building the chain from
// the pay group's configured approver levels.
func (s *Service) Submit(ctx context.Context, tenantID, payrunID string) ([]approval.Step, error) {
	run, err := s.Store.GetByID(ctx, tenantID, payrunID)
	if err != nil {
		return nil, err
	}
	if run.Status != approval.PayrunDraft {
		return nil, ErrNotDraft
	}
	count, err := s.Store.CountPayItems(ctx, tenantID, payrunID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoPayItems
	}

	group, err := s.Core.PayGroupByID(ctx, tenantID, run.PayGroupID)
	if err != nil {
		return nil, err
	}
	if len(group.ApproverLevels) == 0 {
		return nil, ErrNoApprovers
	}
	assignments := make([]approval.LevelAssignment, 0, len(group.ApproverLevels))
	for _, lvl := range group.ApproverLevels {
		assignments = append(assignments, approval.LevelAssignment{
			Level:      lvl.Level,
			ApproverID: lvl.ApproverID,
		})
	}
	return s.Approvals.CreateChain(ctx, tenantID, payrunID, assignments)
}

// resolveGross prefers the plaintext salary column and falls back to the
// encrypted one. The encrypted value is the decimal string of the amount in
// minor units.
func (s *Service) resolveGross(d core.EmployeePayData) (deduction.Money, error) {
	if d.SalaryPlain != nil {
		return deduction.Money(*d.SalaryPlain), nil
	}
	if len(d.SalaryEnc) == 0 {
		return 0, fmt.Errorf("employee has no salary on record")
	}
	plain, err := s.Crypto.Decrypt(d.SalaryEnc)
	if err != nil {
		return 0, fmt.Errorf("decrypt salary: %w", err)
	}
	v, err := strconv.ParseInt(string(plain), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse salary: %w", err)
	}
	return deduction.Money(v), nil
}
