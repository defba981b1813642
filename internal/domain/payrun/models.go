package payrun

import (
	"time"

	"payadmin/internal/domain/approval"
	"payadmin/internal/domain/deduction"
)

type Payrun struct {
	ID          string                `json:"id"`
	PayGroupID  string                `json:"payGroupId"`
	PeriodStart time.Time             `json:"periodStart"`
	PeriodEnd   time.Time             `json:"periodEnd"`
	Status      approval.PayrunStatus `json:"status"`
	Currency    string                `json:"currency"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// PayItem is one employee's computed result for a payrun. Immutable once
// written: recalculation replaces the whole set, never patches rows.
type PayItem struct {
	ID                    string           `json:"id"`
	PayrunID              string           `json:"payRunId"`
	EmployeeID            string           `json:"employeeId"`
	Gross                 deduction.Money  `json:"grossPay"`
	Deductions            []deduction.Line `json:"deductions"`
	TotalDeductions       deduction.Money  `json:"totalDeductions"`
	Net                   deduction.Money  `json:"netPay"`
	EmployerContributions deduction.Money  `json:"employerContributions"`
	PayslipURL            string           `json:"payslipUrl,omitempty"`
	CreatedAt             time.Time        `json:"createdAt"`
}

// EmployeeInput is the slice of an employee the computation needs. Gross pay
// arrives already resolved; salary-type arithmetic happens upstream.
type EmployeeInput struct {
	EmployeeID     string
	Gross          deduction.Money
	Classification deduction.Classification
	RuleOverrides  map[string]bool
}

// ComputeIssue records one employee whose pay item could not be computed.
// A bad record does not abort the rest of the run.
type ComputeIssue struct {
	EmployeeID string `json:"employeeId"`
	Reason     string `json:"reason"`
}

type Summary struct {
	EmployeeCount         int             `json:"employeeCount"`
	TotalGross            deduction.Money `json:"totalGross"`
	TotalDeductions       deduction.Money `json:"totalDeductions"`
	TotalNet              deduction.Money `json:"totalNet"`
	EmployerContributions deduction.Money `json:"employerContributions"`
	Issues                []ComputeIssue  `json:"issues,omitempty"`
}
