package payrun

import (
	"time"

	"github.com/google/uuid"

	"payadmin/internal/domain/deduction"
)

// Compute maps every employee in the run through the deduction engine.
// Per-employee failures are collected as issues so one bad record does not
// sink the whole payrun.
func Compute(payrunID string, employees []EmployeeInput, set deduction.JurisdictionSet, now time.Time) ([]PayItem, []ComputeIssue) {
	var items []PayItem
	var issues []ComputeIssue

	for _, emp := range employees {
		applies := deduction.ForClassification(emp.Classification, emp.RuleOverrides)
		result, err := deduction.ComputePayItem(emp.Gross, set, applies)
		if err != nil {
			issues = append(issues, ComputeIssue{EmployeeID: emp.EmployeeID, Reason: err.Error()})
			continue
		}
		items = append(items, PayItem{
			ID:                    uuid.NewString(),
			PayrunID:              payrunID,
			EmployeeID:            emp.EmployeeID,
			Gross:                 result.Gross,
			Deductions:            result.Deductions,
			TotalDeductions:       result.TotalDeductions,
			Net:                   result.Net,
			EmployerContributions: result.EmployerContributions,
			CreatedAt:             now,
		})
	}
	return items, issues
}

// Summarize totals a computed item set for review screens and audit records.
func Summarize(items []PayItem, issues []ComputeIssue) Summary {
	summary := Summary{EmployeeCount: len(items), Issues: issues}
	for _, item := range items {
		summary.TotalGross += item.Gross
		summary.TotalDeductions += item.TotalDeductions
		summary.TotalNet += item.Net
		summary.EmployerContributions += item.EmployerContributions
	}
	return summary
}
