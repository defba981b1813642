package core

import (
	"time"

	"payadmin/internal/domain/deduction"
)

type Employee struct {
	ID               string                   `json:"id"`
	FirstName        string                   `json:"firstName"`
	LastName         string                   `json:"lastName"`
	Email            string                   `json:"email"`
	Classification   deduction.Classification `json:"classification"`
	JurisdictionCode string                   `json:"jurisdictionCode"`
	PayGroupID       string                   `json:"payGroupId"`
	CreatedAt        time.Time                `json:"createdAt"`
}

// EmployeePayData carries what a payrun computation needs for one employee.
// The salary may be held encrypted at rest; exactly one of SalaryPlain or
// SalaryEnc is populated.
type EmployeePayData struct {
	EmployeeID     string
	Classification deduction.Classification
	SalaryPlain    *int64
	SalaryEnc      []byte
	// RuleOverrides force individual statutory rules on or off for this
	// employee, keyed by rule name.
	RuleOverrides map[string]bool
}

type ApproverLevel struct {
	Level      int    `json:"level"`
	ApproverID string `json:"approverId"`
}

type PayGroup struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	JurisdictionCode string          `json:"jurisdictionCode"`
	PayFrequency     string          `json:"payFrequency"`
	Currency         string          `json:"currency"`
	ApproverLevels   []ApproverLevel `json:"approverLevels"`
	CreatedAt        time.Time       `json:"createdAt"`
}
