package deduction

// Money is an amount in the minor unit of the jurisdiction's currency.
// UGX and KES carry no fractional unit in payroll practice, so whole
// shillings are the minor unit for the built-in tables.
type Money int64

type Classification string

const (
	ClassLocal      Classification = "local"
	ClassExpatriate Classification = "expatriate"
	ClassExempt     Classification = "exempt"
)

type RateKind string

const (
	// RatePercentage taxes the slice of gross pay falling inside the band.
	RatePercentage RateKind = "percentage"
	// RateFlatAmount charges a fixed amount for the band containing gross pay,
	// the way the Kenyan NHIF table is published.
	RateFlatAmount RateKind = "flat_amount"
)

// Bracket is one band of a progressive table. Max is nil on the open-ended
// top band. Bands are contiguous: each Min is the previous Max plus one
// minor unit.
type Bracket struct {
	Min      Money    `json:"min"`
	Max      *Money   `json:"max"`
	RateKind RateKind `json:"rateKind"`
	// Percent holds a 0-100 marginal rate when RateKind is percentage.
	Percent float64 `json:"percent,omitempty"`
	// Amount holds the flat band charge when RateKind is flat_amount.
	Amount Money `json:"amount,omitempty"`
}

type Kind string

const (
	KindFixed       Kind = "fixed"
	KindPercentage  Kind = "percentage"
	KindProgressive Kind = "progressive"
)

// Rule is one statutory deduction. Exactly one of Amount, Percent or
// Brackets is meaningful, selected by Kind.
type Rule struct {
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Amount    Money     `json:"amount,omitempty"`
	Percent   float64   `json:"percent,omitempty"`
	Brackets  []Bracket `json:"brackets,omitempty"`
	Mandatory bool      `json:"mandatory"`
	// EmployerPercent is the employer-side contribution, 0-100 of gross pay.
	// It is reported on the pay item but never reduces net pay.
	EmployerPercent float64 `json:"employerPercent,omitempty"`
	// AppliesTo limits the rule to the listed classifications. Empty means
	// every non-exempt classification.
	AppliesTo []Classification `json:"appliesTo,omitempty"`
}

// JurisdictionSet is the reference rule table for one country code.
// Loaded once at startup and never mutated afterwards.
type JurisdictionSet struct {
	Code     string `json:"code"`
	Currency string `json:"currency"`
	// ApplyFixedOnZeroGross keeps flat levies payable when gross pay is zero,
	// mirroring levies charged regardless of pay (e.g. local service tax).
	ApplyFixedOnZeroGross bool   `json:"applyFixedOnZeroGross"`
	Deductions            []Rule `json:"deductions"`
}

// Line is one computed deduction on a pay item.
type Line struct {
	RuleName string `json:"ruleName"`
	Amount   Money  `json:"amount"`
}

// Result is the outcome of running a jurisdiction's rules against one
// gross pay amount.
type Result struct {
	Gross                 Money  `json:"gross"`
	Deductions            []Line `json:"deductions"`
	TotalDeductions       Money  `json:"totalDeductions"`
	Net                   Money  `json:"net"`
	EmployerContributions Money  `json:"employerContributions"`
}

// Applicability decides whether a rule applies to a particular employee.
// Jurisdiction policy stays data-driven: the engine never inspects the
// employee itself.
type Applicability func(rule Rule) bool

// ForClassification builds the standard applicability predicate: exempt
// employees get no statutory deductions, otherwise a rule applies when its
// AppliesTo list is empty or names the classification. Overrides, keyed by
// rule name, force a rule on or off for one employee.
func ForClassification(class Classification, overrides map[string]bool) Applicability {
	return func(rule Rule) bool {
		if forced, ok := overrides[rule.Name]; ok {
			return forced
		}
		if class == ClassExempt {
			return false
		}
		if len(rule.AppliesTo) == 0 {
			return true
		}
		for _, c := range rule.AppliesTo {
			if c == class {
				return true
			}
		}
		return false
	}
}
