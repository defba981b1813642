package deduction

import "math"

// pctOf applies a 0-100 percentage to an amount using basis-point integer
// math. Fractions of a minor unit truncate toward zero, matching how the
// statutory tables round withheld amounts down.
func pctOf(amount Money, percent float64) Money {
	bp := int64(math.Round(percent * 100))
	return Money(int64(amount) * bp / 10000)
}

// CalculateProgressiveTax walks the bands in ascending order. Percentage
// bands accumulate marginal tax on the slice of gross inside the band.
// Flat bands charge the amount of the deepest band entered; entering a band
// requires gross strictly above its Min, so a gross sitting exactly on a
// band boundary is charged at the band below.
func CalculateProgressiveTax(gross Money, brackets []Bracket) Money {
	var tax Money
	var flat Money
	for _, b := range brackets {
		if gross <= b.Min {
			break
		}
		switch b.RateKind {
		case RateFlatAmount:
			flat = b.Amount
		default:
			upper := gross
			if b.Max != nil && *b.Max < upper {
				upper = *b.Max
			}
			tax += pctOf(upper-b.Min, b.Percent)
		}
	}
	return tax + flat
}

// CalculateDeduction computes the employee-side amount for one rule.
// Fixed rules apply their configured amount unconditionally, including at
// zero gross; the jurisdiction-level ApplyFixedOnZeroGross flag governs
// that case at the pay-item level.
func CalculateDeduction(gross Money, rule Rule) (Money, error) {
	if gross < 0 {
		return 0, ErrNegativeGross
	}
	switch rule.Kind {
	case KindFixed:
		return rule.Amount, nil
	case KindPercentage:
		return pctOf(gross, rule.Percent), nil
	case KindProgressive:
		return CalculateProgressiveTax(gross, rule.Brackets), nil
	default:
		return 0, configErr("", rule.Name, "unknown rule kind %q", rule.Kind)
	}
}

// ComputePayItem runs every applicable rule in the set against gross pay and
// returns the itemized result. Employer-side contributions accumulate
// separately and never reduce net pay.
func ComputePayItem(gross Money, set JurisdictionSet, applies Applicability) (Result, error) {
	if gross < 0 {
		return Result{}, ErrNegativeGross
	}
	if applies == nil {
		applies = func(Rule) bool { return true }
	}

	result := Result{Gross: gross}
	for _, rule := range set.Deductions {
		if !applies(rule) {
			continue
		}
		if rule.Kind == KindFixed && gross <= 0 && !set.ApplyFixedOnZeroGross {
			continue
		}
		amount, err := CalculateDeduction(gross, rule)
		if err != nil {
			return Result{}, err
		}
		result.Deductions = append(result.Deductions, Line{RuleName: rule.Name, Amount: amount})
		result.TotalDeductions += amount
		if rule.EmployerPercent > 0 {
			result.EmployerContributions += pctOf(gross, rule.EmployerPercent)
		}
	}
	result.Net = result.Gross - result.TotalDeductions
	return result, nil
}
