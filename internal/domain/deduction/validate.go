package deduction

// Validate checks a jurisdiction's rule table against its invariants.
// Called once when the registry loads; computation assumes a valid table.
func (set JurisdictionSet) Validate() error {
	if set.Code == "" {
		return configErr(set.Code, "", "jurisdiction code is required")
	}
	if set.Currency == "" {
		return configErr(set.Code, "", "currency is required")
	}
	if len(set.Deductions) == 0 {
		return configErr(set.Code, "", "at least one deduction rule is required")
	}

	seen := map[string]bool{}
	for _, rule := range set.Deductions {
		if rule.Name == "" {
			return configErr(set.Code, "", "rule name is required")
		}
		if seen[rule.Name] {
			return configErr(set.Code, rule.Name, "duplicate rule name")
		}
		seen[rule.Name] = true

		if err := validateRule(set.Code, rule); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(code string, rule Rule) error {
	switch rule.Kind {
	case KindFixed:
		if rule.Amount < 0 {
			return configErr(code, rule.Name, "fixed amount must not be negative")
		}
		if rule.Percent != 0 || len(rule.Brackets) != 0 {
			return configErr(code, rule.Name, "fixed rule must not carry a percent or brackets")
		}
	case KindPercentage:
		if rule.Percent < 0 || rule.Percent > 100 {
			return configErr(code, rule.Name, "percent must be between 0 and 100, got %v", rule.Percent)
		}
		if rule.Amount != 0 || len(rule.Brackets) != 0 {
			return configErr(code, rule.Name, "percentage rule must not carry an amount or brackets")
		}
	case KindProgressive:
		if rule.Amount != 0 || rule.Percent != 0 {
			return configErr(code, rule.Name, "progressive rule must not carry an amount or percent")
		}
		if err := validateBrackets(code, rule.Name, rule.Brackets); err != nil {
			return err
		}
	default:
		return configErr(code, rule.Name, "unknown rule kind %q", rule.Kind)
	}
	if rule.EmployerPercent < 0 || rule.EmployerPercent > 100 {
		return configErr(code, rule.Name, "employer percent must be between 0 and 100, got %v", rule.EmployerPercent)
	}
	return nil
}

func validateBrackets(code, name string, brackets []Bracket) error {
	if len(brackets) == 0 {
		return configErr(code, name, "progressive rule requires at least one bracket")
	}

	var lastFlat Money
	for i, b := range brackets {
		if b.Min < 0 {
			return configErr(code, name, "bracket %d: min must not be negative", i)
		}
		if i == 0 && b.Min != 0 {
			return configErr(code, name, "first bracket must start at 0")
		}
		if i > 0 {
			prev := brackets[i-1]
			if prev.Max == nil {
				return configErr(code, name, "bracket %d: open-ended band must be last", i-1)
			}
			if b.Min != *prev.Max+1 {
				return configErr(code, name, "bracket %d: min %d is not contiguous with previous max %d", i, b.Min, *prev.Max)
			}
		}
		if b.Max != nil && *b.Max <= b.Min {
			return configErr(code, name, "bracket %d: max %d must exceed min %d", i, *b.Max, b.Min)
		}
		switch b.RateKind {
		case RatePercentage:
			if b.Percent < 0 || b.Percent > 100 {
				return configErr(code, name, "bracket %d: percent must be between 0 and 100, got %v", i, b.Percent)
			}
			if b.Amount != 0 {
				return configErr(code, name, "bracket %d: percentage band must not carry a flat amount", i)
			}
		case RateFlatAmount:
			if b.Amount < 0 {
				return configErr(code, name, "bracket %d: flat amount must not be negative", i)
			}
			if b.Amount < lastFlat {
				return configErr(code, name, "bracket %d: flat amounts must not decrease", i)
			}
			lastFlat = b.Amount
			if b.Percent != 0 {
				return configErr(code, name, "bracket %d: flat band must not carry a percent", i)
			}
		default:
			return configErr(code, name, "bracket %d: unknown rate kind %q", i, b.RateKind)
		}
	}

	if brackets[len(brackets)-1].Max != nil {
		return configErr(code, name, "last bracket must be open-ended")
	}
	return nil
}
