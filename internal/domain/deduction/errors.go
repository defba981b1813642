package deduction

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeGross       = errors.New("gross pay must not be negative")
	ErrUnknownJurisdiction = errors.New("unknown jurisdiction")
)

// ConfigError reports a rule table that fails its invariants at load time.
// Bad configuration is rejected before any computation runs, never tolerated
// mid-run.
type ConfigError struct {
	Jurisdiction string
	Rule         string
	Reason       string
}

func (e *ConfigError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("jurisdiction %s: %s", e.Jurisdiction, e.Reason)
	}
	return fmt.Sprintf("jurisdiction %s, rule %q: %s", e.Jurisdiction, e.Rule, e.Reason)
}

func configErr(jurisdiction, rule, format string, args ...any) error {
	return &ConfigError{
		Jurisdiction: jurisdiction,
		Rule:         rule,
		Reason:       fmt.Sprintf(format, args...),
	}
}
