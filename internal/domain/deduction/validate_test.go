package deduction

import (
	"strings"
	"testing"
)

func TestBuiltinTablesValid(t *testing.T) {
	if _, err := NewRegistry(Builtin()); err != nil {
		t.Fatalf("builtin tables failed validation: %v", err)
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	base := func(rules ...Rule) JurisdictionSet {
		return JurisdictionSet{Code: "XX", Currency: "XXX", Deductions: rules}
	}

	cases := []struct {
		name string
		set  JurisdictionSet
		want string
	}{
		{
			name: "no rules",
			set:  JurisdictionSet{Code: "XX", Currency: "XXX"},
			want: "at least one deduction rule",
		},
		{
			name: "duplicate rule names",
			set: base(
				Rule{Name: "PAYE", Kind: KindFixed, Amount: 1},
				Rule{Name: "PAYE", Kind: KindFixed, Amount: 2},
			),
			want: "duplicate rule name",
		},
		{
			name: "progressive without brackets",
			set:  base(Rule{Name: "PAYE", Kind: KindProgressive}),
			want: "requires at least one bracket",
		},
		{
			name: "non-contiguous brackets",
			set: base(Rule{Name: "PAYE", Kind: KindProgressive, Brackets: []Bracket{
				{Min: 0, Max: capped(1000), RateKind: RatePercentage, Percent: 0},
				{Min: 1002, Max: nil, RateKind: RatePercentage, Percent: 10},
			}}),
			want: "not contiguous",
		},
		{
			name: "closed top band",
			set: base(Rule{Name: "PAYE", Kind: KindProgressive, Brackets: []Bracket{
				{Min: 0, Max: capped(1000), RateKind: RatePercentage, Percent: 10},
			}}),
			want: "open-ended",
		},
		{
			name: "open band not last",
			set: base(Rule{Name: "PAYE", Kind: KindProgressive, Brackets: []Bracket{
				{Min: 0, Max: nil, RateKind: RatePercentage, Percent: 0},
				{Min: 1001, Max: nil, RateKind: RatePercentage, Percent: 10},
			}}),
			want: "must be last",
		},
		{
			name: "percent out of range",
			set:  base(Rule{Name: "NSSF", Kind: KindPercentage, Percent: 120}),
			want: "between 0 and 100",
		},
		{
			name: "kind field mismatch",
			set:  base(Rule{Name: "NSSF", Kind: KindFixed, Amount: 100, Percent: 5}),
			want: "must not carry",
		},
		{
			name: "decreasing flat amounts",
			set: base(Rule{Name: "NHIF", Kind: KindProgressive, Brackets: []Bracket{
				{Min: 0, Max: capped(1000), RateKind: RateFlatAmount, Amount: 200},
				{Min: 1001, Max: nil, RateKind: RateFlatAmount, Amount: 100},
			}}),
			want: "must not decrease",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.set.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %q", tc.want, err.Error())
			}
		})
	}
}

func TestConfigErrorNamesJurisdictionAndRule(t *testing.T) {
	set := JurisdictionSet{
		Code:       "KE",
		Currency:   "KES",
		Deductions: []Rule{{Name: "NHIF", Kind: KindProgressive}},
	}
	err := set.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "KE") || !strings.Contains(msg, "NHIF") {
		t.Fatalf("error should name jurisdiction and rule: %q", msg)
	}
}

func TestRegistryUnknownJurisdiction(t *testing.T) {
	registry, err := NewRegistry(Builtin())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := registry.Get("ZZ"); err == nil {
		t.Fatal("expected error for unknown jurisdiction")
	}
	if _, err := registry.Get("UG"); err != nil {
		t.Fatalf("unexpected error for UG: %v", err)
	}
}
