package deduction

import (
	"errors"
	"testing"
)

func ugandaPAYE(t *testing.T) Rule {
	t.Helper()
	for _, set := range Builtin() {
		if set.Code != "UG" {
			continue
		}
		for _, rule := range set.Deductions {
			if rule.Name == "PAYE" {
				return rule
			}
		}
	}
	t.Fatal("uganda PAYE rule missing from builtin tables")
	return Rule{}
}

func kenyaSet(t *testing.T) JurisdictionSet {
	t.Helper()
	for _, set := range Builtin() {
		if set.Code == "KE" {
			return set
		}
	}
	t.Fatal("kenya set missing from builtin tables")
	return JurisdictionSet{}
}

func TestUgandaPAYEBoundaries(t *testing.T) {
	brackets := ugandaPAYE(t).Brackets

	cases := []struct {
		gross Money
		want  Money
	}{
		{0, 0},
		{100_000, 0},
		{235_000, 0},
		{235_001, 0},
		{236_001, 100},
		{335_000, 9_999},
		{335_001, 9_999},
		{410_000, 9_999 + 14_999},
		{500_000, 9_999 + 14_999 + 26_999},
	}
	for _, tc := range cases {
		got := CalculateProgressiveTax(tc.gross, brackets)
		if got != tc.want {
			t.Fatalf("tax(%d): expected %d, got %d", tc.gross, tc.want, got)
		}
	}
}

func TestProgressiveTaxMonotonic(t *testing.T) {
	brackets := ugandaPAYE(t).Brackets

	var prev Money
	for gross := Money(0); gross <= 1_000_000; gross += 1_117 {
		tax := CalculateProgressiveTax(gross, brackets)
		if tax < prev {
			t.Fatalf("tax decreased from %d to %d at gross %d", prev, tax, gross)
		}
		prev = tax
	}
}

func TestNHIFFlatBands(t *testing.T) {
	var nhif Rule
	for _, rule := range kenyaSet(t).Deductions {
		if rule.Name == "NHIF" {
			nhif = rule
		}
	}

	cases := []struct {
		gross Money
		want  Money
	}{
		{0, 0},
		{1, 150},
		{5_999, 150},
		{6_000, 150},
		{6_001, 300},
		{49_999, 1_100},
		{50_000, 1_100},
		{50_001, 1_200},
		{250_000, 1_700},
	}
	for _, tc := range cases {
		got := CalculateProgressiveTax(tc.gross, nhif.Brackets)
		if got != tc.want {
			t.Fatalf("nhif(%d): expected %d, got %d", tc.gross, tc.want, got)
		}
	}
}

func TestFixedDeductionInvariance(t *testing.T) {
	rule := Rule{Name: "Local Service Tax", Kind: KindFixed, Amount: 10_000}

	for _, gross := range []Money{0, 1, 150_000, 10_000_000} {
		got, err := CalculateDeduction(gross, rule)
		if err != nil {
			t.Fatalf("unexpected error at gross %d: %v", gross, err)
		}
		if got != 10_000 {
			t.Fatalf("fixed deduction at gross %d: expected 10000, got %d", gross, got)
		}
	}
}

func TestPercentageDeduction(t *testing.T) {
	rule := Rule{Name: "Housing Levy", Kind: KindPercentage, Percent: 1.5}
	got, err := CalculateDeduction(50_000, rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 750 {
		t.Fatalf("expected 750, got %d", got)
	}
}

func TestNegativeGrossRejected(t *testing.T) {
	rule := Rule{Name: "NSSF", Kind: KindPercentage, Percent: 6}
	if _, err := CalculateDeduction(-1, rule); !errors.Is(err, ErrNegativeGross) {
		t.Fatalf("expected ErrNegativeGross, got %v", err)
	}
	if _, err := ComputePayItem(-1, kenyaSet(t), nil); !errors.Is(err, ErrNegativeGross) {
		t.Fatalf("expected ErrNegativeGross, got %v", err)
	}
}

func TestComputePayItemKenyaLocal(t *testing.T) {
	set := kenyaSet(t)
	result, err := ComputePayItem(50_000, set, ForClassification(ClassLocal, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]Money{
		"PAYE":         9_782,
		"NSSF":         3_000,
		"NHIF":         1_100,
		"Housing Levy": 750,
	}
	if len(result.Deductions) != len(want) {
		t.Fatalf("expected %d deduction lines, got %d", len(want), len(result.Deductions))
	}
	var total Money
	for _, line := range result.Deductions {
		expected, ok := want[line.RuleName]
		if !ok {
			t.Fatalf("unexpected deduction %q", line.RuleName)
		}
		if line.Amount != expected {
			t.Fatalf("%s: expected %d, got %d", line.RuleName, expected, line.Amount)
		}
		total += line.Amount
	}

	if result.TotalDeductions != total {
		t.Fatalf("total deductions %d does not match itemized sum %d", result.TotalDeductions, total)
	}
	if result.Net != result.Gross-result.TotalDeductions {
		t.Fatalf("net %d does not equal gross %d minus deductions %d", result.Net, result.Gross, result.TotalDeductions)
	}
	if result.Net != 35_368 {
		t.Fatalf("expected net 35368, got %d", result.Net)
	}

	// NSSF 6% + housing levy 1.5% employer side.
	if result.EmployerContributions != 3_000+750 {
		t.Fatalf("expected employer contributions 3750, got %d", result.EmployerContributions)
	}
}

func TestComputePayItemExpatriateSkipsNSSF(t *testing.T) {
	result, err := ComputePayItem(50_000, kenyaSet(t), ForClassification(ClassExpatriate, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, line := range result.Deductions {
		if line.RuleName == "NSSF" {
			t.Fatal("NSSF must not apply to expatriates")
		}
	}
}

func TestComputePayItemExempt(t *testing.T) {
	result, err := ComputePayItem(50_000, kenyaSet(t), ForClassification(ClassExempt, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Deductions) != 0 {
		t.Fatalf("exempt employee should have no deductions, got %d", len(result.Deductions))
	}
	if result.Net != 50_000 {
		t.Fatalf("expected net 50000, got %d", result.Net)
	}
}

func TestComputePayItemOverride(t *testing.T) {
	overrides := map[string]bool{"NSSF": true}
	result, err := ComputePayItem(50_000, kenyaSet(t), ForClassification(ClassExpatriate, overrides))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, line := range result.Deductions {
		if line.RuleName == "NSSF" {
			found = true
		}
	}
	if !found {
		t.Fatal("override should force NSSF onto an expatriate")
	}
}

func TestZeroGrossFixedPolicy(t *testing.T) {
	set := JurisdictionSet{
		Code:                  "UG",
		Currency:              "UGX",
		ApplyFixedOnZeroGross: true,
		Deductions:            []Rule{{Name: "Local Service Tax", Kind: KindFixed, Amount: 10_000}},
	}

	result, err := ComputePayItem(0, set, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalDeductions != 10_000 {
		t.Fatalf("expected levy applied at zero gross, got %d", result.TotalDeductions)
	}
	if result.Net != -10_000 {
		t.Fatalf("expected net -10000, got %d", result.Net)
	}

	set.ApplyFixedOnZeroGross = false
	result, err = ComputePayItem(0, set, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalDeductions != 0 {
		t.Fatalf("expected levy skipped at zero gross, got %d", result.TotalDeductions)
	}
}
