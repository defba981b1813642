package deduction

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

func capped(v Money) *Money { return &v }

// Builtin returns the statutory tables shipped with the server. Figures are
// the published monthly rates: Uganda PAYE/NSSF/local service tax, Kenya
// PAYE/NSSF/NHIF/affordable housing levy.
func Builtin() []JurisdictionSet {
	return []JurisdictionSet{
		{
			Code:                  "UG",
			Currency:              "UGX",
			ApplyFixedOnZeroGross: true,
			Deductions: []Rule{
				{
					Name:      "PAYE",
					Kind:      KindProgressive,
					Mandatory: true,
					AppliesTo: []Classification{ClassLocal, ClassExpatriate},
					Brackets: []Bracket{
						{Min: 0, Max: capped(235_000), RateKind: RatePercentage, Percent: 0},
						{Min: 235_001, Max: capped(335_000), RateKind: RatePercentage, Percent: 10},
						{Min: 335_001, Max: capped(410_000), RateKind: RatePercentage, Percent: 20},
						{Min: 410_001, Max: nil, RateKind: RatePercentage, Percent: 30},
					},
				},
				{
					Name:            "NSSF",
					Kind:            KindPercentage,
					Percent:         5,
					EmployerPercent: 10,
					Mandatory:       true,
					AppliesTo:       []Classification{ClassLocal},
				},
				{
					Name:      "Local Service Tax",
					Kind:      KindFixed,
					Amount:    10_000,
					Mandatory: true,
				},
			},
		},
		{
			Code:     "KE",
			Currency: "KES",
			Deductions: []Rule{
				{
					Name:      "PAYE",
					Kind:      KindProgressive,
					Mandatory: true,
					AppliesTo: []Classification{ClassLocal, ClassExpatriate},
					Brackets: []Bracket{
						{Min: 0, Max: capped(24_000), RateKind: RatePercentage, Percent: 10},
						{Min: 24_001, Max: capped(32_333), RateKind: RatePercentage, Percent: 25},
						{Min: 32_334, Max: capped(500_000), RateKind: RatePercentage, Percent: 30},
						{Min: 500_001, Max: capped(800_000), RateKind: RatePercentage, Percent: 32.5},
						{Min: 800_001, Max: nil, RateKind: RatePercentage, Percent: 35},
					},
				},
				{
					Name:            "NSSF",
					Kind:            KindPercentage,
					Percent:         6,
					EmployerPercent: 6,
					Mandatory:       true,
					AppliesTo:       []Classification{ClassLocal},
				},
				{
					Name:      "NHIF",
					Kind:      KindProgressive,
					Mandatory: true,
					Brackets: []Bracket{
						{Min: 0, Max: capped(5_999), RateKind: RateFlatAmount, Amount: 150},
						{Min: 6_000, Max: capped(7_999), RateKind: RateFlatAmount, Amount: 300},
						{Min: 8_000, Max: capped(11_999), RateKind: RateFlatAmount, Amount: 400},
						{Min: 12_000, Max: capped(14_999), RateKind: RateFlatAmount, Amount: 500},
						{Min: 15_000, Max: capped(19_999), RateKind: RateFlatAmount, Amount: 600},
						{Min: 20_000, Max: capped(24_999), RateKind: RateFlatAmount, Amount: 750},
						{Min: 25_000, Max: capped(29_999), RateKind: RateFlatAmount, Amount: 850},
						{Min: 30_000, Max: capped(34_999), RateKind: RateFlatAmount, Amount: 900},
						{Min: 35_000, Max: capped(39_999), RateKind: RateFlatAmount, Amount: 950},
						{Min: 40_000, Max: capped(44_999), RateKind: RateFlatAmount, Amount: 1_000},
						{Min: 45_000, Max: capped(49_999), RateKind: RateFlatAmount, Amount: 1_100},
						{Min: 50_000, Max: capped(59_999), RateKind: RateFlatAmount, Amount: 1_200},
						{Min: 60_000, Max: capped(69_999), RateKind: RateFlatAmount, Amount: 1_300},
						{Min: 70_000, Max: capped(79_999), RateKind: RateFlatAmount, Amount: 1_400},
						{Min: 80_000, Max: capped(89_999), RateKind: RateFlatAmount, Amount: 1_500},
						{Min: 90_000, Max: capped(99_999), RateKind: RateFlatAmount, Amount: 1_600},
						{Min: 100_000, Max: nil, RateKind: RateFlatAmount, Amount: 1_700},
					},
				},
				{
					Name:            "Housing Levy",
					Kind:            KindPercentage,
					Percent:         1.5,
					EmployerPercent: 1.5,
					Mandatory:       true,
				},
			},
		},
	}
}

// Registry holds the validated jurisdiction tables. Immutable after
// construction.
type Registry struct {
	sets map[string]JurisdictionSet
}

func NewRegistry(sets ...[]JurisdictionSet) (*Registry, error) {
	r := &Registry{sets: map[string]JurisdictionSet{}}
	for _, group := range sets {
		for _, set := range group {
			if err := set.Validate(); err != nil {
				return nil, err
			}
			r.sets[set.Code] = set
		}
	}
	return r, nil
}

func (r *Registry) Get(code string) (JurisdictionSet, error) {
	set, ok := r.sets[code]
	if !ok {
		return JurisdictionSet{}, fmt.Errorf("%w: %s", ErrUnknownJurisdiction, code)
	}
	return set, nil
}

func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.sets))
	for code := range r.sets {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LoadFile reads jurisdiction tables from a JSON file. Entries override the
// built-in table with the same code.
func LoadFile(path string) ([]JurisdictionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sets []JurisdictionSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return sets, nil
}
