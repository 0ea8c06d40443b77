package commission

import (
	"math"
	"testing"

	"github.com/gestor360/commission/internal/domain"
)

func f(v float64) *float64 { return &v }

func rule(id string, min, max *float64, rate float64) domain.CommissionRule {
	return domain.CommissionRule{ID: id, MinPercent: min, MaxPercent: max, CommissionRate: rate, IsActive: true}
}

func TestComputeCommissionValues(t *testing.T) {
	table := []domain.CommissionRule{
		rule("low", f(0), f(9.99), 0.01),
		rule("mid", f(10), f(19.99), 0.02),
		rule("high", f(20), nil, 0.03),
	}

	tests := []struct {
		name      string
		margin    float64
		wantRate  float64
		wantValue float64
	}{
		{"lower bound inclusive", 0, 0.01, 10},
		{"upper bound inclusive", 9.99, 0.01, 10},
		{"gap between tiers", 9.995, 0, 0},
		{"middle tier", 15, 0.02, 20},
		{"open upper bound", 250, 0.03, 30},
		{"below every tier", -1, 0, 0},
		{"nan margin", math.NaN(), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCommissionValues(10, 100, tt.margin, table)
			if got.CommissionBase != 1000 {
				t.Errorf("CommissionBase = %v, want 1000", got.CommissionBase)
			}
			if got.RateUsed != tt.wantRate {
				t.Errorf("RateUsed = %v, want %v", got.RateUsed, tt.wantRate)
			}
			if math.Abs(got.CommissionValue-tt.wantValue) > 1e-9 {
				t.Errorf("CommissionValue = %v, want %v", got.CommissionValue, tt.wantValue)
			}
		})
	}
}

func TestComputeCommissionValues_DefaultTable(t *testing.T) {
	table := []domain.CommissionRule{
		rule("t1", f(0), f(2.50), 0.05),
		rule("t2", f(2.51), f(4.00), 0.10),
		rule("t3", f(4.01), nil, 0.15),
	}

	tests := []struct {
		margin   float64
		wantRate float64
	}{
		{0, 0.05},
		{2.50, 0.05},
		{2.51, 0.10},
		{3.999, 0.10},
		{4.00, 0.10},
		{4.01, 0.15},
		{100, 0.15},
	}

	for _, tt := range tests {
		got := ComputeCommissionValues(10, 100, tt.margin, table)
		if got.CommissionBase != 1000 {
			t.Errorf("margin %v: CommissionBase = %v, want 1000", tt.margin, got.CommissionBase)
		}
		if got.RateUsed != tt.wantRate {
			t.Errorf("margin %v: RateUsed = %v, want %v", tt.margin, got.RateUsed, tt.wantRate)
		}
		if math.Abs(got.CommissionValue-1000*tt.wantRate) > 1e-9 {
			t.Errorf("margin %v: CommissionValue = %v, want %v", tt.margin, got.CommissionValue, 1000*tt.wantRate)
		}
	}
}

func TestComputeCommissionValues_OpenLowerBound(t *testing.T) {
	rules := []domain.CommissionRule{
		rule("floor", nil, f(5), 0.005),
		rule("rest", f(5.01), nil, 0.01),
	}

	got := ComputeCommissionValues(1, 1000, -30, rules)
	if got.RateUsed != 0.005 {
		t.Errorf("RateUsed = %v, want 0.005", got.RateUsed)
	}
}

func TestComputeCommissionValues_ConflictYieldsZero(t *testing.T) {
	tests := []struct {
		name  string
		rules []domain.CommissionRule
	}{
		{
			name: "overlapping ranges",
			rules: []domain.CommissionRule{
				rule("a", f(0), f(10), 0.01),
				rule("b", f(5), f(15), 0.02),
			},
		},
		{
			name: "shared boundary",
			rules: []domain.CommissionRule{
				rule("a", f(0), f(10), 0.01),
				rule("b", f(10), f(20), 0.02),
			},
		},
		{
			name: "two open lower bounds",
			rules: []domain.CommissionRule{
				rule("a", nil, f(10), 0.01),
				rule("b", nil, f(3), 0.02),
			},
		},
		{
			name: "open upper bound followed by another tier",
			rules: []domain.CommissionRule{
				rule("a", f(0), nil, 0.01),
				rule("b", f(50), f(60), 0.02),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, margin := range []float64{0, 3, 7, 12, 55} {
				got := ComputeCommissionValues(2, 50, margin, tt.rules)
				if got.CommissionBase != 100 {
					t.Errorf("margin %v: CommissionBase = %v, want 100", margin, got.CommissionBase)
				}
				if got.RateUsed != 0 || got.CommissionValue != 0 {
					t.Errorf("margin %v: got rate %v value %v, want zero", margin, got.RateUsed, got.CommissionValue)
				}
			}
			if !DetectTierConflict(tt.rules) {
				t.Error("DetectTierConflict = false, want true")
			}
		})
	}
}

func TestComputeCommissionValues_OrderIndependent(t *testing.T) {
	a := []domain.CommissionRule{
		rule("1", f(0), f(4.99), 0.01),
		rule("2", f(5), f(9.99), 0.02),
		rule("3", f(10), nil, 0.04),
	}
	b := []domain.CommissionRule{a[2], a[0], a[1]}

	for _, margin := range []float64{0, 4.99, 5, 7.5, 10, 99} {
		ra := ComputeCommissionValues(3, 33, margin, a)
		rb := ComputeCommissionValues(3, 33, margin, b)
		if ra != rb {
			t.Errorf("margin %v: results differ by order: %+v vs %+v", margin, ra, rb)
		}
	}
}

func TestComputeCommissionValues_DoesNotMutateInput(t *testing.T) {
	rules := []domain.CommissionRule{
		rule("b", f(10), nil, 0.02),
		rule("a", f(0), f(9.99), 0.01),
	}

	ComputeCommissionValues(1, 1, 5, rules)

	if rules[0].ID != "b" || rules[1].ID != "a" {
		t.Errorf("input reordered: %v, %v", rules[0].ID, rules[1].ID)
	}
}

func TestComputeCommissionValues_EmptyRules(t *testing.T) {
	got := ComputeCommissionValues(4, 25, 12, nil)
	if got.CommissionBase != 100 || got.CommissionValue != 0 || got.RateUsed != 0 {
		t.Errorf("got %+v, want base 100 and zero commission", got)
	}
}

func TestComputeCommissionValues_NaNInputsTreatedAsZero(t *testing.T) {
	got := ComputeCommissionValues(math.NaN(), 100, 5, []domain.CommissionRule{rule("a", nil, nil, 0.1)})
	if got.CommissionBase != 0 || got.CommissionValue != 0 {
		t.Errorf("got %+v, want zero base", got)
	}
	if got.RateUsed != 0.1 {
		t.Errorf("RateUsed = %v, want 0.1", got.RateUsed)
	}
}

func TestValidateTiers(t *testing.T) {
	t.Run("disjoint", func(t *testing.T) {
		err := ValidateTiers([]domain.CommissionRule{
			rule("a", f(0), f(9.99), 0.01),
			rule("b", f(10), nil, 0.02),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("overlap names both tiers", func(t *testing.T) {
		err := ValidateTiers([]domain.CommissionRule{
			rule("b", f(5), f(15), 0.02),
			rule("a", f(0), f(10), 0.01),
		})
		conflict, ok := err.(*TierConflictError)
		if !ok {
			t.Fatalf("error = %v, want *TierConflictError", err)
		}
		if conflict.RuleID != "b" || conflict.PreviousRuleID != "a" {
			t.Errorf("conflict = %+v, want b after a", conflict)
		}
	})
}

func TestActiveRules(t *testing.T) {
	rules := []domain.CommissionRule{
		rule("a", f(0), f(5), 0.01),
		{ID: "b", MinPercent: f(0), MaxPercent: f(5), CommissionRate: 0.5},
		rule("c", f(6), nil, 0.02),
	}

	active := ActiveRules(rules)
	if len(active) != 2 || active[0].ID != "a" || active[1].ID != "c" {
		t.Fatalf("ActiveRules = %+v", active)
	}
	if DetectTierConflict(active) {
		t.Error("inactive overlapping tier should not count once filtered")
	}
}
