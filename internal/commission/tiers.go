// Package commission implements the commission tier resolver and the
// campaign overlay evaluator.
//
// Every function in this package is pure: it reads its inputs, never
// mutates them, performs no I/O other than diagnostics logging and never
// returns an error. Bad configuration degrades to a zero commission so the
// sale can still be recorded.
//
// The observable behaviour of this package is a versioned contract
// (ContractVersion). Boundary semantics, the zero fallback on overlapping
// tiers and the overlay precedence must not change without bumping it.
package commission

import (
	"log/slog"
	"math"
	"sort"
	"strconv"

	"github.com/gestor360/commission/internal/domain"
)

// ContractVersion identifies the locked commission semantics.
const ContractVersion = "1"

// band is a CommissionRule with its open ends replaced by infinities.
type band struct {
	id   string
	min  float64
	max  float64
	rate float64
}

// ComputeCommissionValues resolves the base commission of a sale.
//
// The base is quantity × valueProposed regardless of the lookup outcome.
// Rules are sorted by lower bound; if any rule starts at or below the
// previous rule's upper bound the table is conflicting and the rate is 0.
// Otherwise the first rule with min <= margin <= max supplies the rate.
func ComputeCommissionValues(quantity, valueProposed, margin float64, rules []domain.CommissionRule) domain.CommissionResult {
	base := orZero(quantity) * orZero(valueProposed)

	bands := normalize(rules)

	if prev, cur, ok := firstConflict(bands); ok {
		slog.Error("commission tiers overlap",
			"rule_id", cur.id,
			"rule_min", boundString(cur.min),
			"previous_rule_id", prev.id,
			"previous_max", boundString(prev.max),
		)
		return domain.CommissionResult{CommissionBase: base}
	}

	rate := 0.0
	matched := false
	for _, b := range bands {
		if margin >= b.min && margin <= b.max {
			rate = b.rate
			matched = true
			break
		}
	}
	if !matched {
		slog.Warn("no commission tier matches margin",
			"margin", marginString(margin),
			"rules", len(bands),
		)
	}

	return domain.CommissionResult{
		CommissionBase:  base,
		CommissionValue: base * rate,
		RateUsed:        rate,
	}
}

// DetectTierConflict reports whether the rules overlap once sorted.
func DetectTierConflict(rules []domain.CommissionRule) bool {
	_, _, ok := firstConflict(normalize(rules))
	return ok
}

// ValidateTiers is the admin-facing form of the conflict detector. It
// returns a *TierConflictError naming the offending pair, or nil.
func ValidateTiers(rules []domain.CommissionRule) error {
	prev, cur, ok := firstConflict(normalize(rules))
	if !ok {
		return nil
	}
	return &TierConflictError{
		RuleID:         cur.id,
		PreviousRuleID: prev.id,
		Min:            cur.min,
		PreviousMax:    prev.max,
	}
}

// TierConflictError describes two overlapping tiers.
type TierConflictError struct {
	RuleID         string
	PreviousRuleID string
	Min            float64
	PreviousMax    float64
}

func (e *TierConflictError) Error() string {
	return "commission tier " + e.RuleID + " (min " + boundString(e.Min) +
		") overlaps tier " + e.PreviousRuleID + " (max " + boundString(e.PreviousMax) + ")"
}

// ActiveRules returns the rules flagged active, preserving order.
func ActiveRules(rules []domain.CommissionRule) []domain.CommissionRule {
	out := make([]domain.CommissionRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out
}

func normalize(rules []domain.CommissionRule) []band {
	bands := make([]band, 0, len(rules))
	for _, r := range rules {
		b := band{
			id:   r.ID,
			min:  math.Inf(-1),
			max:  math.Inf(1),
			rate: r.CommissionRate,
		}
		if r.MinPercent != nil {
			b.min = *r.MinPercent
		}
		if r.MaxPercent != nil {
			b.max = *r.MaxPercent
		}
		bands = append(bands, b)
	}

	sort.SliceStable(bands, func(i, j int) bool {
		return bands[i].min < bands[j].min
	})
	return bands
}

// firstConflict scans sorted bands pairwise.
func firstConflict(bands []band) (prev, cur band, ok bool) {
	for i := 1; i < len(bands); i++ {
		if bands[i].min <= bands[i-1].max {
			return bands[i-1], bands[i], true
		}
	}
	return band{}, band{}, false
}

// orZero maps NaN to 0, matching how missing numeric fields are read.
func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func boundString(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsInf(v, 1):
		return "+inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func marginString(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return boundString(v)
}
