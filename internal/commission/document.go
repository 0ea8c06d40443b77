package commission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gestor360/commission/internal/domain"
)

// ErrInvalidTierDocument is returned for tier documents that cannot be read.
var ErrInvalidTierDocument = errors.New("invalid commission tier document")

// tierDoc is one tier as stored or submitted. Both the short keys and the
// CommissionRule keys are accepted; the short keys win.
type tierDoc struct {
	ID   string   `json:"id,omitempty"`
	Min  *float64 `json:"min"`
	Max  *float64 `json:"max"`
	Rate *float64 `json:"rate,omitempty"`

	MinPercent     *float64 `json:"minPercent,omitempty"`
	MaxPercent     *float64 `json:"maxPercent,omitempty"`
	CommissionRate *float64 `json:"commissionRate,omitempty"`

	Active *bool `json:"isActive,omitempty"`
}

type nestedDoc struct {
	Tiers []tierDoc `json:"tiers"`
}

// DecodeTierDocument reads a commission table in any of its stored shapes:
// a single flat tier, an array of flat tiers, or {"tiers": [...]}.
// Tiers without an id are numbered in document order. A missing isActive
// means active.
func DecodeTierDocument(data []byte) ([]domain.CommissionRule, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidTierDocument)
	}

	var docs []tierDoc
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTierDocument, err)
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTierDocument, err)
		}
		if _, ok := fields["tiers"]; ok {
			var nested nestedDoc
			if err := json.Unmarshal(data, &nested); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidTierDocument, err)
			}
			docs = nested.Tiers
		} else {
			var flat tierDoc
			if err := json.Unmarshal(data, &flat); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidTierDocument, err)
			}
			docs = []tierDoc{flat}
		}
	default:
		return nil, fmt.Errorf("%w: expected object or array", ErrInvalidTierDocument)
	}

	rules := make([]domain.CommissionRule, 0, len(docs))
	for i, d := range docs {
		r := domain.CommissionRule{
			ID:         d.ID,
			MinPercent: firstSet(d.Min, d.MinPercent),
			MaxPercent: firstSet(d.Max, d.MaxPercent),
			IsActive:   d.Active == nil || *d.Active,
		}
		rate := firstSet(d.Rate, d.CommissionRate)
		if rate == nil {
			return nil, fmt.Errorf("%w: tier %d has no rate", ErrInvalidTierDocument, i+1)
		}
		r.CommissionRate = *rate
		if r.ID == "" {
			r.ID = fmt.Sprintf("tier-%d", i+1)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// EncodeTierDocument writes rules in the nested shape.
func EncodeTierDocument(rules []domain.CommissionRule) ([]byte, error) {
	doc := nestedDoc{Tiers: make([]tierDoc, 0, len(rules))}
	for _, r := range rules {
		rate := r.CommissionRate
		active := r.IsActive
		doc.Tiers = append(doc.Tiers, tierDoc{
			ID:     r.ID,
			Min:    r.MinPercent,
			Max:    r.MaxPercent,
			Rate:   &rate,
			Active: &active,
		})
	}
	return json.Marshal(doc)
}

func firstSet(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}
