package commission

import (
	"errors"
	"testing"

	"github.com/gestor360/commission/internal/domain"
)

func TestDecodeTierDocument(t *testing.T) {
	t.Run("flat object", func(t *testing.T) {
		rules, err := DecodeTierDocument([]byte(`{"min": 0, "max": 9.99, "rate": 0.01}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rules) != 1 {
			t.Fatalf("got %d rules, want 1", len(rules))
		}
		r := rules[0]
		if r.ID != "tier-1" || !r.IsActive || r.CommissionRate != 0.01 {
			t.Errorf("rule = %+v", r)
		}
		if r.MinPercent == nil || *r.MinPercent != 0 || r.MaxPercent == nil || *r.MaxPercent != 9.99 {
			t.Errorf("bounds = %v..%v", r.MinPercent, r.MaxPercent)
		}
	})

	t.Run("array of flat objects", func(t *testing.T) {
		rules, err := DecodeTierDocument([]byte(`[
			{"min": 0, "max": 9.99, "rate": 0.01},
			{"id": "top", "min": 10, "max": null, "rate": 0.02, "isActive": false}
		]`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rules) != 2 {
			t.Fatalf("got %d rules, want 2", len(rules))
		}
		if rules[1].ID != "top" || rules[1].IsActive || rules[1].MaxPercent != nil {
			t.Errorf("second rule = %+v", rules[1])
		}
	})

	t.Run("nested tiers with rule keys", func(t *testing.T) {
		rules, err := DecodeTierDocument([]byte(`{"tiers": [
			{"minPercent": 0, "maxPercent": 4.99, "commissionRate": 0.005},
			{"minPercent": 5, "commissionRate": 0.01}
		]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rules) != 2 || rules[0].CommissionRate != 0.005 || rules[1].MaxPercent != nil {
			t.Errorf("rules = %+v", rules)
		}
	})

	t.Run("missing rate", func(t *testing.T) {
		_, err := DecodeTierDocument([]byte(`[{"min": 0, "max": 1}]`))
		if !errors.Is(err, ErrInvalidTierDocument) {
			t.Errorf("error = %v, want ErrInvalidTierDocument", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		for _, doc := range []string{``, `"x"`, `{"tiers": 3}`, `[1,2]`} {
			if _, err := DecodeTierDocument([]byte(doc)); !errors.Is(err, ErrInvalidTierDocument) {
				t.Errorf("DecodeTierDocument(%q) error = %v", doc, err)
			}
		}
	})
}

func TestEncodeTierDocument_RoundTripsThroughDecode(t *testing.T) {
	in := []domain.CommissionRule{
		rule("a", nil, f(4.99), 0.01),
		{ID: "b", MinPercent: f(5), CommissionRate: 0.02},
	}

	data, err := EncodeTierDocument(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeTierDocument(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("got %d rules", len(out))
	}
	if out[0].MinPercent != nil || *out[0].MaxPercent != 4.99 || !out[0].IsActive {
		t.Errorf("first = %+v", out[0])
	}
	if out[1].IsActive || out[1].MaxPercent != nil || *out[1].MinPercent != 5 {
		t.Errorf("second = %+v", out[1])
	}
}
