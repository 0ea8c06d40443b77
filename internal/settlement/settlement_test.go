package settlement

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/gestor360/commission/internal/domain"
)

func f(v float64) *float64 { return &v }

func tiers() []domain.CommissionRule {
	return []domain.CommissionRule{
		{ID: "low", MinPercent: nil, MaxPercent: f(9.99), CommissionRate: 0.01, IsActive: true},
		{ID: "high", MinPercent: f(10), CommissionRate: 0.03, IsActive: true},
	}
}

func avistaRule() *domain.AvistaRuleConfig {
	return &domain.AvistaRuleConfig{Enabled: true, CommissionPct: 25, PaymentTypesAllowed: []string{"A VISTA"}}
}

func metaCampaign() *domain.Campaign {
	return &domain.Campaign{
		ID:         "meta",
		Type:       domain.CampaignGoalLowMargin,
		Active:     true,
		StartMonth: "2025-01",
		Rules: domain.CampaignRules{
			MaxMarginExclusive: 4,
			Tiers:              []domain.CampaignTier{{From: 0, To: 3.99, CommissionPct: 12}},
		},
	}
}

func TestProcessor(t *testing.T) {
	proc := NewProcessor()
	ctx := context.Background()
	date := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

	t.Run("BaseOnly", func(t *testing.T) {
		sale := &domain.Sale{ID: "s-1", Quantity: 10, ValueProposed: 100, MarginPercent: 15, PaymentMethod: "Boleto", Date: date}
		out := proc.Process(ctx, &Input{
			TenantID:  "company-001",
			TraceID:   "trace-001",
			Sale:      sale,
			Rules:     tiers(),
			StartTime: time.Now(),
		})

		if out.Overlay != nil {
			t.Fatalf("unexpected overlay %+v", out.Overlay)
		}
		if out.CommissionBaseTotal != 1000 || math.Abs(out.CommissionValueTotal-30) > 1e-9 || out.CommissionRateUsed != 0.03 {
			t.Errorf("outcome = %+v", out)
		}
		if out.Month != "2025-05" {
			t.Errorf("Month = %q, want 2025-05", out.Month)
		}
		if out.SaleID != "s-1" || out.TenantID != "company-001" || out.Metadata.TraceID != "trace-001" {
			t.Errorf("identity fields = %s/%s/%s", out.SaleID, out.TenantID, out.Metadata.TraceID)
		}
		if out.Metadata.RulesConsidered != 2 || out.Metadata.EngineVersion == "" || out.Metadata.ContractVersion == "" {
			t.Errorf("metadata = %+v", out.Metadata)
		}
		if HasOverlay(out) {
			t.Error("HasOverlay = true")
		}
		if Summary(out) != "Comissão base • 3,00%" {
			t.Errorf("Summary = %q", Summary(out))
		}
	})

	t.Run("AvistaRuleTakesPrecedence", func(t *testing.T) {
		sale := &domain.Sale{Quantity: 4, ValueProposed: 250, MarginPercent: 2, PaymentMethod: "À Vista", Date: date}
		out := proc.Process(ctx, &Input{
			TenantID:     "company-001",
			Sale:         sale,
			Rules:        tiers(),
			AvistaRule:   avistaRule(),
			Campaigns:    []*domain.Campaign{metaCampaign()},
			GoalProgress: &domain.GoalProgress{Target: 10, Current: 20, Hit: true},
		})

		if !HasOverlay(out) || out.Overlay.CampaignTag != domain.TagAvista {
			t.Fatalf("overlay = %+v, want avista", out.Overlay)
		}
		if math.Abs(out.CommissionValueTotal-250) > 1e-9 || out.CommissionRateUsed != 0.25 {
			t.Errorf("totals = %v / %v", out.CommissionValueTotal, out.CommissionRateUsed)
		}
		if math.Abs(out.Base.CommissionValue-10) > 1e-9 {
			t.Errorf("base value = %v, want 10", out.Base.CommissionValue)
		}
		if out.Metadata.CampaignsActive != 1 {
			t.Errorf("CampaignsActive = %d", out.Metadata.CampaignsActive)
		}
	})

	t.Run("AvistaOverlayEndToEnd", func(t *testing.T) {
		rules := []domain.CommissionRule{
			{ID: "t1", MinPercent: f(0), MaxPercent: f(2.50), CommissionRate: 0.05, IsActive: true},
			{ID: "t2", MinPercent: f(2.51), MaxPercent: f(4.00), CommissionRate: 0.10, IsActive: true},
			{ID: "t3", MinPercent: f(4.01), CommissionRate: 0.15, IsActive: true},
		}
		rule := &domain.AvistaRuleConfig{
			Enabled:             true,
			CommissionPct:       25,
			PaymentTypesAllowed: []string{"À vista / Antecipado"},
		}
		sale := &domain.Sale{Quantity: 1, ValueProposed: 1000, MarginPercent: 1, PaymentMethod: "À vista / Antecipado", Date: date}
		out := proc.Process(ctx, &Input{
			TenantID:   "company-001",
			Sale:       sale,
			Rules:      rules,
			AvistaRule: rule,
		})

		if out.Base.CommissionBase != 1000 || out.Base.RateUsed != 0.05 || math.Abs(out.Base.CommissionValue-50) > 1e-9 {
			t.Errorf("base = %+v, want {1000 50 0.05}", out.Base)
		}
		if !HasOverlay(out) || out.Overlay.CampaignTag != domain.TagAvista {
			t.Fatalf("overlay = %+v, want avista", out.Overlay)
		}
		if math.Abs(out.CommissionValueTotal-250) > 1e-9 {
			t.Errorf("CommissionValueTotal = %v, want 250", out.CommissionValueTotal)
		}
		if out.Overlay.CampaignMessage != "Premiação À Vista • 25,00%" {
			t.Errorf("CampaignMessage = %q", out.Overlay.CampaignMessage)
		}
	})

	t.Run("CampaignOverlayWhenAvistaRuleMisses", func(t *testing.T) {
		sale := &domain.Sale{Quantity: 4, ValueProposed: 250, MarginPercent: 2, PaymentMethod: "Boleto", Date: date}
		out := proc.Process(ctx, &Input{
			Sale:         sale,
			Rules:        tiers(),
			AvistaRule:   avistaRule(),
			Campaigns:    []*domain.Campaign{metaCampaign()},
			GoalProgress: &domain.GoalProgress{Target: 10, Current: 20, Hit: true},
		})

		if !HasOverlay(out) || out.Overlay.CampaignTag != domain.TagMeta {
			t.Fatalf("overlay = %+v, want meta", out.Overlay)
		}
		if math.Abs(out.CommissionValueTotal-120) > 1e-9 {
			t.Errorf("CommissionValueTotal = %v, want 120", out.CommissionValueTotal)
		}
		if out.GoalProgress == nil || !out.GoalProgress.Hit {
			t.Errorf("GoalProgress = %+v", out.GoalProgress)
		}
	})

	t.Run("ExplicitMonthOverridesSaleDate", func(t *testing.T) {
		sale := &domain.Sale{Quantity: 1, ValueProposed: 100, MarginPercent: 2, Date: date}
		out := proc.Process(ctx, &Input{
			Sale:         sale,
			Month:        "2024-12",
			Rules:        tiers(),
			Campaigns:    []*domain.Campaign{metaCampaign()},
			GoalProgress: &domain.GoalProgress{Target: 1, Current: 1, Hit: true},
		})
		if out.Overlay != nil {
			t.Errorf("campaign starting 2025-01 applied to 2024-12: %+v", out.Overlay)
		}
	})

	t.Run("ConflictingTiersStillSettle", func(t *testing.T) {
		rules := []domain.CommissionRule{
			{ID: "a", MinPercent: f(0), MaxPercent: f(10), CommissionRate: 0.01, IsActive: true},
			{ID: "b", MinPercent: f(5), MaxPercent: f(20), CommissionRate: 0.02, IsActive: true},
		}
		sale := &domain.Sale{Quantity: 2, ValueProposed: 50, MarginPercent: 7, Date: date}
		out := proc.Process(ctx, &Input{Sale: sale, Rules: rules})
		if out.CommissionBaseTotal != 100 || out.CommissionValueTotal != 0 {
			t.Errorf("outcome = %+v", out)
		}
	})

	t.Run("NilSale", func(t *testing.T) {
		out := proc.Process(ctx, &Input{TenantID: "company-001"})
		if out == nil || out.CommissionBaseTotal != 0 {
			t.Errorf("outcome = %+v", out)
		}
	})
}
