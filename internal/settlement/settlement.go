// Package settlement turns a sale's tier lookup and promotional overlays
// into its final commission.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/gestor360/commission/internal/commission"
	"github.com/gestor360/commission/internal/domain"
)

// Processor applies overlay precedence and produces a CommissionOutcome.
type Processor struct {
	// EngineVersion is stamped on every outcome.
	EngineVersion string
}

// NewProcessor creates a processor with default settings.
func NewProcessor() *Processor {
	return &Processor{
		EngineVersion: "gestor360-commission-1.0",
	}
}

// Input contains all data needed to settle one sale. Callers resolve I/O
// (tables, settings, campaigns, goal progress) before calling Process.
type Input struct {
	TenantID string
	TraceID  string
	Sale     *domain.Sale
	Month    string // YYYY-MM, derived from the sale date when empty

	// Rules are the active tiers of the sale's product type.
	Rules []domain.CommissionRule

	AvistaRule   *domain.AvistaRuleConfig
	Campaigns    []*domain.Campaign
	GoalProgress *domain.GoalProgress

	StartTime time.Time
}

// Process resolves the base commission, then the global avista rule, then
// campaign overlays. The first overlay that applies replaces the base
// value and rate; the base amount is always kept.
func (p *Processor) Process(ctx context.Context, input *Input) *domain.CommissionOutcome {
	start := time.Now()

	sale := input.Sale
	if sale == nil {
		sale = &domain.Sale{}
	}

	month := input.Month
	if month == "" {
		month = commission.MonthKey(sale.Date)
	}

	base := commission.ComputeCommissionValues(sale.Quantity, sale.ValueProposed, sale.MarginPercent, input.Rules)

	overlay := commission.ApplyAvistaLowMarginRule(sale, base, input.AvistaRule)
	if overlay == nil {
		overlay = commission.ApplyCampaignOverlay(sale, base, commission.OverlayContext{
			Campaigns:    input.Campaigns,
			Month:        month,
			GoalProgress: input.GoalProgress,
		})
	}

	out := &domain.CommissionOutcome{
		SaleID:               sale.ID,
		TenantID:             input.TenantID,
		Month:                month,
		CommissionBaseTotal:  base.CommissionBase,
		CommissionValueTotal: base.CommissionValue,
		CommissionRateUsed:   base.RateUsed,
		Base:                 base,
		Overlay:              overlay,
		GoalProgress:         input.GoalProgress,
	}
	if overlay != nil {
		out.CommissionValueTotal = overlay.CommissionValueTotal
		out.CommissionRateUsed = overlay.CommissionRateUsed
	}

	startTime := input.StartTime
	if startTime.IsZero() {
		startTime = start
	}

	out.Metadata = domain.OutcomeMetadata{
		TraceID:         input.TraceID,
		RulesConsidered: len(input.Rules),
		CampaignsActive: len(commission.ActiveCampaigns(input.Campaigns, month)),
		DecisionMs:      time.Since(start).Milliseconds(),
		TotalMs:         time.Since(startTime).Milliseconds(),
		EngineVersion:   p.EngineVersion,
		ContractVersion: commission.ContractVersion,
	}

	return out
}

// HasOverlay returns true if a promotion replaced the base commission.
func HasOverlay(o *domain.CommissionOutcome) bool {
	return o != nil && o.Overlay != nil
}

// Summary is a one-line display text for an outcome.
func Summary(o *domain.CommissionOutcome) string {
	if o == nil {
		return ""
	}
	if o.Overlay != nil {
		return o.Overlay.CampaignMessage
	}
	return fmt.Sprintf("Comissão base • %s%%", commission.FormatPercent(o.CommissionRateUsed*100))
}
