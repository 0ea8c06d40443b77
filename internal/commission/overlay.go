package commission

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gestor360/commission/internal/domain"
)

// AvistaMaxMarginExclusive is the upper bound of the low-margin band of the
// global avista rule. The lower bound is 0, inclusive.
const AvistaMaxMarginExclusive = 4.0

// OverlayContext carries what the campaign overlay needs beyond the sale.
type OverlayContext struct {
	Campaigns    []*domain.Campaign
	Month        string // YYYY-MM
	GoalProgress *domain.GoalProgress
}

// ApplyAvistaLowMarginRule applies the global flat rate to low-margin sales
// paid with an allowed method. It returns nil when the rule is disabled,
// the margin is outside [0, 4) or the payment method is not allowed.
func ApplyAvistaLowMarginRule(sale *domain.Sale, base domain.CommissionResult, cfg *domain.AvistaRuleConfig) *domain.OverlayResult {
	if sale == nil || cfg == nil || !cfg.Enabled {
		return nil
	}

	margin := sale.MarginPercent
	if !(margin >= 0 && margin < AvistaMaxMarginExclusive) {
		return nil
	}

	if len(cfg.PaymentTypesAllowed) > 0 && !MatchesPaymentType(sale.PaymentMethod, cfg.PaymentTypesAllowed) {
		return nil
	}

	return avistaOverlay(base.CommissionBase, cfg.CommissionPct)
}

// ApplyCampaignOverlay applies at most one campaign to the sale. The first
// active avista campaign is tried first and wins if it matches; otherwise
// the first active goal campaign applies when the goal was hit and the
// margin falls in one of its tiers. Returns nil if nothing applies.
func ApplyCampaignOverlay(sale *domain.Sale, base domain.CommissionResult, oc OverlayContext) *domain.OverlayResult {
	if sale == nil {
		return nil
	}

	active := ActiveCampaigns(oc.Campaigns, oc.Month)
	if len(active) == 0 {
		return nil
	}

	margin := sale.MarginPercent

	if c := firstOfType(active, domain.CampaignAvistaLowMargin); c != nil {
		r := c.Rules
		if MatchesPaymentType(sale.PaymentMethod, r.PaymentTypesAllowed) &&
			margin >= r.MinMargin && margin < r.MaxMarginExclusive {
			return avistaOverlay(base.CommissionBase, r.CommissionPct)
		}
	}

	c := firstOfType(active, domain.CampaignGoalLowMargin)
	if c == nil || oc.GoalProgress == nil || !oc.GoalProgress.Hit {
		return nil
	}

	r := c.Rules
	if !(margin >= r.MinMargin && margin < r.MaxMarginExclusive) {
		return nil
	}

	for _, tier := range r.Tiers {
		if margin >= tier.From && margin <= tier.To {
			return metaOverlay(base.CommissionBase, tier)
		}
	}
	return nil
}

func firstOfType(campaigns []*domain.Campaign, t domain.CampaignType) *domain.Campaign {
	for _, c := range campaigns {
		if c.Type == t {
			return c
		}
	}
	return nil
}

func avistaOverlay(commissionBase, pct float64) *domain.OverlayResult {
	rate := pct / 100
	return &domain.OverlayResult{
		CommissionValueTotal: commissionBase * rate,
		CommissionRateUsed:   rate,
		CampaignTag:          domain.TagAvista,
		CampaignLabel:        domain.LabelAvista,
		CampaignMessage:      fmt.Sprintf("%s • %s%%", domain.LabelAvista, FormatPercent(pct)),
		CampaignRateUsed:     pct,
		CampaignColor:        domain.ColorAvista,
	}
}

func metaOverlay(commissionBase float64, tier domain.CampaignTier) *domain.OverlayResult {
	rate := tier.CommissionPct / 100
	return &domain.OverlayResult{
		CommissionValueTotal: commissionBase * rate,
		CommissionRateUsed:   rate,
		CampaignTag:          domain.TagMeta,
		CampaignLabel:        domain.LabelMeta,
		CampaignMessage: fmt.Sprintf("%s • %s%% (faixa %s%% - %s%%)",
			domain.LabelMeta,
			FormatPercent(tier.CommissionPct),
			FormatPercent(tier.From),
			FormatPercent(tier.To),
		),
		CampaignRateUsed: tier.CommissionPct,
		CampaignColor:    domain.ColorMeta,
	}
}

// FormatPercent renders v with two decimals and a comma separator, the
// pt-BR display convention ("25,00").
func FormatPercent(v float64) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	return strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
}
