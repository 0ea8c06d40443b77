package domain

import "time"

// CampaignType identifies the overlay strategy of a campaign.
type CampaignType string

const (
	// CampaignAvistaLowMargin pays a flat rate on low-margin cash sales.
	CampaignAvistaLowMargin CampaignType = "AVISTA_BAIXA_MARGEM"

	// CampaignGoalLowMargin pays tiered rates once the monthly goal is hit.
	CampaignGoalLowMargin CampaignType = "META_BAIXA_MARGEM"
)

// Valid reports whether t is a known campaign type.
func (t CampaignType) Valid() bool {
	return t == CampaignAvistaLowMargin || t == CampaignGoalLowMargin
}

// Campaign is a promotional commission overlay active over a month range.
type Campaign struct {
	ID         string        `json:"id"`
	TenantID   string        `json:"tenantId,omitempty"`
	Name       string        `json:"name"`
	Type       CampaignType  `json:"type"`
	Active     bool          `json:"active"`
	StartMonth string        `json:"startMonth"`         // YYYY-MM
	EndMonth   string        `json:"endMonth,omitempty"` // YYYY-MM, empty = open-ended
	Rules      CampaignRules `json:"rules"`

	// Eligibility is an optional CEL expression restricting which sales the
	// campaign sees. Empty means every sale.
	Eligibility string `json:"eligibility,omitempty"`

	// GoalTarget is the default monthly target for goal campaigns when no
	// per-user target is stored.
	GoalTarget float64 `json:"goalTarget,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// CampaignRules holds both rule shapes; which fields apply depends on the
// campaign type.
type CampaignRules struct {
	MinMargin          float64 `json:"minMargin"`
	MaxMarginExclusive float64 `json:"maxMarginExclusive"`

	// Avista
	CommissionPct       float64  `json:"commissionPct,omitempty"`
	PaymentTypesAllowed []string `json:"paymentTypesAllowed,omitempty"`

	// Meta
	Tiers []CampaignTier `json:"tiers,omitempty"`
}

// CampaignTier is an inclusive margin range of a goal campaign.
type CampaignTier struct {
	From          float64 `json:"from"`
	To            float64 `json:"to"`
	CommissionPct float64 `json:"commissionPct"`
}
