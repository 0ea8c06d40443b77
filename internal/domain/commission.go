package domain

// CommissionRule is one margin band of a product type's commission table.
// A nil MinPercent is unbounded below, a nil MaxPercent unbounded above.
type CommissionRule struct {
	ID             string   `json:"id"`
	MinPercent     *float64 `json:"minPercent"`
	MaxPercent     *float64 `json:"maxPercent"`
	CommissionRate float64  `json:"commissionRate"` // fraction, 0.05 = 5%
	IsActive       bool     `json:"isActive"`
}

// CommissionResult is the output of the tier lookup for one sale.
type CommissionResult struct {
	CommissionBase  float64 `json:"commissionBase"`
	CommissionValue float64 `json:"commissionValue"`
	RateUsed        float64 `json:"rateUsed"`
}

// CommissionTable is the stored tier set of one product type.
type CommissionTable struct {
	TenantID    string           `json:"tenantId"`
	ProductType string           `json:"productType"`
	Rules       []CommissionRule `json:"rules"`
}

// AvistaRuleConfig is the global, admin-tunable low-margin cash payment rule.
type AvistaRuleConfig struct {
	Enabled             bool     `json:"enabled" yaml:"enabled"`
	CommissionPct       float64  `json:"commissionPct" yaml:"commissionPct"`
	PaymentTypesAllowed []string `json:"paymentTypesAllowed" yaml:"paymentTypesAllowed"`
}

// OverlayResult is a promotional override of the base commission.
type OverlayResult struct {
	CommissionValueTotal float64 `json:"commissionValueTotal"`
	CommissionRateUsed   float64 `json:"commissionRateUsed"` // fraction
	CampaignTag          string  `json:"campaignTag"`
	CampaignLabel        string  `json:"campaignLabel"`
	CampaignMessage      string  `json:"campaignMessage"`
	CampaignRateUsed     float64 `json:"campaignRateUsed"` // percent, as configured
	CampaignColor        string  `json:"campaignColor"`
}

// Overlay tags and display colours.
const (
	TagAvista = "PREMIACAO_AVISTA"
	TagMeta   = "PREMIACAO_META"

	ColorAvista = "amber"
	ColorMeta   = "emerald"

	LabelAvista = "Premiação À Vista"
	LabelMeta   = "Premiação por Meta"
)
