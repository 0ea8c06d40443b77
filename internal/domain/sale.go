package domain

import "time"

// Sale is a recorded sale with its resolved commission.
type Sale struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	UserID      string `json:"userId"`
	ClientID    string `json:"clientId,omitempty"`
	ProductType string `json:"productType"`

	Quantity      float64   `json:"quantity"`
	ValueProposed float64   `json:"valueProposed"`
	ValueSold     float64   `json:"valueSold"`
	MarginPercent float64   `json:"marginPercent"`
	PaymentMethod string    `json:"paymentMethod"`
	Date          time.Time `json:"date"`

	CommissionBaseTotal  float64 `json:"commissionBaseTotal"`
	CommissionValueTotal float64 `json:"commissionValueTotal"`
	CommissionRateUsed   float64 `json:"commissionRateUsed"`
	CampaignTag          string  `json:"campaignTag,omitempty"`
	CampaignLabel        string  `json:"campaignLabel,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// ApplyOutcome copies the resolved commission onto the sale.
func (s *Sale) ApplyOutcome(o *CommissionOutcome) {
	s.CommissionBaseTotal = o.CommissionBaseTotal
	s.CommissionValueTotal = o.CommissionValueTotal
	s.CommissionRateUsed = o.CommissionRateUsed
	s.CampaignTag = ""
	s.CampaignLabel = ""
	if o.Overlay != nil {
		s.CampaignTag = o.Overlay.CampaignTag
		s.CampaignLabel = o.Overlay.CampaignLabel
	}
}
