package domain

// CommissionOutcome is the final commission for a sale after overlays.
type CommissionOutcome struct {
	SaleID               string  `json:"saleId,omitempty"`
	TenantID             string  `json:"tenantId"`
	Month                string  `json:"month"`
	CommissionBaseTotal  float64 `json:"commissionBaseTotal"`
	CommissionValueTotal float64 `json:"commissionValueTotal"`
	CommissionRateUsed   float64 `json:"commissionRateUsed"`

	// Base is the tier lookup before overlays.
	Base CommissionResult `json:"base"`

	// Overlay is nil when no promotion applied.
	Overlay *OverlayResult `json:"overlay,omitempty"`

	// GoalProgress is set when a goal campaign was considered.
	GoalProgress *GoalProgress `json:"goalProgress,omitempty"`

	Metadata OutcomeMetadata `json:"metadata"`
}

// OutcomeMetadata contains processing information.
type OutcomeMetadata struct {
	TraceID         string `json:"traceId,omitempty"`
	RulesConsidered int    `json:"rulesConsidered"`
	CampaignsActive int    `json:"campaignsActive"`
	DecisionMs      int64  `json:"decisionMs"`
	TotalMs         int64  `json:"totalMs"`
	EngineVersion   string `json:"engineVersion"`
	ContractVersion string `json:"contractVersion"`
}
