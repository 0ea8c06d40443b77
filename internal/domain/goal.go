package domain

// GoalProgress is a user's monthly goal state, recomputed per evaluation.
type GoalProgress struct {
	Target  float64 `json:"target"`
	Current float64 `json:"current"`
	Hit     bool    `json:"hit"`
}

// GoalSnapshot is the stored state behind a seller's month: the target
// saved for that seller, if any, and the summed sale quantities. It holds
// nothing derived from campaigns, so it stays valid when they change.
type GoalSnapshot struct {
	StoredTarget *float64 `json:"storedTarget,omitempty"`
	Current      float64  `json:"current"`
}

// GoalTarget is a stored monthly target for one seller.
type GoalTarget struct {
	TenantID string  `json:"tenantId"`
	UserID   string  `json:"userId"`
	Month    string  `json:"month"` // YYYY-MM
	Target   float64 `json:"target"`
}

// GoalOverrides lets callers replace parts of the computed progress,
// e.g. a simulation counting the sale under evaluation.
type GoalOverrides struct {
	Target          *float64 `json:"target,omitempty"`
	Current         *float64 `json:"current,omitempty"`
	PendingQuantity float64  `json:"pendingQuantity,omitempty"`
}
