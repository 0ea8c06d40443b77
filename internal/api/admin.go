package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestor360/commission/internal/commission"
	"github.com/gestor360/commission/internal/domain"
)

var errInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, fmt.Sprintf(format, args...))
}

// ============================================================================
// COMMISSION TABLES
// ============================================================================

// TableResponse is a product type's commission tiers.
type TableResponse struct {
	ProductType string                  `json:"productType"`
	Tiers       []domain.CommissionRule `json:"tiers"`
}

// ListCommissionTables returns the product types the company has tables for.
func (h *Handler) ListCommissionTables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	types, err := h.repo.ListProductTypes(ctx, GetTenantID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	if types == nil {
		types = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"productTypes": types,
		"count":        len(types),
	})
}

// GetCommissionTable returns the company's own table for a product type.
func (h *Handler) GetCommissionTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	table, err := h.repo.GetCommissionTable(ctx, GetTenantID(ctx), chi.URLParam(r, "productType"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TableResponse{ProductType: table.ProductType, Tiers: table.Rules})
}

// PutCommissionTable replaces a product type's tiers. The body may be a
// single tier, an array of tiers or {"tiers": [...]}; overlapping active
// tiers are rejected.
func (h *Handler) PutCommissionTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	productType := chi.URLParam(r, "productType")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, invalid("failed to read body"))
		return
	}

	tiers, err := commission.DecodeTierDocument(body)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, t := range tiers {
		if t.CommissionRate < 0 {
			writeError(w, invalid("tier %s has a negative rate", t.ID))
			return
		}
		if t.MinPercent != nil && t.MaxPercent != nil && *t.MinPercent > *t.MaxPercent {
			writeError(w, invalid("tier %s has min above max", t.ID))
			return
		}
	}
	if err := commission.ValidateTiers(commission.ActiveRules(tiers)); err != nil {
		writeError(w, err)
		return
	}

	err = h.repo.SaveCommissionTable(ctx, tenantID, &domain.CommissionTable{
		TenantID:    tenantID,
		ProductType: productType,
		Rules:       tiers,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.calc.InvalidateTiers(ctx, tenantID, productType)

	slog.Info("commission table saved",
		"tenant_id", tenantID,
		"product_type", productType,
		"tier_count", len(tiers),
	)
	writeJSON(w, http.StatusOK, TableResponse{ProductType: productType, Tiers: tiers})
}

// ============================================================================
// CAMPAIGNS
// ============================================================================

// ListCampaigns returns the company's campaigns in creation order.
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.repo.ListCampaigns(ctx, GetTenantID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*domain.Campaign{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"campaigns": list,
		"count":     len(list),
	})
}

// GetCampaign returns a campaign by ID.
func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.repo.GetCampaign(ctx, GetTenantID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCampaign handles POST /campaigns.
func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var c domain.Campaign
	if !decodeJSON(w, r, &c) {
		return
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Time{}

	if !h.saveCampaign(w, r, tenantID, &c) {
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCampaign handles PUT /campaigns/{id}. The campaign must exist.
func (h *Handler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	id := chi.URLParam(r, "id")

	existing, err := h.repo.GetCampaign(ctx, tenantID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	var c domain.Campaign
	if !decodeJSON(w, r, &c) {
		return
	}
	c.ID = id
	c.CreatedAt = existing.CreatedAt

	if !h.saveCampaign(w, r, tenantID, &c) {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCampaign handles DELETE /campaigns/{id}.
func (h *Handler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	id := chi.URLParam(r, "id")

	if err := h.repo.DeleteCampaign(ctx, tenantID, id); err != nil {
		writeError(w, err)
		return
	}
	h.calc.InvalidateCampaigns(ctx, tenantID)

	slog.Info("campaign deleted", "tenant_id", tenantID, "campaign_id", id)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "campaign deleted",
	})
}

func (h *Handler) saveCampaign(w http.ResponseWriter, r *http.Request, tenantID string, c *domain.Campaign) bool {
	ctx := r.Context()

	if err := h.validateCampaign(c); err != nil {
		writeError(w, err)
		return false
	}
	if err := h.repo.SaveCampaign(ctx, tenantID, c); err != nil {
		writeError(w, err)
		return false
	}
	h.calc.InvalidateCampaigns(ctx, tenantID)

	saved, err := h.repo.GetCampaign(ctx, tenantID, c.ID)
	if err == nil {
		*c = *saved
	}

	slog.Info("campaign saved",
		"tenant_id", tenantID,
		"campaign_id", c.ID,
		"type", c.Type,
	)
	return true
}

func (h *Handler) validateCampaign(c *domain.Campaign) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("name is required")
	}
	if !c.Type.Valid() {
		return invalid("type must be %s or %s", domain.CampaignAvistaLowMargin, domain.CampaignGoalLowMargin)
	}
	if !commission.ValidMonth(c.StartMonth) {
		return invalid("startMonth must be YYYY-MM")
	}
	if c.EndMonth != "" {
		if !commission.ValidMonth(c.EndMonth) {
			return invalid("endMonth must be YYYY-MM")
		}
		if c.EndMonth < c.StartMonth {
			return invalid("endMonth is before startMonth")
		}
	}
	if c.Rules.MaxMarginExclusive <= c.Rules.MinMargin {
		return invalid("maxMarginExclusive must be above minMargin")
	}

	switch c.Type {
	case domain.CampaignAvistaLowMargin:
		if c.Rules.CommissionPct <= 0 {
			return invalid("commissionPct must be positive")
		}
	case domain.CampaignGoalLowMargin:
		if len(c.Rules.Tiers) == 0 {
			return invalid("at least one tier is required")
		}
		for i, t := range c.Rules.Tiers {
			if t.From > t.To {
				return invalid("tier %d has from above to", i+1)
			}
			if t.CommissionPct < 0 {
				return invalid("tier %d has a negative commissionPct", i+1)
			}
		}
		if c.GoalTarget < 0 {
			return invalid("goalTarget cannot be negative")
		}
	}

	if h.engine != nil {
		if err := h.engine.Validate(c.Eligibility); err != nil {
			return invalid("eligibility: %v", err)
		}
	}
	return nil
}

// ============================================================================
// SETTINGS
// ============================================================================

// GetAvistaRule returns the avista rule in effect for the company, which
// may be inherited from the global defaults.
func (h *Handler) GetAvistaRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, err := h.calc.AvistaRule(ctx, GetTenantID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	if cfg == nil {
		cfg = &domain.AvistaRuleConfig{PaymentTypesAllowed: []string{}}
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PutAvistaRule stores the company's avista rule.
func (h *Handler) PutAvistaRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var cfg domain.AvistaRuleConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}
	if cfg.CommissionPct < 0 {
		writeError(w, invalid("commissionPct cannot be negative"))
		return
	}

	if err := h.repo.SaveAvistaRuleConfig(ctx, tenantID, &cfg); err != nil {
		writeError(w, err)
		return
	}
	h.calc.InvalidateAvistaRule(ctx, tenantID)

	slog.Info("avista rule saved",
		"tenant_id", tenantID,
		"enabled", cfg.Enabled,
		"commission_pct", cfg.CommissionPct,
	)
	writeJSON(w, http.StatusOK, cfg)
}

// ============================================================================
// GOALS
// ============================================================================

// GoalRequest is the request body for PUT /goals/{userId}/{month}.
type GoalRequest struct {
	Target float64 `json:"target"`
}

// GetGoal returns a seller's progress toward the month's goal.
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, month, ok := goalParams(w, r)
	if !ok {
		return
	}

	gp, err := h.calc.Progress(ctx, GetTenantID(ctx), userID, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gp)
}

// PutGoal sets a seller's target for the month and returns the new progress.
func (h *Handler) PutGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	userID, month, ok := goalParams(w, r)
	if !ok {
		return
	}

	var req GoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Target < 0 {
		writeError(w, invalid("target cannot be negative"))
		return
	}

	if h.goals == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "goal tracking not available",
		})
		return
	}
	if err := h.goals.SetTarget(ctx, tenantID, userID, month, req.Target); err != nil {
		writeError(w, err)
		return
	}

	gp, err := h.calc.Progress(ctx, tenantID, userID, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gp)
}

func goalParams(w http.ResponseWriter, r *http.Request) (userID, month string, ok bool) {
	userID = chi.URLParam(r, "userId")
	month = chi.URLParam(r, "month")
	if userID == "" {
		writeError(w, invalid("userId is required"))
		return "", "", false
	}
	if !commission.ValidMonth(month) {
		writeError(w, invalid("month must be YYYY-MM"))
		return "", "", false
	}
	return userID, month, true
}
