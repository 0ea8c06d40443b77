package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gestor360/commission/internal/cache"
	"github.com/gestor360/commission/internal/commission"
	"github.com/gestor360/commission/internal/domain"
	"github.com/gestor360/commission/internal/repository"
)

// ActiveTiers returns the active tiers of a product type. A tenant without
// its own table inherits the global one; no table at all yields no tiers.
func (c *Calculator) ActiveTiers(ctx context.Context, tenantID, productType string) ([]domain.CommissionRule, error) {
	key := cache.TierKey(productType)
	if data := c.cached(ctx, tenantID, key); data != nil {
		if rules, err := commission.DecodeTierDocument(data); err == nil {
			return rules, nil
		}
	}

	var rules []domain.CommissionRule
	table, err := withGlobal(tenantID, func(tid string) (*domain.CommissionTable, error) {
		return c.repo.GetCommissionTable(ctx, tid, productType)
	})
	switch {
	case err == nil:
		rules = commission.ActiveRules(table.Rules)
	case errors.Is(err, repository.ErrNotFound):
		// no table: zero commission
	default:
		return nil, fmt.Errorf("failed to load commission table: %w", err)
	}

	if doc, err := commission.EncodeTierDocument(rules); err == nil {
		c.store(ctx, tenantID, key, doc)
	}
	return rules, nil
}

// AvistaRule returns the tenant's avista rule, falling back to the global
// one. nil means the rule is not configured.
func (c *Calculator) AvistaRule(ctx context.Context, tenantID string) (*domain.AvistaRuleConfig, error) {
	key := cache.AvistaRuleKey()
	if data := c.cached(ctx, tenantID, key); data != nil {
		var cfg *domain.AvistaRuleConfig
		if err := json.Unmarshal(data, &cfg); err == nil {
			return cfg, nil
		}
	}

	cfg, err := withGlobal(tenantID, func(tid string) (*domain.AvistaRuleConfig, error) {
		return c.repo.GetAvistaRuleConfig(ctx, tid)
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load avista rule: %w", err)
	}

	if data, err := json.Marshal(cfg); err == nil {
		c.store(ctx, tenantID, key, data)
	}
	return cfg, nil
}

// Campaigns returns the tenant's campaigns followed by the global ones,
// each in creation order.
func (c *Calculator) Campaigns(ctx context.Context, tenantID string) ([]*domain.Campaign, error) {
	key := cache.CampaignsKey()
	if data := c.cached(ctx, tenantID, key); data != nil {
		var list []*domain.Campaign
		if err := json.Unmarshal(data, &list); err == nil {
			return list, nil
		}
	}

	list, err := c.repo.ListCampaigns(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	if tenantID != domain.GlobalTenantID {
		global, err := c.repo.ListCampaigns(ctx, domain.GlobalTenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to list global campaigns: %w", err)
		}
		list = append(list, global...)
	}

	if data, err := json.Marshal(list); err == nil {
		c.store(ctx, tenantID, key, data)
	}
	return list, nil
}

// InvalidateTiers drops the mirrored tiers of a product type.
func (c *Calculator) InvalidateTiers(ctx context.Context, tenantID, productType string) {
	c.drop(ctx, tenantID, cache.TierKey(productType))
}

// InvalidateCampaigns drops the mirrored campaign list.
func (c *Calculator) InvalidateCampaigns(ctx context.Context, tenantID string) {
	c.drop(ctx, tenantID, cache.CampaignsKey())
}

// InvalidateAvistaRule drops the mirrored avista rule.
func (c *Calculator) InvalidateAvistaRule(ctx context.Context, tenantID string) {
	c.drop(ctx, tenantID, cache.AvistaRuleKey())
}

// withGlobal runs get for the tenant, then for the global tenant when the
// tenant has no record.
func withGlobal[T any](tenantID string, get func(tenantID string) (T, error)) (T, error) {
	v, err := get(tenantID)
	if errors.Is(err, repository.ErrNotFound) && tenantID != domain.GlobalTenantID {
		return get(domain.GlobalTenantID)
	}
	return v, err
}

func (c *Calculator) cached(ctx context.Context, tenantID, key string) []byte {
	if c.cache == nil {
		return nil
	}
	data, err := c.cache.Get(ctx, tenantID, key)
	if err != nil {
		return nil
	}
	return data
}

func (c *Calculator) store(ctx context.Context, tenantID, key string, data []byte) {
	if c.cache == nil {
		return
	}
	_ = c.cache.Set(ctx, tenantID, key, data, c.ttl)
}

func (c *Calculator) drop(ctx context.Context, tenantID, key string) {
	if c.cache == nil {
		return
	}
	_ = c.cache.Delete(ctx, tenantID, key)
}
