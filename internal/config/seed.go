package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gestor360/commission/internal/commission"
	"github.com/gestor360/commission/internal/domain"
	"github.com/gestor360/commission/internal/repository"
)

// ApplySeed writes the seed tables and avista rule for the global tenant.
// Entries that already exist are left alone, so restarts never overwrite
// values edited through the API. It returns how many entries were written.
func ApplySeed(ctx context.Context, repo domain.Repository, seed domain.SeedConfig) (int, error) {
	applied := 0

	productTypes := make([]string, 0, len(seed.CommissionTables))
	for pt := range seed.CommissionTables {
		productTypes = append(productTypes, pt)
	}
	sort.Strings(productTypes)

	for _, pt := range productTypes {
		_, err := repo.GetCommissionTable(ctx, domain.GlobalTenantID, pt)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return applied, fmt.Errorf("seed %s: %w", pt, err)
		}

		tiers, err := seedTiers(seed.CommissionTables[pt])
		if err != nil {
			return applied, fmt.Errorf("seed %s: %w", pt, err)
		}
		err = repo.SaveCommissionTable(ctx, domain.GlobalTenantID, &domain.CommissionTable{
			TenantID:    domain.GlobalTenantID,
			ProductType: pt,
			Rules:       tiers,
		})
		if err != nil {
			return applied, fmt.Errorf("seed %s: %w", pt, err)
		}
		slog.Info("seeded commission table", "product_type", pt, "tier_count", len(tiers))
		applied++
	}

	if seed.AvistaRule != nil {
		_, err := repo.GetAvistaRuleConfig(ctx, domain.GlobalTenantID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if err := repo.SaveAvistaRuleConfig(ctx, domain.GlobalTenantID, seed.AvistaRule); err != nil {
				return applied, fmt.Errorf("seed avista rule: %w", err)
			}
			slog.Info("seeded avista rule",
				"enabled", seed.AvistaRule.Enabled,
				"commission_pct", seed.AvistaRule.CommissionPct,
			)
			applied++
		case err != nil:
			return applied, fmt.Errorf("seed avista rule: %w", err)
		}
	}

	return applied, nil
}

// seedTiers converts a YAML-decoded tier document into rules by way of the
// JSON document reader, so seeds accept the same shapes as the API.
func seedTiers(doc any) ([]domain.CommissionRule, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	tiers, err := commission.DecodeTierDocument(data)
	if err != nil {
		return nil, err
	}
	if err := commission.ValidateTiers(commission.ActiveRules(tiers)); err != nil {
		return nil, err
	}
	return tiers, nil
}
