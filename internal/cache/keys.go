package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gestor360/commission/internal/domain"
)

// Key builders for the document mirror. Keys are tenant-scoped by the
// cache implementations, so these only carry the document identity.

// TierKey is the key of a product type's active tiers.
func TierKey(productType string) string { return "tiers:" + productType }

// CampaignsKey is the key of a tenant's campaign list.
func CampaignsKey() string { return "campaigns" }

// AvistaRuleKey is the key of the avista rule setting.
func AvistaRuleKey() string { return "settings:avista" }

// GoalKey is the key of a seller's monthly goal snapshot.
func GoalKey(userID, month string) string { return "goal:" + userID + ":" + month }

// byteStore is the raw half of domain.Cache.
type byteStore interface {
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error
}

func getGoalSnapshot(ctx context.Context, s byteStore, tenantID, userID, month string) (*domain.GoalSnapshot, error) {
	data, err := s.Get(ctx, tenantID, GoalKey(userID, month))
	if err != nil || data == nil {
		return nil, err
	}

	var snap domain.GoalSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func setGoalSnapshot(ctx context.Context, s byteStore, tenantID, userID, month string, snap *domain.GoalSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.Set(ctx, tenantID, GoalKey(userID, month), data, ttl)
}
