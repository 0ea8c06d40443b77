// Package goals tracks sellers' monthly goal progress.
package goals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestor360/commission/internal/cache"
	"github.com/gestor360/commission/internal/domain"
	"github.com/gestor360/commission/internal/repository"
)

// Service computes goal progress from stored targets and recorded sales.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewService creates a new goal service. A nil cache disables caching.
func NewService(repo domain.Repository, c domain.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		repo:  repo,
		cache: c,
		ttl:   ttl,
	}
}

// Progress returns the seller's progress toward the month's goal.
//
// The target is taken from overrides, then the stored GoalTarget, then
// fallbackTarget (the goal campaign's default, ignored when <= 0). Current
// is the sum of the seller's sale quantities in the month, replaced by
// overrides.Current and increased by overrides.PendingQuantity.
// Hit is current >= target; a seller with no target at all never hits.
func (s *Service) Progress(ctx context.Context, tenantID, userID, month string, fallbackTarget float64, overrides *domain.GoalOverrides) (*domain.GoalProgress, error) {
	if tenantID == "" || userID == "" || month == "" {
		return nil, fmt.Errorf("tenantID, userID and month are required")
	}

	snap, err := s.snapshot(ctx, tenantID, userID, month)
	if err != nil {
		return nil, err
	}

	target, hasTarget := 0.0, false
	switch {
	case overrides != nil && overrides.Target != nil:
		target, hasTarget = *overrides.Target, true
	case snap.StoredTarget != nil:
		target, hasTarget = *snap.StoredTarget, true
	case fallbackTarget > 0:
		target, hasTarget = fallbackTarget, true
	}

	current := decimal.NewFromFloat(snap.Current)
	if overrides != nil {
		if overrides.Current != nil {
			current = decimal.NewFromFloat(*overrides.Current)
		}
		current = current.Add(decimal.NewFromFloat(overrides.PendingQuantity))
	}

	return progress(target, current, hasTarget), nil
}

// snapshot loads the seller's stored target and month total, going
// through the cache. Campaign defaults are applied by the caller.
func (s *Service) snapshot(ctx context.Context, tenantID, userID, month string) (*domain.GoalSnapshot, error) {
	if s.cache != nil {
		if snap, err := s.cache.GetGoalSnapshot(ctx, tenantID, userID, month); err == nil && snap != nil {
			return snap, nil
		}
	}

	snap := &domain.GoalSnapshot{}

	goal, err := s.repo.GetGoalTarget(ctx, tenantID, userID, month)
	switch {
	case err == nil:
		t := goal.Target
		snap.StoredTarget = &t
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to get goal target: %w", err)
	}

	sales, err := s.repo.ListSalesByUserMonth(ctx, tenantID, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	snap.Current, _ = sumQuantities(sales).Float64()

	if s.cache != nil {
		_ = s.cache.SetGoalSnapshot(ctx, tenantID, userID, month, snap, s.ttl)
	}
	return snap, nil
}

func progress(target float64, current decimal.Decimal, hasTarget bool) *domain.GoalProgress {
	cur, _ := current.Float64()
	return &domain.GoalProgress{
		Target:  target,
		Current: cur,
		Hit:     hasTarget && current.GreaterThanOrEqual(decimal.NewFromFloat(target)),
	}
}

// SetTarget stores a seller's monthly target and drops the cached snapshot.
func (s *Service) SetTarget(ctx context.Context, tenantID, userID, month string, target float64) error {
	err := s.repo.SaveGoalTarget(ctx, tenantID, &domain.GoalTarget{
		TenantID: tenantID,
		UserID:   userID,
		Month:    month,
		Target:   target,
	})
	if err != nil {
		return err
	}
	return s.Invalidate(ctx, tenantID, userID, month)
}

// Invalidate drops the cached snapshot of a seller's month.
func (s *Service) Invalidate(ctx context.Context, tenantID, userID, month string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, tenantID, cache.GoalKey(userID, month))
}

// SumQuantities adds sale quantities exactly, avoiding float drift on
// long months of fractional quantities.
func SumQuantities(sales []*domain.Sale) float64 {
	f, _ := sumQuantities(sales).Float64()
	return f
}

func sumQuantities(sales []*domain.Sale) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range sales {
		if s == nil {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(s.Quantity))
	}
	return sum
}
