// Package calculator resolves everything a sale's commission depends on
// (tiers, settings, campaigns, goal progress) and settles it.
package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gestor360/commission/internal/commission"
	"github.com/gestor360/commission/internal/domain"
	"github.com/gestor360/commission/internal/goals"
	"github.com/gestor360/commission/internal/repository"
	"github.com/gestor360/commission/internal/rules"
	"github.com/gestor360/commission/internal/settlement"
)

var tracer = otel.Tracer("gestor360-calculator")

// ErrInvalidSale is returned for sales missing the fields commission needs.
var ErrInvalidSale = errors.New("invalid sale")

// Calculator evaluates and records sale commissions for a tenant.
type Calculator struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	engine    *rules.Engine
	goals     *goals.Service
	processor *settlement.Processor
	ttl       time.Duration
}

// New creates a calculator. cache and bus may be nil.
func New(repo domain.Repository, c domain.Cache, bus domain.EventBus, engine *rules.Engine, goalSvc *goals.Service, processor *settlement.Processor, ttl time.Duration) *Calculator {
	if processor == nil {
		processor = settlement.NewProcessor()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Calculator{
		repo:      repo,
		cache:     c,
		bus:       bus,
		engine:    engine,
		goals:     goalSvc,
		processor: processor,
		ttl:       ttl,
	}
}

// Evaluate computes the commission of a sale without persisting it.
// overrides adjust goal progress (see goals.Service.Progress).
func (c *Calculator) Evaluate(ctx context.Context, tenantID string, sale *domain.Sale, overrides *domain.GoalOverrides) (*domain.CommissionOutcome, error) {
	start := time.Now()

	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidSale)
	}
	if sale == nil || sale.ProductType == "" {
		return nil, fmt.Errorf("%w: productType is required", ErrInvalidSale)
	}
	if sale.Date.IsZero() {
		sale.Date = time.Now().UTC()
	}
	month := commission.MonthKey(sale.Date)

	ctx, span := tracer.Start(ctx, "calculator.Evaluate",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("product.type", sale.ProductType),
			attribute.String("sale.month", month),
		),
	)
	defer span.End()

	tiers, err := c.ActiveTiers(ctx, tenantID, sale.ProductType)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	avista, err := c.AvistaRule(ctx, tenantID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	campaigns, err := c.Campaigns(ctx, tenantID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	active := commission.ActiveCampaigns(campaigns, month)
	if c.engine != nil {
		active = c.engine.Filter(ctx, active, sale)
	}

	progress := c.goalProgress(ctx, tenantID, sale, month, active, overrides)

	traceID := ""
	if sc := span.SpanContext(); sc.TraceID().IsValid() {
		traceID = sc.TraceID().String()
	}

	out := c.processor.Process(ctx, &settlement.Input{
		TenantID:     tenantID,
		TraceID:      traceID,
		Sale:         sale,
		Month:        month,
		Rules:        tiers,
		AvistaRule:   avista,
		Campaigns:    active,
		GoalProgress: progress,
		StartTime:    start,
	})

	tag := ""
	if out.Overlay != nil {
		tag = out.Overlay.CampaignTag
	}
	span.SetAttributes(
		attribute.String("commission.tag", tag),
		attribute.Float64("commission.rate", out.CommissionRateUsed),
	)

	return out, nil
}

// Simulate evaluates a sale that has not been recorded yet. Unless the
// caller overrides it, the sale's own quantity counts toward the goal.
func (c *Calculator) Simulate(ctx context.Context, tenantID string, sale *domain.Sale, overrides *domain.GoalOverrides) (*domain.CommissionOutcome, error) {
	if overrides == nil && sale != nil {
		overrides = &domain.GoalOverrides{PendingQuantity: sale.Quantity}
	}
	return c.Evaluate(ctx, tenantID, sale, overrides)
}

// Record evaluates a sale, stores it with its commission and publishes
// the outcome. Re-recording an existing sale replaces it.
func (c *Calculator) Record(ctx context.Context, tenantID string, sale *domain.Sale) (*domain.CommissionOutcome, error) {
	if sale == nil {
		return nil, fmt.Errorf("%w: sale is required", ErrInvalidSale)
	}
	if sale.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidSale)
	}
	// "*" addresses the global defaults and every subscriber; sales belong to one company.
	if tenantID == domain.GlobalTenantID {
		return nil, fmt.Errorf("%w: sales cannot be recorded for the global tenant", ErrInvalidSale)
	}
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	if sale.Date.IsZero() {
		sale.Date = time.Now().UTC()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.TenantID = tenantID

	pending, err := c.pendingQuantity(ctx, tenantID, sale)
	if err != nil {
		return nil, err
	}

	out, err := c.Evaluate(ctx, tenantID, sale, &domain.GoalOverrides{PendingQuantity: pending})
	if err != nil {
		return nil, err
	}

	sale.ApplyOutcome(out)
	if err := c.repo.SaveSale(ctx, tenantID, sale); err != nil {
		return nil, fmt.Errorf("failed to save sale: %w", err)
	}

	if c.goals != nil {
		if err := c.goals.Invalidate(ctx, tenantID, sale.UserID, out.Month); err != nil {
			slog.Warn("failed to invalidate goal progress",
				"tenant_id", tenantID,
				"user_id", sale.UserID,
				"error", err,
			)
		}
	}

	c.publish(ctx, tenantID, out)
	return out, nil
}

// pendingQuantity is how much the sale adds to its seller's month beyond
// what is already stored.
func (c *Calculator) pendingQuantity(ctx context.Context, tenantID string, sale *domain.Sale) (float64, error) {
	prev, err := c.repo.GetSale(ctx, tenantID, sale.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return sale.Quantity, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get sale: %w", err)
	}
	if prev.UserID != sale.UserID || commission.MonthKey(prev.Date) != commission.MonthKey(sale.Date) {
		return sale.Quantity, nil
	}
	return sale.Quantity - prev.Quantity, nil
}

// Progress returns a seller's goal progress for a month. The first active
// meta campaign's goal target applies when the seller has none stored.
// Eligibility expressions are not applied since there is no sale to test.
func (c *Calculator) Progress(ctx context.Context, tenantID, userID, month string) (*domain.GoalProgress, error) {
	if c.goals == nil {
		return nil, fmt.Errorf("goal tracking is not configured")
	}
	campaigns, err := c.Campaigns(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	fallback := 0.0
	if meta := firstMeta(commission.ActiveCampaigns(campaigns, month)); meta != nil {
		fallback = meta.GoalTarget
	}
	return c.goals.Progress(ctx, tenantID, userID, month, fallback, nil)
}

func firstMeta(campaigns []*domain.Campaign) *domain.Campaign {
	for _, camp := range campaigns {
		if camp.Type == domain.CampaignGoalLowMargin {
			return camp
		}
	}
	return nil
}

func (c *Calculator) goalProgress(ctx context.Context, tenantID string, sale *domain.Sale, month string, active []*domain.Campaign, overrides *domain.GoalOverrides) *domain.GoalProgress {
	meta := firstMeta(active)
	if meta == nil || c.goals == nil || sale.UserID == "" {
		return nil
	}

	gp, err := c.goals.Progress(ctx, tenantID, sale.UserID, month, meta.GoalTarget, overrides)
	if err != nil {
		slog.Warn("goal progress unavailable",
			"tenant_id", tenantID,
			"user_id", sale.UserID,
			"month", month,
			"error", err,
		)
		return nil
	}
	return gp
}

func (c *Calculator) publish(ctx context.Context, tenantID string, out *domain.CommissionOutcome) {
	if c.bus == nil {
		return
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := c.bus.Publish(ctx, tenantID, domain.TopicCommissionComputed, payload); err != nil {
		slog.Warn("failed to publish commission outcome",
			"tenant_id", tenantID,
			"sale_id", out.SaleID,
			"error", err,
		)
	}
}
