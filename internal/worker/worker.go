// Package worker records imported sales asynchronously from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gestor360/commission/internal/bus"
	"github.com/gestor360/commission/internal/calculator"
	"github.com/gestor360/commission/internal/commission"
	"github.com/gestor360/commission/internal/domain"
	"github.com/gestor360/commission/internal/settlement"
)

// Worker consumes sale.imported events and records each sale's commission.
type Worker struct {
	bus  domain.EventBus
	calc *calculator.Calculator

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process. Empty subscribes to
	// every tenant.
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(eventBus domain.EventBus, calc *calculator.Calculator) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    eventBus,
		calc:   calc,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to imported sales for the configured tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		if err := w.subscribe(bus.AllTenants); err != nil {
			return err
		}
		slog.Info("worker started for all tenants", "topic", domain.TopicSaleImported)
		return nil
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.subscribe(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
		"topic", domain.TopicSaleImported,
	)
	return nil
}

func (w *Worker) subscribe(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicSaleImported, w.handleMessage)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()
	return nil
}

// SaleMessage is the sale.imported payload.
type SaleMessage struct {
	SaleID        string  `json:"saleId"`
	TenantID      string  `json:"tenantId"`
	UserID        string  `json:"userId"`
	ClientID      string  `json:"clientId,omitempty"`
	ProductType   string  `json:"productType"`
	Quantity      float64 `json:"quantity"`
	ValueProposed float64 `json:"valueProposed"`
	ValueSold     float64 `json:"valueSold,omitempty"`
	MarginPercent float64 `json:"marginPercent"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
	Date          string  `json:"date,omitempty"` // YYYY-MM-DD or RFC 3339
}

// Sale converts the message into a sale.
func (m *SaleMessage) Sale() (*domain.Sale, error) {
	date, err := commission.ParseSaleDate(m.Date)
	if err != nil {
		return nil, err
	}
	return &domain.Sale{
		ID:            m.SaleID,
		UserID:        m.UserID,
		ClientID:      m.ClientID,
		ProductType:   m.ProductType,
		Quantity:      m.Quantity,
		ValueProposed: m.ValueProposed,
		ValueSold:     m.ValueSold,
		MarginPercent: m.MarginPercent,
		PaymentMethod: m.PaymentMethod,
		Date:          date,
	}, nil
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var sm SaleMessage
	if err := json.Unmarshal(msg.Payload, &sm); err != nil {
		slog.Error("failed to parse sale message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	tenantID := msg.TenantID
	if tenantID == "" {
		tenantID = sm.TenantID
	}
	if sm.TenantID != "" && sm.TenantID != tenantID {
		return fmt.Errorf("sale tenant %q does not match message tenant %q", sm.TenantID, tenantID)
	}

	sale, err := sm.Sale()
	if err != nil {
		slog.Error("invalid sale message",
			"message_id", msg.ID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	out, err := w.calc.Record(ctx, tenantID, sale)
	if err != nil {
		slog.Error("failed to record sale",
			"sale_id", sale.ID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	slog.Info("sale recorded",
		"sale_id", sale.ID,
		"tenant_id", tenantID,
		"user_id", sale.UserID,
		"commission", out.CommissionValueTotal,
		"summary", settlement.Summary(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
