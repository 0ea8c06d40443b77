// Package bus provides the event bus carrying sale imports and commission
// outcomes between Gestor360 components.
package bus

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gestor360/commission/internal/domain"
)

// AllTenants subscribes to a topic across every tenant. It is not a valid
// tenant for Publish.
const AllTenants = domain.GlobalTenantID

// New creates a new event bus based on configuration.
// For Community tier: returns ChannelBus.
// For Pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

func newMessage(tenantID, topic string, payload []byte) (*domain.Message, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}
	if tenantID == AllTenants {
		return nil, fmt.Errorf("cannot publish to all tenants")
	}
	return &domain.Message{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}, nil
}
