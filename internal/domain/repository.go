// Package domain defines the core interfaces and types for the Gestor360
// commission service.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID (the company) for strict multi-tenancy isolation.
type Repository interface {
	// Sale operations
	SaveSale(ctx context.Context, tenantID string, sale *Sale) error
	GetSale(ctx context.Context, tenantID string, saleID string) (*Sale, error)
	ListSalesByUserMonth(ctx context.Context, tenantID string, userID string, month string) ([]*Sale, error)

	// Commission tier tables, one per product type
	SaveCommissionTable(ctx context.Context, tenantID string, table *CommissionTable) error
	GetCommissionTable(ctx context.Context, tenantID string, productType string) (*CommissionTable, error)
	ListProductTypes(ctx context.Context, tenantID string) ([]string, error)

	// Campaign operations
	SaveCampaign(ctx context.Context, tenantID string, campaign *Campaign) error
	GetCampaign(ctx context.Context, tenantID string, campaignID string) (*Campaign, error)
	ListCampaigns(ctx context.Context, tenantID string) ([]*Campaign, error)
	DeleteCampaign(ctx context.Context, tenantID string, campaignID string) error

	// System settings
	SaveAvistaRuleConfig(ctx context.Context, tenantID string, cfg *AvistaRuleConfig) error
	GetAvistaRuleConfig(ctx context.Context, tenantID string) (*AvistaRuleConfig, error)

	// Monthly goals
	SaveGoalTarget(ctx context.Context, tenantID string, goal *GoalTarget) error
	GetGoalTarget(ctx context.Context, tenantID string, userID string, month string) (*GoalTarget, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `json:"driver" yaml:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath" yaml:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgresHost" yaml:"postgresHost"`
	PostgresPort     int    `json:"postgresPort" yaml:"postgresPort"`
	PostgresUser     string `json:"postgresUser" yaml:"postgresUser"`
	PostgresPassword string `json:"-" yaml:"postgresPassword"`
	PostgresDB       string `json:"postgresDb" yaml:"postgresDb"`
	PostgresSSLMode  string `json:"postgresSslMode" yaml:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
}
