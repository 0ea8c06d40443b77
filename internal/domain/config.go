package domain

import "time"

// Config holds the complete service configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" yaml:"server"`

	// Tier determines backing infrastructure
	Tier Tier `json:"tier" yaml:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" yaml:"repository"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	EventBus   EventBusConfig   `json:"eventBus" yaml:"eventBus"`
	Commission CommissionConfig `json:"commission" yaml:"commission"`

	// Observability
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Seed data applied to the global tenant on first start
	Seed SeedConfig `json:"seed" yaml:"seed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	ReadTimeout  int    `json:"readTimeout" yaml:"readTimeout"`   // seconds
	WriteTimeout int    `json:"writeTimeout" yaml:"writeTimeout"` // seconds
}

// CommissionConfig tunes the commission pipeline.
type CommissionConfig struct {
	// TierCacheTTL is how long tier tables and campaigns stay in the local mirror.
	TierCacheTTL time.Duration `json:"tierCacheTtl" yaml:"tierCacheTtl"`

	// GoalCacheTTL is how long computed goal progress is cached.
	GoalCacheTTL time.Duration `json:"goalCacheTtl" yaml:"goalCacheTtl"`

	// AsyncWorker enables the sale import worker in Community tier.
	AsyncWorker bool `json:"asyncWorker" yaml:"asyncWorker"`

	// WorkerTenants restricts the import worker to these companies.
	WorkerTenants []string `json:"workerTenants" yaml:"workerTenants"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// SeedConfig holds data loaded into an empty store.
type SeedConfig struct {
	// CommissionTables maps product type to a raw tier document, flat or nested.
	CommissionTables map[string]any `json:"commissionTables" yaml:"commissionTables"`

	AvistaRule *AvistaRuleConfig `json:"avistaRule" yaml:"avistaRule"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity is the single-node tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// GlobalTenantID is used for settings that apply to all companies.
const GlobalTenantID = "*"

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./gestor360.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Commission: CommissionConfig{
			TierCacheTTL: 5 * time.Minute,
			GoalCacheTTL: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "gestor360",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	return cfg
}
