package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gestor360/commission/internal/domain"
	"github.com/gestor360/commission/internal/repository"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GESTOR_CONFIG", "GESTOR_TIER", "GESTOR_PORT", "GESTOR_HOST",
		"GESTOR_DB_DRIVER", "GESTOR_SQLITE_PATH",
		"GESTOR_POSTGRES_HOST", "GESTOR_POSTGRES_PORT", "GESTOR_POSTGRES_USER",
		"GESTOR_POSTGRES_PASSWORD", "GESTOR_POSTGRES_DB", "GESTOR_POSTGRES_SSLMODE",
		"GESTOR_REDIS_ADDR", "GESTOR_REDIS_PASSWORD", "GESTOR_NATS_URL", "GESTOR_NATS_TOKEN",
		"GESTOR_LOG_LEVEL", "GESTOR_DEBUG", "GESTOR_ASYNC_WORKER", "GESTOR_WORKER_TENANTS",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gestor360.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Tier != domain.TierCommunity {
			t.Errorf("expected community tier, got %s", cfg.Tier)
		}
		if cfg.Repository.Driver != "sqlite" || cfg.EventBus.Type != "channel" {
			t.Errorf("unexpected community backends: %s / %s", cfg.Repository.Driver, cfg.EventBus.Type)
		}
		if cfg.Commission.AsyncWorker {
			t.Error("async worker should be off by default")
		}
	})

	t.Run("ProTier", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GESTOR_TIER", "pro")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Tier != domain.TierPro {
			t.Errorf("expected pro tier, got %s", cfg.Tier)
		}
		if cfg.Repository.Driver != "postgres" || cfg.Cache.Type != "redis" || cfg.EventBus.Type != "nats" {
			t.Errorf("unexpected pro backends: %+v", cfg)
		}
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GESTOR_PORT", "9090")
		t.Setenv("GESTOR_SQLITE_PATH", "/tmp/other.db")
		t.Setenv("GESTOR_REDIS_ADDR", "cache:6379")
		t.Setenv("GESTOR_NATS_URL", "nats://bus:4222")
		t.Setenv("GESTOR_DEBUG", "true")
		t.Setenv("GESTOR_ASYNC_WORKER", "true")
		t.Setenv("GESTOR_WORKER_TENANTS", " company-a, ,company-b ")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", cfg.Server.Port)
		}
		if cfg.Repository.SQLitePath != "/tmp/other.db" {
			t.Errorf("unexpected sqlite path %s", cfg.Repository.SQLitePath)
		}
		if cfg.Cache.RedisAddr != "cache:6379" || cfg.EventBus.NATSUrl != "nats://bus:4222" {
			t.Errorf("unexpected addresses: %s, %s", cfg.Cache.RedisAddr, cfg.EventBus.NATSUrl)
		}
		if LogLevel(cfg) != slog.LevelDebug {
			t.Errorf("expected debug level, got %s", cfg.Logging.Level)
		}
		if !cfg.Commission.AsyncWorker {
			t.Error("expected async worker enabled")
		}
		tenants := cfg.Commission.WorkerTenants
		if len(tenants) != 2 || tenants[0] != "company-a" || tenants[1] != "company-b" {
			t.Errorf("unexpected worker tenants %v", tenants)
		}
	})

	t.Run("InvalidEnv", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GESTOR_PORT", "eighty")

		if _, err := Load(); err == nil {
			t.Error("expected error for non-numeric port")
		}

		t.Setenv("GESTOR_PORT", "")
		t.Setenv("GESTOR_ASYNC_WORKER", "maybe")
		if _, err := Load(); err == nil {
			t.Error("expected error for non-boolean async worker flag")
		}
	})

	t.Run("UnknownTier", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GESTOR_TIER", "enterprise")

		if _, err := Load(); err == nil {
			t.Error("expected error for unknown tier")
		}
	})

	t.Run("YAMLFile", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GESTOR_CONFIG", writeConfig(t, `
tier: pro
server:
  port: 7000
repository:
  postgresHost: db.internal
commission:
  tierCacheTtl: 30s
  workerTenants: [company-a]
logging:
  level: warn
`))
		t.Setenv("GESTOR_PORT", "7100")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Tier != domain.TierPro || cfg.EventBus.Type != "nats" {
			t.Errorf("file tier should select pro defaults, got %s / %s", cfg.Tier, cfg.EventBus.Type)
		}
		if cfg.Server.Port != 7100 {
			t.Errorf("environment should win over the file, got port %d", cfg.Server.Port)
		}
		if cfg.Repository.PostgresHost != "db.internal" || cfg.Repository.PostgresDB != "gestor360" {
			t.Errorf("file should merge over defaults, got %+v", cfg.Repository)
		}
		if cfg.Commission.TierCacheTTL != 30*time.Second {
			t.Errorf("expected 30s tier ttl, got %s", cfg.Commission.TierCacheTTL)
		}
		if cfg.Commission.GoalCacheTTL != time.Minute {
			t.Errorf("unset ttl should keep its default, got %s", cfg.Commission.GoalCacheTTL)
		}
		if LogLevel(cfg) != slog.LevelWarn {
			t.Errorf("expected warn level, got %s", cfg.Logging.Level)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GESTOR_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

		if _, err := Load(); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("MalformedFile", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GESTOR_CONFIG", writeConfig(t, "server: [unclosed"))

		if _, err := Load(); err == nil {
			t.Error("expected error for malformed config file")
		}
	})
}

func newRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "config-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestApplySeed(t *testing.T) {
	ctx := context.Background()

	clearEnv(t)
	t.Setenv("GESTOR_CONFIG", writeConfig(t, `
seed:
  commissionTables:
    RACAO:
      tiers:
        - {id: low, min: 0, max: 2.99, rate: 0.03}
        - {id: high, min: 3, max: 100, rate: 0.05}
    SEMENTE: {min: 0, max: 100, rate: 0.04}
  avistaRule:
    enabled: true
    commissionPct: 1.5
    paymentTypesAllowed: [PIX, DINHEIRO]
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	t.Run("EmptyStore", func(t *testing.T) {
		repo := newRepo(t)

		n, err := ApplySeed(ctx, repo, cfg.Seed)
		if err != nil {
			t.Fatalf("ApplySeed failed: %v", err)
		}
		if n != 3 {
			t.Errorf("expected 3 seeded entries, got %d", n)
		}

		racao, err := repo.GetCommissionTable(ctx, domain.GlobalTenantID, "RACAO")
		if err != nil {
			t.Fatalf("RACAO not seeded: %v", err)
		}
		if len(racao.Rules) != 2 || racao.Rules[1].ID != "high" || racao.Rules[1].CommissionRate != 0.05 {
			t.Errorf("unexpected RACAO tiers: %+v", racao.Rules)
		}

		semente, err := repo.GetCommissionTable(ctx, domain.GlobalTenantID, "SEMENTE")
		if err != nil {
			t.Fatalf("SEMENTE not seeded: %v", err)
		}
		if len(semente.Rules) != 1 || !semente.Rules[0].IsActive {
			t.Errorf("unexpected SEMENTE tiers: %+v", semente.Rules)
		}

		rule, err := repo.GetAvistaRuleConfig(ctx, domain.GlobalTenantID)
		if err != nil {
			t.Fatalf("avista rule not seeded: %v", err)
		}
		if !rule.Enabled || rule.CommissionPct != 1.5 || len(rule.PaymentTypesAllowed) != 2 {
			t.Errorf("unexpected avista rule: %+v", rule)
		}
	})

	t.Run("KeepsExistingData", func(t *testing.T) {
		repo := newRepo(t)

		edited := 100.0
		err := repo.SaveCommissionTable(ctx, domain.GlobalTenantID, &domain.CommissionTable{
			ProductType: "RACAO",
			Rules:       []domain.CommissionRule{{ID: "edited", MaxPercent: &edited, CommissionRate: 0.07, IsActive: true}},
		})
		if err != nil {
			t.Fatalf("SaveCommissionTable failed: %v", err)
		}

		n, err := ApplySeed(ctx, repo, cfg.Seed)
		if err != nil {
			t.Fatalf("ApplySeed failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 seeded entries, got %d", n)
		}

		racao, _ := repo.GetCommissionTable(ctx, domain.GlobalTenantID, "RACAO")
		if len(racao.Rules) != 1 || racao.Rules[0].ID != "edited" {
			t.Errorf("existing table was overwritten: %+v", racao.Rules)
		}

		if n, _ := ApplySeed(ctx, repo, cfg.Seed); n != 0 {
			t.Errorf("second run should seed nothing, got %d", n)
		}
	})

	t.Run("RejectsOverlappingTiers", func(t *testing.T) {
		repo := newRepo(t)

		seed := domain.SeedConfig{CommissionTables: map[string]any{
			"RACAO": []any{
				map[string]any{"min": 0, "max": 5, "rate": 0.03},
				map[string]any{"min": 4, "max": 10, "rate": 0.05},
			},
		}}
		if _, err := ApplySeed(ctx, repo, seed); err == nil {
			t.Error("expected error for overlapping seed tiers")
		}
	})
}
