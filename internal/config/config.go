// Package config assembles the service configuration from tier defaults,
// an optional YAML file and GESTOR_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gestor360/commission/internal/domain"
)

// Load builds the configuration. Precedence, lowest first: tier defaults,
// the YAML file named by GESTOR_CONFIG, environment variables. A .env file
// in the working directory is loaded into the environment when present.
func Load() (*domain.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	var raw []byte
	if path := os.Getenv("GESTOR_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		raw = data
	}

	tier, err := selectTier(raw)
	if err != nil {
		return nil, err
	}

	var cfg *domain.Config
	switch tier {
	case domain.TierCommunity, "":
		cfg = domain.DefaultConfig()
	case domain.TierPro:
		cfg = domain.ProConfig()
	default:
		return nil, fmt.Errorf("unknown tier %q", tier)
	}

	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// selectTier picks the defaults to start from. GESTOR_TIER wins over the
// file's tier key.
func selectTier(raw []byte) (domain.Tier, error) {
	if v := os.Getenv("GESTOR_TIER"); v != "" {
		return domain.Tier(strings.ToLower(v)), nil
	}
	if len(raw) == 0 {
		return domain.TierCommunity, nil
	}

	var head struct {
		Tier domain.Tier `yaml:"tier"`
	}
	if err := yaml.Unmarshal(raw, &head); err != nil {
		return "", fmt.Errorf("parse config file: %w", err)
	}
	return head.Tier, nil
}

func applyEnv(cfg *domain.Config) error {
	if v := os.Getenv("GESTOR_TIER"); v != "" {
		cfg.Tier = domain.Tier(strings.ToLower(v))
	}

	if err := envInt("GESTOR_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	envString("GESTOR_HOST", &cfg.Server.Host)

	envString("GESTOR_DB_DRIVER", &cfg.Repository.Driver)
	envString("GESTOR_SQLITE_PATH", &cfg.Repository.SQLitePath)
	envString("GESTOR_POSTGRES_HOST", &cfg.Repository.PostgresHost)
	if err := envInt("GESTOR_POSTGRES_PORT", &cfg.Repository.PostgresPort); err != nil {
		return err
	}
	envString("GESTOR_POSTGRES_USER", &cfg.Repository.PostgresUser)
	envString("GESTOR_POSTGRES_PASSWORD", &cfg.Repository.PostgresPassword)
	envString("GESTOR_POSTGRES_DB", &cfg.Repository.PostgresDB)
	envString("GESTOR_POSTGRES_SSLMODE", &cfg.Repository.PostgresSSLMode)

	envString("GESTOR_REDIS_ADDR", &cfg.Cache.RedisAddr)
	envString("GESTOR_REDIS_PASSWORD", &cfg.Cache.RedisPassword)

	envString("GESTOR_NATS_URL", &cfg.EventBus.NATSUrl)
	envString("GESTOR_NATS_TOKEN", &cfg.EventBus.NATSToken)

	envString("GESTOR_LOG_LEVEL", &cfg.Logging.Level)
	if os.Getenv("GESTOR_DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}

	if v := os.Getenv("GESTOR_ASYNC_WORKER"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GESTOR_ASYNC_WORKER: %w", err)
		}
		cfg.Commission.AsyncWorker = enabled
	}
	if v := os.Getenv("GESTOR_WORKER_TENANTS"); v != "" {
		cfg.Commission.WorkerTenants = splitList(v)
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LogLevel maps the configured level name to a slog level.
func LogLevel(cfg *domain.Config) slog.Level {
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
