package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "missioncontrol.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("MC_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "MC_PORT")
	setString(&cfg.Server.CORSOrigin, "MC_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "MC_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "MC_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "MC_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "MC_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "MC_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.NATS.Ingest, "MC_NATS_INGEST")
	setString(&cfg.Logging.Level, "MC_LOG_LEVEL")
	setString(&cfg.Logging.Service, "MC_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "MC_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "MC_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "MC_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "MC_RATE_RPS")
	setInt(&cfg.Rate.Burst, "MC_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "MC_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "MC_RATE_MAX_IDLE_TIME")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "MC_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "MC_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "MC_CACHE_L2_TTL")

	// Idempotency
	setString(&cfg.Idempotency.Bucket, "MC_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "MC_IDEMPOTENCY_TTL")

	// Tenant / agent
	setString(&cfg.Tenant.DefaultID, "MC_DEFAULT_TENANT_ID")
	setString(&cfg.Tenant.RetentionSchedule, "MC_RETENTION_SCHEDULE")
	setString(&cfg.Agent.SystemName, "MC_SYSTEM_AGENT_NAME")
	setString(&cfg.Agent.SystemRole, "MC_SYSTEM_AGENT_ROLE")
	setString(&cfg.Agent.Avatar, "MC_SYSTEM_AGENT_AVATAR")

	// Billing
	setString(&cfg.Billing.BaseURL, "MC_BILLING_BASE_URL")
	setString(&cfg.Billing.AdminAPIKey, "ANTHROPIC_ADMIN_API_KEY")
	setString(&cfg.Billing.APIVersion, "MC_BILLING_API_VERSION")
	setDuration(&cfg.Billing.Timeout, "MC_BILLING_TIMEOUT")
	setString(&cfg.Billing.DailySchedule, "MC_BILLING_DAILY_SCHEDULE")
	setString(&cfg.Billing.HourlySchedule, "MC_BILLING_HOURLY_SCHEDULE")

	// MCP
	setBool(&cfg.MCP.Enabled, "MC_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "MC_MCP_ADDR")

	// OTEL
	setBool(&cfg.OTEL.Enabled, "MC_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "MC_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "MC_OTEL_SAMPLE_RATE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if _, err := uuid.Parse(cfg.Tenant.DefaultID); err != nil {
		return fmt.Errorf("tenant.default_id must be a uuid: %w", err)
	}
	if cfg.Agent.SystemName == "" {
		return errors.New("agent.system_name is required")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"billing.daily_schedule":    cfg.Billing.DailySchedule,
		"billing.hourly_schedule":   cfg.Billing.HourlySchedule,
		"tenant.retention_schedule": cfg.Tenant.RetentionSchedule,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be between 0 and 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
