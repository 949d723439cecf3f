package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Agent.SystemName != "OpenClaw" {
		t.Errorf("expected system agent OpenClaw, got %s", cfg.Agent.SystemName)
	}
	if cfg.Billing.APIVersion != "2023-06-01" {
		t.Errorf("expected api version 2023-06-01, got %s", cfg.Billing.APIVersion)
	}
	if cfg.Tenant.RetentionSchedule != "@daily" {
		t.Errorf("expected retention schedule @daily, got %s", cfg.Tenant.RetentionSchedule)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
tenant:
  default_id: "11111111-2222-3333-4444-555555555555"
billing:
  daily_schedule: "0 */15 * * * "
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Tenant.DefaultID != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("unexpected default tenant %s", cfg.Tenant.DefaultID)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
	if cfg.Billing.HourlySchedule != "@every 15m" {
		t.Errorf("expected default hourly schedule, got %s", cfg.Billing.HourlySchedule)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, "/nonexistent/path.yaml"); err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("MC_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("MC_PG_MAX_CONNS", "25")
	t.Setenv("MC_LOG_LEVEL", "warn")
	t.Setenv("MC_BREAKER_TIMEOUT", "1m")
	t.Setenv("ANTHROPIC_ADMIN_API_KEY", "sk-admin-test")
	t.Setenv("MC_RETENTION_SCHEDULE", "0 3 * * *")
	t.Setenv("MC_NATS_INGEST", "true")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Billing.AdminAPIKey != "sk-admin-test" {
		t.Errorf("expected admin key, got %q", cfg.Billing.AdminAPIKey)
	}
	if cfg.Tenant.RetentionSchedule != "0 3 * * *" {
		t.Errorf("expected retention schedule override, got %s", cfg.Tenant.RetentionSchedule)
	}
	if !cfg.NATS.Ingest {
		t.Error("expected nats ingest enabled")
	}
}

func TestEnvIgnoresMalformed(t *testing.T) {
	cfg := Defaults()
	t.Setenv("MC_PG_MAX_CONNS", "many")
	t.Setenv("MC_BREAKER_TIMEOUT", "soon")

	loadEnv(&cfg)

	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("expected default max_conns, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.Breaker.Timeout)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty DSN",
			modify: func(c *Config) { c.Postgres.DSN = "" },
			errMsg: "postgres.dsn is required",
		},
		{
			name:   "empty NATS URL",
			modify: func(c *Config) { c.NATS.URL = "" },
			errMsg: "nats.url is required",
		},
		{
			name:   "zero max_conns",
			modify: func(c *Config) { c.Postgres.MaxConns = 0 },
			errMsg: "postgres.max_conns must be >= 1",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "zero rate burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "default tenant not a uuid",
			modify: func(c *Config) { c.Tenant.DefaultID = "default" },
			errMsg: "tenant.default_id must be a uuid",
		},
		{
			name:   "empty system agent",
			modify: func(c *Config) { c.Agent.SystemName = "" },
			errMsg: "agent.system_name is required",
		},
		{
			name:   "bad cron schedule",
			modify: func(c *Config) { c.Billing.HourlySchedule = "every quarter hour" },
			errMsg: "billing.hourly_schedule",
		},
		{
			name:   "sample rate out of range",
			modify: func(c *Config) { c.OTEL.SampleRate = 2 },
			errMsg: "otel.sample_rate must be between 0 and 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if !strings.HasPrefix(err.Error(), tt.errMsg) {
				t.Errorf("expected prefix %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "mc.yaml")
	if err := os.WriteFile(yamlPath, []byte("server:\n  port: \"5555\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MC_LOG_LEVEL", "error")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "5555" {
		t.Errorf("expected port 5555 from YAML, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected ENV log level, got %s", cfg.Logging.Level)
	}
}
