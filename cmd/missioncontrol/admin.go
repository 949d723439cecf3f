package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/Strob0t/missioncontrol/internal/adapter/anthropic"
	"github.com/Strob0t/missioncontrol/internal/adapter/postgres"
	"github.com/Strob0t/missioncontrol/internal/config"
	"github.com/Strob0t/missioncontrol/internal/domain/agent"
	"github.com/Strob0t/missioncontrol/internal/domain/apitoken"
	"github.com/Strob0t/missioncontrol/internal/middleware"
	"github.com/Strob0t/missioncontrol/internal/resilience"
	"github.com/Strob0t/missioncontrol/internal/service"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-token":
		return runAdminCreateToken(args[1:])
	case "list-tokens":
		return runAdminListTokens(args[1:])
	case "revoke-token":
		return runAdminRevokeToken(args[1:])
	case "seed":
		return runAdminSeed(args[1:])
	case "backfill-usage":
		return runAdminBackfill(args[1:])
	case "migrate":
		return runAdminMigrate(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: missioncontrol admin <command> [options]

Commands:
  create-token     Mint an API token (plaintext is printed once)
  list-tokens      List the API tokens of a tenant
  revoke-token     Revoke an API token by ID
  seed             Insert the system agent and the default squad
  backfill-usage   Reconcile daily usage for the last N days
  migrate          Apply, roll back or show database migrations
  help             Show this help message

Examples:
  missioncontrol admin create-token --name openclaw-gateway
  missioncontrol admin revoke-token --id 6f1c...
  missioncontrol admin seed --tenant 00000000-0000-0000-0000-000000000000
  missioncontrol admin backfill-usage --days 30
  missioncontrol admin migrate --down 1
`)
}

// adminEnv holds the store-backed services used by admin commands.
type adminEnv struct {
	cfg     *config.Config
	store   *postgres.Store
	cleanup func()
}

func loadAdminEnv() (*adminEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := postgres.NewPool(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &adminEnv{cfg: cfg, store: postgres.NewStore(pool), cleanup: pool.Close}, nil
}

func (e *adminEnv) tenantCtx(tenantID string) context.Context {
	if tenantID == "" {
		tenantID = e.cfg.Tenant.DefaultID
	}
	return middleware.WithTenantID(context.Background(), tenantID)
}

func (e *adminEnv) systemSpec() agent.SystemSpec {
	return agent.SystemSpec{Name: e.cfg.Agent.SystemName, Role: e.cfg.Agent.SystemRole, Avatar: e.cfg.Agent.Avatar}
}

func runAdminCreateToken(args []string) error {
	fs := flag.NewFlagSet("create-token", flag.ContinueOnError)
	name := fs.String("name", "", "token name (required)")
	tenant := fs.String("tenant", "", "tenant ID (defaults to tenant.default_id)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("--name is required")
	}

	env, err := loadAdminEnv()
	if err != nil {
		return err
	}
	defer env.cleanup()

	created, err := service.NewAuthService(env.store, nil).CreateToken(env.tenantCtx(*tenant), apitoken.CreateRequest{Name: *name})
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}

	// Piped output carries only the plaintext.
	if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // fd fits in int
		fmt.Println(created.Plain)
		return nil
	}
	fmt.Printf("Token created: %s (id=%s, tenant=%s)\n", created.Token.Name, created.Token.ID, created.Token.TenantID)
	fmt.Printf("\n  %s\n\n", created.Plain)
	fmt.Println("Store it now. It cannot be shown again.")
	return nil
}

func runAdminListTokens(args []string) error {
	fs := flag.NewFlagSet("list-tokens", flag.ContinueOnError)
	tenant := fs.String("tenant", "", "tenant ID (defaults to tenant.default_id)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := loadAdminEnv()
	if err != nil {
		return err
	}
	defer env.cleanup()

	tokens, err := service.NewAuthService(env.store, nil).ListTokens(env.tenantCtx(*tenant))
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}
	if len(tokens) == 0 {
		fmt.Println("No tokens found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPREFIX\tCREATED\tLAST_USED\tREVOKED")
	for i := range tokens {
		t := &tokens[i]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Name, t.Prefix, t.CreatedAt.Format(time.RFC3339), formatTime(t.LastUsedAt), formatTime(t.RevokedAt))
	}
	return w.Flush()
}

func runAdminRevokeToken(args []string) error {
	fs := flag.NewFlagSet("revoke-token", flag.ContinueOnError)
	id := fs.String("id", "", "token ID (required)")
	tenant := fs.String("tenant", "", "tenant ID (defaults to tenant.default_id)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("--id is required")
	}

	env, err := loadAdminEnv()
	if err != nil {
		return err
	}
	defer env.cleanup()

	t, err := service.NewAuthService(env.store, nil).RevokeToken(env.tenantCtx(*tenant), *id)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Token revoked: %s (%s)\n", t.Name, t.ID)
	return nil
}

func runAdminSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	tenant := fs.String("tenant", "", "tenant ID (defaults to tenant.default_id)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := loadAdminEnv()
	if err != nil {
		return err
	}
	defer env.cleanup()

	agents, err := service.NewAgentService(env.store, env.systemSpec()).Seed(env.tenantCtx(*tenant))
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	for i := range agents {
		fmt.Fprintf(os.Stderr, "Agent ready: %s %s (id=%s)\n", agents[i].Avatar, agents[i].Name, agents[i].ID)
	}
	return nil
}

func runAdminBackfill(args []string) error {
	fs := flag.NewFlagSet("backfill-usage", flag.ContinueOnError)
	days := fs.Int("days", service.DefaultBackfillDays, "number of days to reconcile")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := loadAdminEnv()
	if err != nil {
		return err
	}
	defer env.cleanup()

	b := env.cfg.Billing
	if b.AdminAPIKey == "" {
		return errors.New("billing admin key is not configured (ANTHROPIC_ADMIN_API_KEY)")
	}
	client := anthropic.NewClient(b.BaseURL, b.AdminAPIKey, b.APIVersion, b.Timeout)
	client.SetBreaker(resilience.NewNamedBreaker("billing", env.cfg.Breaker.MaxFailures, env.cfg.Breaker.Timeout))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	res, err := service.NewUsageReconciler(env.store, client, nil).Backfill(ctx, *days)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Backfilled %d daily buckets (cost ok=%t, usage ok=%t)\n", res.Buckets, res.CostOK, res.UsageOK)
	return nil
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	down := fs.Int("down", 0, "roll back this many migrations instead of applying")
	status := fs.Bool("status", false, "print the current version only")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()

	switch {
	case *status:
	case *down > 0:
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *down); err != nil {
			return err
		}
	default:
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return err
		}
	}

	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Database at migration version %d\n", v)
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
