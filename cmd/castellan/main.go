package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/castellan-io/castellan/pkg/alert"
	"github.com/castellan-io/castellan/pkg/audit"
	"github.com/castellan-io/castellan/pkg/classify"
	"github.com/castellan-io/castellan/pkg/config"
	"github.com/castellan-io/castellan/pkg/contracts"
	"github.com/castellan-io/castellan/pkg/executor"
	"github.com/castellan-io/castellan/pkg/gate"
	"github.com/castellan-io/castellan/pkg/identity"
	"github.com/castellan-io/castellan/pkg/monitor"
	"github.com/castellan-io/castellan/pkg/observability"
	"github.com/castellan-io/castellan/pkg/retry"
	"github.com/castellan-io/castellan/pkg/txn"
	"github.com/castellan-io/castellan/pkg/verify"

	_ "github.com/lib/pq"    // Postgres driver
	_ "modernc.org/sqlite"   // embedded SQLite driver
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return runDemo(args[1:], stdout, stderr)
	}

	switch args[1] {
	case "demo":
		return runDemo(args[2:], stdout, stderr)
	case "token":
		return runToken(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: castellan <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  demo     run sample operations through the guarded pipeline")
	fmt.Fprintln(w, "  token    issue and validate a demo identity token")
	fmt.Fprintln(w, "  help     print this message")
}

// demoOperation is a self-contained operation for the demo command.
type demoOperation struct {
	id   string
	data map[string]any
}

func (o *demoOperation) ID() string           { return o.id }
func (o *demoOperation) Data() map[string]any { return o.data }

func (o *demoOperation) Execute(ctx context.Context) (*contracts.OperationResult, error) {
	payload := map[string]any{
		"applied": o.data["amount"],
		"at":      time.Now().UTC().Format(time.RFC3339),
	}
	sum, err := verify.Checksum(payload)
	if err != nil {
		return nil, err
	}
	return &contracts.OperationResult{Payload: payload, Valid: true, Checksum: sum}, nil
}

func (o *demoOperation) ValidationSchema() string {
	return `{
		"type": "object",
		"required": ["amount"],
		"properties": {
			"amount": {"type": "number", "minimum": 0}
		}
	}`
}

func (o *demoOperation) RequiredPermissions() []contracts.Permission {
	return []contracts.Permission{{Object: "ledger:demo", Relation: "writer"}}
}

func (o *demoOperation) SecurityRequirements() []contracts.Requirement {
	return []contracts.Requirement{
		{Name: "trusted_origin", Expr: `origin == "cli"`},
		{Name: "amount_cap", Expr: `double(input.amount) <= 10000.0`},
	}
}

func (o *demoOperation) RateLimitKey() string { return "demo:" + o.id }

func runDemo(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	profileDir := fs.String("profiles", "", "directory of execution profile YAML files")
	driver := fs.String("driver", "", "SQL driver for the transactional resource (postgres, sqlite); in-memory when empty")
	dsn := fs.String("dsn", "", "SQL data source name")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	policy := retry.Policy{
		PolicyID:    "demo",
		MaxAttempts: cfg.MaxRetryAttempts,
		BaseMs:      cfg.BackoffBaseMs,
		CapMs:       cfg.BackoffCapMs,
	}
	limit := gate.RateLimitPolicy{Limit: cfg.RateLimit, Window: cfg.DefaultRateLimitWindow}

	if *profileDir != "" {
		profiles, err := config.LoadProfiles(*profileDir)
		if err != nil {
			fmt.Fprintf(stderr, "load profiles: %v\n", err)
			return 1
		}
		if p, ok := profiles["demo"]; ok {
			policy.MaxAttempts = p.Retry.MaxAttempts
			policy.BaseMs = p.Retry.BaseMs
			policy.CapMs = p.Retry.CapMs
			policy.MaxJitterMs = p.Retry.MaxJitterMs
			limit.Limit = p.RateLimit.Limit
			limit.Window = p.RateLimit.Window
			logger.Info("applied execution profile", "name", p.Name)
		}
	}

	ctx := context.Background()

	if cfg.OTLPEndpoint != "" {
		obsCfg := observability.DefaultConfig()
		obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
		provider, err := observability.New(ctx, obsCfg)
		if err != nil {
			fmt.Fprintf(stderr, "init observability: %v\n", err)
			return 1
		}
		defer func() { _ = provider.Shutdown(context.Background()) }()
	}

	authz := gate.NewAuthz()
	if err := authz.WriteTuple(ctx, gate.RelationTuple{Object: "ledger:demo", Relation: "writer", Subject: "user:demo-admin"}); err != nil {
		fmt.Fprintf(stderr, "seed authz: %v\n", err)
		return 1
	}

	g, err := gate.New(authz, gate.NewMemCounterStore(), limit, logger)
	if err != nil {
		fmt.Fprintf(stderr, "init gate: %v\n", err)
		return 1
	}

	store := audit.NewStore()
	sink := audit.NewStoreSink(store)

	var resource txn.Resource = txn.NewMemResource()
	if *driver != "" {
		sqlRes, err := txn.Open(*driver, *dsn)
		if err != nil {
			fmt.Fprintf(stderr, "open %s: %v\n", *driver, err)
			return 1
		}
		defer func() { _ = sqlRes.Close() }()
		resource = sqlRes
	}

	exec := executor.New(g, resource, monitor.New(nil), verify.NewValidator(), sink, policy)
	exec.SetAlertChannel(alert.WithTimeout(alert.NewLogChannel(logger), time.Duration(cfg.CriticalAlertTimeoutMs)*time.Millisecond))
	exec.SetQuarantineHook(func(q classify.Quarantine) {
		logger.Warn("quarantine signalled", "operation", q.OperationID, "resource", q.Resource, "reason", q.Reason)
	})
	exec.SetLogger(logger)

	actor := &identity.Principal{Subject: "demo-admin", Tenant: "demo", Role: []string{"admin"}}

	// A successful run.
	ectx := &contracts.ExecutionContext{Actor: actor, Origin: "cli"}
	res, err := exec.Execute(ctx, &demoOperation{id: "demo-apply-1", data: map[string]any{"amount": 42.5}}, ectx)
	if err != nil {
		fmt.Fprintf(stderr, "demo operation failed: %v\n", err)
		return 1
	}
	out, _ := json.MarshalIndent(res.Payload, "", "  ")
	fmt.Fprintf(stdout, "operation succeeded:\n%s\n", out)

	// A security-violating run: untrusted origin.
	bad := &contracts.ExecutionContext{Actor: actor, Origin: "unknown"}
	if _, err := exec.Execute(ctx, &demoOperation{id: "demo-apply-2", data: map[string]any{"amount": 1.0}}, bad); err != nil {
		fmt.Fprintf(stdout, "rejected as expected: %v\n", err)
	}

	// Show the audit chain.
	entries := store.Query(audit.QueryFilter{})
	fmt.Fprintf(stdout, "\naudit chain (%d entries, head %s):\n", len(entries), store.ChainHead()[:16])
	for _, e := range entries {
		fmt.Fprintf(stdout, "  #%d %-16s %s\n", e.Sequence, e.EntryType, e.EntryHash[:16])
	}
	if err := store.VerifyChain(); err != nil {
		fmt.Fprintf(stderr, "chain verification failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "chain verified")
	return 0
}

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("subject", "demo-admin", "token subject")
	tenant := fs.String("tenant", "demo", "tenant id")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	tm, err := identity.GenerateTokenManager("castellan/identity")
	if err != nil {
		fmt.Fprintf(stderr, "generate keys: %v\n", err)
		return 1
	}
	tok, err := tm.Issue(&identity.Principal{Subject: *subject, Tenant: *tenant, Role: []string{"admin"}}, *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "issue token: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, tok)

	p, err := tm.Validate(tok)
	if err != nil {
		fmt.Fprintf(stderr, "validate token: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "validated: subject=%s tenant=%s roles=%v\n", p.Subject, p.Tenant, p.Role)
	return 0
}
