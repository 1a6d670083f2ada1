// Package gate performs every pre-execution check: structural input
// validation, authorization, rate limiting, and security predicates.
package gate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/castellan-io/castellan/pkg/contracts"
)

// RateLimitPolicy bounds operations per actor per window.
type RateLimitPolicy struct {
	Limit  int
	Window time.Duration
}

// Gate bundles the pre-execution checks. Safe for concurrent use.
type Gate struct {
	authz    *Authz
	counters CounterStore
	limit    RateLimitPolicy
	preds    *Predicates
	log      *slog.Logger

	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema // keyed by schema source hash
}

// New creates a Gate. authz may be nil (all access checks fail for
// operations that declare permissions), counters may be nil (rate
// limiting passes open with a warning).
func New(authz *Authz, counters CounterStore, limit RateLimitPolicy, log *slog.Logger) (*Gate, error) {
	if log == nil {
		log = slog.Default()
	}
	preds, err := NewPredicates()
	if err != nil {
		return nil, err
	}
	return &Gate{
		authz:    authz,
		counters: counters,
		limit:    limit,
		preds:    preds,
		log:      log,
		schemas:  make(map[string]*jsonschema.Schema),
	}, nil
}

// Validate checks the input payload against the operation's declared
// JSON Schema. Structural checks only; business rules live with the
// result validator. An empty schema passes.
func (g *Gate) Validate(input map[string]any, schemaSrc string) error {
	if schemaSrc == "" {
		return nil
	}

	schema, err := g.compile(schemaSrc)
	if err != nil {
		return fmt.Errorf("gate: schema compile: %w", err)
	}

	// Round-trip through JSON so numeric types match what the schema
	// validator expects regardless of how the payload was built.
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("gate: input not serializable: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("gate: input decode: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("gate: input validation: %w", err)
	}
	return nil
}

// CheckAccess reports whether the acting principal holds every required
// permission. Operations with no declared permissions pass for any
// caller, including anonymous ones.
func (g *Gate) CheckAccess(ctx context.Context, ectx *contracts.ExecutionContext, perms []contracts.Permission) (bool, error) {
	if len(perms) == 0 {
		return true, nil
	}
	if ectx == nil || ectx.Actor == nil {
		return false, nil
	}
	if g.authz == nil {
		return false, nil
	}

	subject := "user:" + ectx.Actor.ID()
	for _, p := range perms {
		ok, err := g.authz.Check(ctx, p.Object, p.Relation, subject)
		if err != nil {
			return false, fmt.Errorf("gate: access check %s#%s: %w", p.Object, p.Relation, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// CheckRateLimit increments the counter for (actor, key) and reports
// whether the configured window limit still holds. The counter moves on
// every check, allowed or not. Returns false, never an error, when the
// limit is exceeded; store failures fail closed.
func (g *Gate) CheckRateLimit(ctx context.Context, ectx *contracts.ExecutionContext, key string) bool {
	if key == "" || g.limit.Limit <= 0 {
		return true
	}
	if g.counters == nil {
		g.log.Warn("rate limit check skipped: no counter store configured", "key", key)
		return true
	}

	bucket := bucketKey(ectx.ActorID(), key)
	n, err := g.counters.Incr(ctx, bucket, g.limit.Window)
	if err != nil {
		g.log.Error("rate limit counter failure, failing closed", "bucket", bucket, "error", err)
		return false
	}
	return n <= int64(g.limit.Limit)
}

// Window returns the configured rate-limit window, used by callers to
// surface a retry-after hint.
func (g *Gate) Window() time.Duration { return g.limit.Window }

// CheckSecurity evaluates every named predicate the operation declares.
// Returns the name of the first failing predicate, or "" if all hold.
func (g *Gate) CheckSecurity(ctx context.Context, ectx *contracts.ExecutionContext, input map[string]any, reqs []contracts.Requirement) (string, error) {
	for _, req := range reqs {
		ok, err := g.preds.Eval(ctx, req, ectx, input)
		if err != nil {
			return req.Name, fmt.Errorf("gate: predicate %q: %w", req.Name, err)
		}
		if !ok {
			return req.Name, nil
		}
	}
	return "", nil
}

func (g *Gate) compile(src string) (*jsonschema.Schema, error) {
	sum := sha256.Sum256([]byte(src))
	key := hex.EncodeToString(sum[:])

	g.mu.RLock()
	schema, ok := g.schemas[key]
	g.mu.RUnlock()
	if ok {
		return schema, nil
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://castellan.schemas.local/gate/%s.schema.json", key[:16])
	if err := c.AddResource(url, strings.NewReader(src)); err != nil {
		return nil, err
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.schemas[key] = schema
	g.mu.Unlock()
	return schema, nil
}

func bucketKey(actorID, key string) string {
	return "rate_limit:" + actorID + ":" + key
}
