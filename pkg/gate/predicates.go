package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/castellan-io/castellan/pkg/contracts"
)

// Predicates compiles and evaluates named CEL security requirements.
// Programs are compiled once per (name, expression) and cached.
type Predicates struct {
	env   *cel.Env
	mu    sync.RWMutex
	progs map[string]cel.Program
}

// NewPredicates builds the CEL environment the predicates run in.
// Exposed variables: actor {id, tenant, roles}, origin, input, metadata,
// timestamp (unix seconds).
func NewPredicates() (*Predicates, error) {
	env, err := cel.NewEnv(
		cel.Variable("actor", cel.DynType),
		cel.Variable("origin", cel.StringType),
		cel.Variable("input", cel.DynType),
		cel.Variable("metadata", cel.DynType),
		cel.Variable("timestamp", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("predicates: cel env: %w", err)
	}
	return &Predicates{
		env:   env,
		progs: make(map[string]cel.Program),
	}, nil
}

// Eval runs one requirement against the execution context and input.
// A predicate that does not evaluate to bool is an evaluation error,
// not a pass.
func (p *Predicates) Eval(ctx context.Context, req contracts.Requirement, ectx *contracts.ExecutionContext, input map[string]any) (bool, error) {
	prog, err := p.program(req)
	if err != nil {
		return false, err
	}

	actor := map[string]any{"id": "", "tenant": "", "roles": []string{}}
	origin := ""
	metadata := map[string]string{}
	if ectx != nil {
		origin = ectx.Origin
		if ectx.Metadata != nil {
			metadata = ectx.Metadata
		}
		if ectx.Actor != nil {
			actor = map[string]any{
				"id":     ectx.Actor.ID(),
				"tenant": ectx.Actor.TenantID(),
				"roles":  ectx.Actor.Roles(),
			}
		}
	}
	if input == nil {
		input = map[string]any{}
	}

	out, _, err := prog.Eval(map[string]any{
		"actor":     actor,
		"origin":    origin,
		"input":     input,
		"metadata":  metadata,
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return false, err
	}

	verdict, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("predicate %q did not evaluate to bool", req.Name)
	}
	return verdict, nil
}

func (p *Predicates) program(req contracts.Requirement) (cel.Program, error) {
	key := req.Name + "\x00" + req.Expr

	p.mu.RLock()
	prog, ok := p.progs[key]
	p.mu.RUnlock()
	if ok {
		return prog, nil
	}

	ast, iss := p.env.Compile(req.Expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile: %w", iss.Err())
	}
	prog, err := p.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}

	p.mu.Lock()
	p.progs[key] = prog
	p.mu.Unlock()
	return prog, nil
}
