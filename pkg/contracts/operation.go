// Package contracts defines the data model shared by every stage of the
// guarded execution pipeline: operations, execution contexts, results,
// audit records, and the failure taxonomy.
package contracts

import "context"

// Operation is a unit of critical work submitted to the executor.
// Implementations must be immutable once submitted; the executor never
// mutates an Operation and may invoke Execute once per attempt.
type Operation interface {
	// ID uniquely identifies the operation. Assigned at submission.
	ID() string

	// Execute performs the business logic and produces the result.
	// Only the operation itself constructs an OperationResult; the
	// executor never synthesizes one.
	Execute(ctx context.Context) (*OperationResult, error)

	// Data returns the opaque input payload checked by the gate.
	Data() map[string]any

	// ValidationSchema returns the JSON Schema source the input payload
	// is validated against. Empty string skips structural validation.
	ValidationSchema() string

	// RequiredPermissions lists the relations the acting principal must
	// hold before the operation may run.
	RequiredPermissions() []Permission

	// SecurityRequirements lists named predicates that must all hold.
	// A failing predicate is a security violation, not a validation error.
	SecurityRequirements() []Requirement

	// RateLimitKey scopes rate limiting. Combined with the actor identity
	// to form the counter bucket.
	RateLimitKey() string
}

// Permission is a single required relation on an object, checked against
// the relation graph ("doc:readme" / "editor").
type Permission struct {
	Object   string `json:"object"`
	Relation string `json:"relation"`
}

// Requirement is a named security predicate. Expr is a CEL expression
// evaluated against the execution context and input payload.
type Requirement struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}
