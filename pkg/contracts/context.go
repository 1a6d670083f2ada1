package contracts

// Principal identifies who an operation runs for. Satisfied by
// identity.Principal; kept minimal here so the pipeline does not depend
// on any particular token format.
type Principal interface {
	ID() string
	TenantID() string
	Roles() []string
}

// ExecutionContext identifies who and where an operation runs for.
// Owned by the caller and passed by reference through the pipeline.
// The executor mutates only Attempt.
type ExecutionContext struct {
	// Actor is the acting principal. Nil for unauthenticated callers.
	Actor Principal

	// Origin is the originating address (IP, host, queue name).
	Origin string

	// Metadata carries free-form caller data. Recognized keys:
	// "idempotency_key" (caller-side dedup), "resource" and "version"
	// (quarantine target on integrity violations).
	Metadata map[string]string

	// Attempt is the 1-based attempt counter, incremented by the
	// executor on retry.
	Attempt int
}

// ActorID returns the acting principal's ID, or "anonymous".
func (c *ExecutionContext) ActorID() string {
	if c == nil || c.Actor == nil {
		return "anonymous"
	}
	return c.Actor.ID()
}

// Meta returns the metadata value for key, or "".
func (c *ExecutionContext) Meta(key string) string {
	if c == nil || c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}
