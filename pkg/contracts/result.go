package contracts

// OperationResult is the output of a successfully executed operation.
// Created only by Operation.Execute.
type OperationResult struct {
	// Payload is the result data.
	Payload map[string]any `json:"payload"`

	// Valid is the operation's own assertion that the result is usable.
	// The result validator rejects results with Valid == false.
	Valid bool `json:"valid"`

	// Checksum is "sha256:<hex>" over the JCS-canonicalized payload.
	// Empty skips the integrity comparison.
	Checksum string `json:"checksum,omitempty"`

	// Signature is an optional detached signature over Checksum,
	// verified by a caller-supplied business rule.
	Signature string `json:"signature,omitempty"`
}
