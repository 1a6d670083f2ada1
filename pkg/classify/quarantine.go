package classify

import (
	"github.com/Masterminds/semver/v3"

	"github.com/castellan-io/castellan/pkg/contracts"
)

// Quarantine signals that a resource produced untrustworthy data and
// must be marked non-usable by the caller. The executor only emits the
// signal; quarantine storage belongs to the caller's hook.
type Quarantine struct {
	OperationID string
	Resource    string
	// Version is the parsed resource version, nil when absent or not
	// valid semver.
	Version *semver.Version
	Reason  string
}

// QuarantineHook receives quarantine signals. Hooks must not block.
type QuarantineHook func(q Quarantine)

// QuarantineFor builds the signal for an integrity violation from the
// execution context metadata ("resource", "version" keys).
func QuarantineFor(opID string, ectx *contracts.ExecutionContext, reason string) Quarantine {
	q := Quarantine{
		OperationID: opID,
		Resource:    ectx.Meta("resource"),
		Reason:      reason,
	}
	if raw := ectx.Meta("version"); raw != "" {
		if v, err := semver.NewVersion(raw); err == nil {
			q.Version = v
		}
	}
	return q
}
