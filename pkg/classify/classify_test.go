package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/castellan-io/castellan/pkg/contracts"
)

func TestRules_Classify(t *testing.T) {
	rules := Rules{}

	cases := []struct {
		name string
		err  error
		want contracts.Classification
	}{
		{"nil", nil, ""},
		{"unknown is permanent", errors.New("no idea"), contracts.ClassPermanent},
		{"timeout sentinel", fmt.Errorf("db: %w", contracts.ErrTimeout), contracts.ClassTransient},
		{"contention sentinel", contracts.ErrContention, contracts.ClassTransient},
		{"unavailable sentinel", fmt.Errorf("redis: %w", contracts.ErrUnavailable), contracts.ClassTransient},
		{"security sentinel", fmt.Errorf("gate: %w", contracts.ErrSecurity), contracts.ClassSecurityViolation},
		{"integrity sentinel", fmt.Errorf("verify: %w", contracts.ErrIntegrity), contracts.ClassIntegrityViolation},
		{"context canceled", context.Canceled, contracts.ClassCancelled},
		{"deadline exceeded", fmt.Errorf("op: %w", context.DeadlineExceeded), contracts.ClassCancelled},
		{"transient marker", Transient(errors.New("busy")), contracts.ClassTransient},
		{"permanent marker", Permanent(contracts.ErrTimeout), contracts.ClassPermanent},
		{"security marker", Security(errors.New("spoofed origin")), contracts.ClassSecurityViolation},
		{"integrity marker", Integrity(errors.New("bad hash")), contracts.ClassIntegrityViolation},
		{"wrapped marker", fmt.Errorf("outer: %w", Transient(errors.New("inner"))), contracts.ClassTransient},
		{
			"execution error keeps its class",
			contracts.NewExecutionError(contracts.CodeTransient, contracts.ClassTransient, "op-1", 1, errors.New("x")),
			contracts.ClassTransient,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rules.Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestRules_ClassifyPure(t *testing.T) {
	rules := Rules{}
	err := fmt.Errorf("wrapped: %w", contracts.ErrContention)
	first := rules.Classify(err)
	for i := 0; i < 100; i++ {
		if got := rules.Classify(err); got != first {
			t.Fatalf("classification changed between calls: %s vs %s", got, first)
		}
	}
}

func TestMarkers_PreserveCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Transient(cause)
	if !errors.Is(err, cause) {
		t.Error("marker hides the cause from errors.Is")
	}
	if err.Error() != "root cause" {
		t.Errorf("marker message = %q", err.Error())
	}
}

func TestQuarantineFor(t *testing.T) {
	ectx := &contracts.ExecutionContext{
		Metadata: map[string]string{"resource": "plugin:gallery", "version": "1.4.2"},
	}
	q := QuarantineFor("op-7", ectx, "checksum mismatch")

	if q.OperationID != "op-7" || q.Resource != "plugin:gallery" || q.Reason != "checksum mismatch" {
		t.Errorf("quarantine = %+v", q)
	}
	if q.Version == nil || q.Version.String() != "1.4.2" {
		t.Errorf("version = %v, want 1.4.2", q.Version)
	}
}

func TestQuarantineFor_MissingMetadata(t *testing.T) {
	q := QuarantineFor("op-8", &contracts.ExecutionContext{}, "corrupt")
	if q.Resource != "" || q.Version != nil {
		t.Errorf("quarantine = %+v, want empty resource and nil version", q)
	}

	bad := &contracts.ExecutionContext{Metadata: map[string]string{"version": "not-semver"}}
	if q := QuarantineFor("op-9", bad, "corrupt"); q.Version != nil {
		t.Errorf("invalid semver parsed to %v", q.Version)
	}
}
