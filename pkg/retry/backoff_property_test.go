//go:build property
// +build property

package retry_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/castellan-io/castellan/pkg/retry"
)

func TestBackoff_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genPolicy := gopter.CombineGens(
		gen.Int64Range(1, 1000),  // base
		gen.Int64Range(1, 60000), // cap
		gen.Int64Range(0, 2000),  // jitter
	).Map(func(vals []interface{}) retry.Policy {
		return retry.Policy{
			PolicyID:    "prop",
			MaxAttempts: 10,
			BaseMs:      vals[0].(int64),
			CapMs:       vals[1].(int64),
			MaxJitterMs: vals[2].(int64),
		}.Normalize()
	})

	properties.Property("delays are deterministic for the same attempt", prop.ForAll(
		func(policy retry.Policy, opID string, attempt int) bool {
			params := retry.BackoffParams{PolicyID: policy.PolicyID, OperationID: opID, AttemptIndex: attempt}
			return retry.Backoff(params, policy) == retry.Backoff(params, policy)
		},
		genPolicy,
		gen.Identifier(),
		gen.IntRange(0, 100),
	))

	properties.Property("delays never exceed the cap", prop.ForAll(
		func(policy retry.Policy, opID string, attempt int) bool {
			d := retry.Backoff(retry.BackoffParams{PolicyID: policy.PolicyID, OperationID: opID, AttemptIndex: attempt}, policy)
			return d >= 0 && d <= time.Duration(policy.CapMs)*time.Millisecond
		},
		genPolicy,
		gen.Identifier(),
		gen.IntRange(0, 100),
	))

	properties.Property("delay sequence is non-decreasing", prop.ForAll(
		func(policy retry.Policy, opID string) bool {
			var prev time.Duration
			for i := 0; i < policy.MaxAttempts; i++ {
				d := retry.Backoff(retry.BackoffParams{PolicyID: policy.PolicyID, OperationID: opID, AttemptIndex: i}, policy)
				if d < prev {
					return false
				}
				prev = d
			}
			return true
		},
		genPolicy,
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
