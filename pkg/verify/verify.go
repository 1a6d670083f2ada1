// Package verify checks operation output before it is allowed to
// commit: the result's own validity flag, payload integrity against the
// declared checksum, and caller-supplied business rules.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/castellan-io/castellan/pkg/contracts"
)

// ErrNoResult is returned when the operation produced no result at all.
var ErrNoResult = errors.New("verify: operation produced no result")

// Rule is a business-rule check applied after the structural checks.
type Rule func(res *contracts.OperationResult) error

// Validator gates a result before commit.
type Validator struct {
	rules []Rule
}

// NewValidator creates a Validator with optional business rules.
func NewValidator(rules ...Rule) *Validator {
	return &Validator{rules: rules}
}

// Check rejects the result if the validity flag is unset, the declared
// checksum does not match the payload, or any business rule fails.
// Checksum mismatches wrap contracts.ErrIntegrity so the classifier
// routes them to quarantine.
func (v *Validator) Check(res *contracts.OperationResult) error {
	if res == nil {
		return ErrNoResult
	}
	if !res.Valid {
		return errors.New("verify: result marked invalid by operation")
	}

	if res.Checksum != "" {
		actual, err := Checksum(res.Payload)
		if err != nil {
			return fmt.Errorf("verify: checksum compute: %w", err)
		}
		if actual != res.Checksum {
			return fmt.Errorf("verify: payload checksum %s does not match declared %s: %w",
				actual, res.Checksum, contracts.ErrIntegrity)
		}
	}

	for _, rule := range v.rules {
		if err := rule(res); err != nil {
			return fmt.Errorf("verify: business rule: %w", err)
		}
	}
	return nil
}

// Checksum returns "sha256:<hex>" over the JCS canonical form of the
// payload. Operations use this to stamp results; Check recomputes it.
func Checksum(payload map[string]any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
