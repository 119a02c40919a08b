package vdf

import "fmt"

// RangeError reports a caller-error / invariant violation: an out-of-range
// input, a malformed argument, or another programmer mistake that the
// engine refuses to proceed on. It is distinct from cryptographic
// rejection, which is always a plain bool (see Verify / VerifyWithChallenge)
// -- RangeError is for bugs, not for forged proofs.
type RangeError struct {
	Field string // the parameter or invariant that was violated
	Msg   string // human-readable detail
}

func (e *RangeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("vdf: %s", e.Msg)
	}
	return fmt.Sprintf("vdf: %s: %s", e.Field, e.Msg)
}

func rangeErrf(field, format string, args ...any) error {
	return &RangeError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
