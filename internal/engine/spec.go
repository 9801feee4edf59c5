package engine

import "fmt"

// PatchSpec describes one fixed-length substitution inside a container
// member: the member to patch, the byte signature of the old value, and the
// replacement. Specs are supplied per target version as configuration data;
// the engine never hard-codes an encoding.
type PatchSpec struct {
	// Name identifies the target this spec came from (for reporting).
	Name string

	// Member is the container member holding the patch site.
	Member string

	// Old is the exact byte signature of the value to replace.
	Old []byte

	// New is the replacement value. Must be the same length as Old: member
	// length fields cannot be recomputed for a resized member, so only
	// offset-preserving substitution is supported.
	New []byte
}

// Validate checks the structural requirements that hold for any spec,
// independent of container contents. The old/new length invariant is
// enforced separately by the engine's state machine so that a mismatched
// spec still reports the richer length-mismatch outcome.
func (s PatchSpec) Validate() error {
	if s.Member == "" {
		return fmt.Errorf("patch spec has no member name")
	}
	if len(s.Old) == 0 {
		return fmt.Errorf("patch spec has an empty old-value signature")
	}
	if len(s.New) == 0 {
		return fmt.Errorf("patch spec has an empty new-value signature")
	}
	return nil
}
