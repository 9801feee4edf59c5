package engine

// Status is the terminal state of a patch run. Every run ends in exactly one
// of these; business outcomes are statuses, not errors.
type Status string

const (
	// StatusPersisted: the patch was applied and the rewritten container
	// replaced the original atomically.
	StatusPersisted Status = "persisted"

	// StatusAlreadyPatched: the old-value signature is absent but the
	// new-value signature is present. Re-running a patch is a safe no-op.
	StatusAlreadyPatched Status = "already-patched"

	// StatusSignatureAbsent: neither the old nor the new value was found.
	// The member layout is an unknown or unsupported version.
	StatusSignatureAbsent Status = "signature-absent"

	// StatusSignatureAmbiguous: the old-value signature occurs more than
	// once. The engine refuses to guess which occurrence is the patch site.
	StatusSignatureAmbiguous Status = "signature-ambiguous"

	// StatusLengthMismatch: the spec's old and new values differ in length.
	StatusLengthMismatch Status = "length-mismatch"

	// StatusIOFailure: the container could not be read, parsed, or
	// rewritten. On write failures the original file has been restored from
	// the backup.
	StatusIOFailure Status = "io-failure"
)

// Mutated reports whether the container file was changed by a run ending in
// this status. Only StatusPersisted mutates; every other terminal state
// leaves the file byte-identical to its pre-run content.
func (s Status) Mutated() bool { return s == StatusPersisted }

// PatchResult is the immutable record of one engine invocation. It is
// created once per run, returned to the caller, and never mutated afterward.
type PatchResult struct {
	Status Status

	// Target names the spec that was applied (PatchSpec.Name).
	Target string

	// Member is the container member that was examined.
	Member string

	// Offset is the byte offset of the signature match within the
	// decompressed member, or -1 when no unique match was found.
	Offset int64

	// BackupPath is the retained recovery artifact, set only on
	// StatusPersisted.
	BackupPath string

	// Err carries the underlying fault for StatusIOFailure, nil otherwise.
	Err error
}
