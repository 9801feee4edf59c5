// Package engine orchestrates a patch run: locate the signature, verify the
// substitution is safe, apply it in memory, and persist the rewritten
// container under a backup guard.
package engine

import (
	"fmt"

	"eggpatch/internal/signature"
)

// Engine executes patch runs. It holds no per-run state; a single Engine can
// serve any number of sequential runs. Callers must not run two engines
// against the same container path concurrently; exclusive access for the
// duration of one run is assumed, not enforced.
type Engine struct {
	codec  Codec
	backup BackupManager
	logger Logger
}

// New creates an Engine with the given dependencies.
func New(codec Codec, backup BackupManager, logger Logger) *Engine {
	return &Engine{
		codec:  codec,
		backup: backup,
		logger: logger,
	}
}

// Run applies spec to the container at path and reports the terminal state.
//
// The run proceeds Initial → Loaded → Located → Verified → Applied →
// Persisted. Every state before the persist step is read-only; the single
// mutating transition is wrapped by the backup manager, which restores the
// original file on any write failure. Business outcomes (already patched,
// signature absent or ambiguous, length mismatch) are reported in the
// result's Status, never as errors.
func (e *Engine) Run(path string, spec PatchSpec) PatchResult {
	res := PatchResult{
		Status: StatusIOFailure,
		Target: spec.Name,
		Member: spec.Member,
		Offset: -1,
	}

	if err := spec.Validate(); err != nil {
		res.Err = fmt.Errorf("invalid patch spec: %w", err)
		return res
	}

	// Initial → Loaded
	c, err := e.codec.Open(path)
	if err != nil {
		res.Err = fmt.Errorf("opening container: %w", err)
		return res
	}
	defer c.Close()

	data, err := c.ReadMember(spec.Member)
	if err != nil {
		res.Err = fmt.Errorf("reading member %s: %w", spec.Member, err)
		return res
	}
	e.logger.Debug("member loaded", "member", spec.Member, "size", len(data))

	// Loaded → Located
	offsets := signature.Locate(data, spec.Old)
	switch {
	case len(offsets) == 0:
		if len(signature.Locate(data, spec.New)) > 0 {
			e.logger.Info("container already patched", "path", path, "target", spec.Name)
			res.Status = StatusAlreadyPatched
			res.Err = nil
			return res
		}
		e.logger.Warn("signature not found", "path", path, "target", spec.Name)
		res.Status = StatusSignatureAbsent
		res.Err = nil
		return res
	case len(offsets) > 1:
		// A wrong guess would silently corrupt unrelated logic.
		e.logger.Warn("signature is ambiguous", "path", path, "target", spec.Name, "matches", len(offsets))
		res.Status = StatusSignatureAmbiguous
		res.Err = nil
		return res
	}
	offset := offsets[0]

	// Located → Verified
	if len(spec.Old) != len(spec.New) {
		e.logger.Warn("old/new value lengths differ", "old", len(spec.Old), "new", len(spec.New))
		res.Status = StatusLengthMismatch
		res.Err = nil
		return res
	}

	// Verified → Applied: only the matched byte range changes.
	patched := make([]byte, len(data))
	copy(patched, data)
	copy(patched[offset:], spec.New)

	// Applied → Persisted: the one mutating transition, under backup guard.
	backupPath := e.backup.BackupPath(path)
	err = e.backup.WithBackup(path, func() error {
		return c.WriteMembers(map[string][]byte{spec.Member: patched})
	})
	if err != nil {
		e.logger.Error("persisting patched container failed, original restored", "path", path, "error", err)
		res.Err = fmt.Errorf("persisting patched container: %w", err)
		return res
	}

	e.logger.Info("patch persisted",
		"path", path,
		"target", spec.Name,
		"member", spec.Member,
		"offset", offset,
		"backup", backupPath,
	)

	res.Status = StatusPersisted
	res.Offset = int64(offset)
	res.BackupPath = backupPath
	return res
}
