package engine

// BackupManager guards the single mutating step of a patch run.
// Implementations copy the container to a sibling backup location before the
// operation runs, restore it byte-for-byte if the operation fails, and retain
// the backup on success as a recovery artifact for manual rollback.
type BackupManager interface {
	// BackupPath returns the deterministic backup location for a container
	// path. It does not touch the filesystem.
	BackupPath(path string) string

	// WithBackup snapshots path, invokes op, and restores the snapshot over
	// path if op returns an error. The error from op (or from the snapshot
	// itself) is returned; nil means op succeeded and the backup remains on
	// disk.
	WithBackup(path string, op func() error) error
}
