// Package backup makes point-in-time copies of container files and restores
// them when a mutation fails.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"eggpatch/internal/engine"
)

// DefaultSuffix is appended to the container path to derive the backup path.
const DefaultSuffix = ".bak"

// Manager implements engine.BackupManager with sibling backup files.
// The backup path is derived deterministically from the original path so the
// operator (or the restore command) can always find the recovery artifact.
type Manager struct {
	suffix string
}

// NewManager creates a Manager. An empty suffix selects DefaultSuffix.
func NewManager(suffix string) *Manager {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &Manager{suffix: suffix}
}

// BackupPath returns the backup location for path.
func (m *Manager) BackupPath(path string) string {
	return path + m.suffix
}

// WithBackup copies path to its backup location, invokes op, and copies the
// backup back over path if op fails. The backup is retained in both cases and
// can be applied later with Restore.
func (m *Manager) WithBackup(path string, op func() error) error {
	backupPath := m.BackupPath(path)
	if err := copyFile(path, backupPath); err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}

	if err := op(); err != nil {
		if rerr := m.Restore(path); rerr != nil {
			return fmt.Errorf("restoring backup after failure (%v): %w", err, rerr)
		}
		return err
	}
	return nil
}

// Restore copies the retained backup back over path. The backup file is kept
// afterwards so a restore can be repeated.
func (m *Manager) Restore(path string) error {
	backupPath := m.BackupPath(path)
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("no backup to restore: %w", err)
	}
	if err := copyFile(backupPath, path); err != nil {
		return fmt.Errorf("restoring backup: %w", err)
	}
	return nil
}

// copyFile writes a byte-identical copy of src at dst, carrying the source
// mode. The copy goes through a temp file in the destination directory and
// lands via rename, so a partially written dst is never observed.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, in); err != nil {
		tmpFile.Close()
		return fmt.Errorf("copying data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting mode: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that Manager implements engine.BackupManager
var _ engine.BackupManager = (*Manager)(nil)
