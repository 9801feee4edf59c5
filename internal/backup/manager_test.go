package backup_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"eggpatch/internal/backup"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestManager_BackupPath(t *testing.T) {
	t.Run("appends the default suffix", func(t *testing.T) {
		m := backup.NewManager("")
		if got := m.BackupPath("/opt/app.egg"); got != "/opt/app.egg.bak" {
			t.Errorf("BackupPath() = %q, want %q", got, "/opt/app.egg.bak")
		}
	})

	t.Run("appends a configured suffix", func(t *testing.T) {
		m := backup.NewManager(".orig")
		if got := m.BackupPath("/opt/app.egg"); got != "/opt/app.egg.orig" {
			t.Errorf("BackupPath() = %q, want %q", got, "/opt/app.egg.orig")
		}
	})
}

func TestManager_WithBackup(t *testing.T) {
	t.Run("retains the backup after success", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.egg")
		original := []byte("original bytes")
		writeFile(t, path, original)

		m := backup.NewManager("")
		err := m.WithBackup(path, func() error {
			writeFile(t, path, []byte("mutated bytes"))
			return nil
		})
		if err != nil {
			t.Fatalf("WithBackup() error = %v", err)
		}

		if got := readFile(t, path); !bytes.Equal(got, []byte("mutated bytes")) {
			t.Errorf("file = %q, want the mutation to stand", got)
		}
		if got := readFile(t, m.BackupPath(path)); !bytes.Equal(got, original) {
			t.Errorf("backup = %q, want the original bytes", got)
		}
	})

	t.Run("restores the original on failure", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.egg")
		original := []byte("original bytes")
		writeFile(t, path, original)

		opErr := errors.New("mid-write failure")
		m := backup.NewManager("")
		err := m.WithBackup(path, func() error {
			writeFile(t, path, []byte("partial garbage"))
			return opErr
		})
		if !errors.Is(err, opErr) {
			t.Fatalf("WithBackup() error = %v, want %v", err, opErr)
		}

		if got := readFile(t, path); !bytes.Equal(got, original) {
			t.Errorf("file = %q, want original restored byte-for-byte", got)
		}
		if _, err := os.Stat(m.BackupPath(path)); err != nil {
			t.Errorf("backup missing after failed operation: %v", err)
		}
	})

	t.Run("fails without invoking the operation when the source is missing", func(t *testing.T) {
		m := backup.NewManager("")
		invoked := false
		err := m.WithBackup(filepath.Join(t.TempDir(), "absent"), func() error {
			invoked = true
			return nil
		})
		if err == nil {
			t.Fatal("WithBackup() error = nil, want backup failure")
		}
		if invoked {
			t.Error("operation ran despite the backup failing")
		}
	})
}

func TestManager_Restore(t *testing.T) {
	t.Run("copies the backup back over the file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.egg")
		writeFile(t, path, []byte("patched"))
		writeFile(t, path+".bak", []byte("pristine"))

		m := backup.NewManager("")
		if err := m.Restore(path); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if got := readFile(t, path); !bytes.Equal(got, []byte("pristine")) {
			t.Errorf("file = %q, want %q", got, "pristine")
		}
		// The backup stays so a restore can be repeated.
		if _, err := os.Stat(path + ".bak"); err != nil {
			t.Errorf("backup removed by restore: %v", err)
		}
	})

	t.Run("fails when no backup exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.egg")
		writeFile(t, path, []byte("content"))

		m := backup.NewManager("")
		if err := m.Restore(path); err == nil {
			t.Error("Restore() error = nil, want missing-backup error")
		}
	})
}
