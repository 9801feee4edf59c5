package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/eggpatch",
		LogDir:  "/home/user/.local/share/eggpatch/log",
		Container: ContainerConfig{
			Dir:     "/usr/local/openvpn_as/lib/python",
			Pattern: "pyovpn-*.egg",
		},
		Backup:   BackupConfig{Suffix: ".orig"},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/eggpatch/data"},
		Targets:  TargetsConfig{Path: "/etc/eggpatch/targets.toml"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Container.Dir != original.Container.Dir {
		t.Errorf("Container.Dir = %q, want %q", got.Container.Dir, original.Container.Dir)
	}
	if got.Container.Pattern != original.Container.Pattern {
		t.Errorf("Container.Pattern = %q, want %q", got.Container.Pattern, original.Container.Pattern)
	}
	if got.Backup.Suffix != ".orig" {
		t.Errorf("Backup.Suffix = %q, want %q", got.Backup.Suffix, ".orig")
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
	if got.Database.DataDir != original.Database.DataDir {
		t.Errorf("Database.DataDir = %q, want %q", got.Database.DataDir, original.Database.DataDir)
	}
	if got.Targets.Path != original.Targets.Path {
		t.Errorf("Targets.Path = %q, want %q", got.Targets.Path, original.Targets.Path)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/eggpatch")

	if cfg.BaseDir != "/data/eggpatch" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/eggpatch")
	}
	if cfg.LogDir != filepath.Join("/data/eggpatch", "log") {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, filepath.Join("/data/eggpatch", "log"))
	}
	if cfg.Backup.Suffix != ".bak" {
		t.Errorf("Backup.Suffix = %q, want %q", cfg.Backup.Suffix, ".bak")
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", cfg.Database.Type, "sqlite")
	}
	if cfg.Container.Pattern != "pyovpn-*.egg" {
		t.Errorf("Container.Pattern = %q, want %q", cfg.Container.Pattern, "pyovpn-*.egg")
	}
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads an existing config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "eggpatch.toml")
		content := `
base_dir = "/var/lib/eggpatch"
log_dir = "/var/log/eggpatch"

[container]
dir = "/opt/ovpn/lib/python"
pattern = "pyovpn-*.egg"

[backup]
suffix = ".bak"

[database]
type = "memory"
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if cfg.BaseDir != "/var/lib/eggpatch" {
			t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/var/lib/eggpatch")
		}
		if cfg.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", cfg.Database.Type, "memory")
		}
	})

	t.Run("fails when the file is missing", func(t *testing.T) {
		if _, err := ReadFromFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
			t.Error("ReadFromFile() error = nil, want open error")
		}
	})
}

func TestInit(t *testing.T) {
	t.Run("creates a new config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf", "eggpatch.toml")
		cfg := NewConfig("/data/eggpatch")

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.BaseDir != cfg.BaseDir {
			t.Errorf("BaseDir = %q, want %q", got.BaseDir, cfg.BaseDir)
		}
	})

	t.Run("refuses to overwrite an existing config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "eggpatch.toml")
		if err := os.WriteFile(path, []byte("base_dir = \"/existing\"\n"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := Init(path, NewConfig("/data")); err == nil {
			t.Error("Init() error = nil, want already-exists error")
		}
	})
}
