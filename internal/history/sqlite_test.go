package history_test

import (
	"database/sql"
	"testing"
	"time"

	"eggpatch/internal/config"
	"eggpatch/internal/history"
	"eggpatch/internal/testutil"
)

func newJournal(t *testing.T) history.Journal {
	t.Helper()
	return testutil.NewTestJournal(t)
}

func startedAt(offset time.Duration) time.Time {
	return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC).Add(offset)
}

func TestSQLiteJournal(t *testing.T) {
	t.Run("creates and lists runs", func(t *testing.T) {
		j := newJournal(t)

		run := &history.Run{
			ID:            "run-1",
			ContainerPath: "/opt/pyovpn-2.0.egg",
			Target:        "connection-limit",
			Member:        "pyovpn/lic/uprop.pyc",
			Status:        "running",
			StartedAt:     startedAt(0),
		}
		if err := j.CreateRun(run); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}

		runs, err := j.ListRuns(10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("len(runs) = %d, want 1", len(runs))
		}
		got := runs[0]
		if got.ID != "run-1" {
			t.Errorf("ID = %q, want %q", got.ID, "run-1")
		}
		if got.ContainerPath != "/opt/pyovpn-2.0.egg" {
			t.Errorf("ContainerPath = %q, want %q", got.ContainerPath, "/opt/pyovpn-2.0.egg")
		}
		if got.FinishedAt.Valid {
			t.Error("FinishedAt set before FinishRun")
		}
	})

	t.Run("finishes a run with its terminal state", func(t *testing.T) {
		j := newJournal(t)

		run := &history.Run{
			ID:            "run-1",
			ContainerPath: "/opt/app.egg",
			Target:        "connection-limit",
			Member:        "m",
			Status:        "running",
			StartedAt:     startedAt(0),
		}
		if err := j.CreateRun(run); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}

		err := j.FinishRun("run-1", "persisted",
			sql.NullInt64{Int64: 23, Valid: true},
			sql.NullString{String: "/opt/app.egg.bak", Valid: true},
			sql.NullString{},
			startedAt(2*time.Second),
		)
		if err != nil {
			t.Fatalf("FinishRun() error = %v", err)
		}

		runs, err := j.ListRuns(10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		got := runs[0]
		if got.Status != "persisted" {
			t.Errorf("Status = %q, want %q", got.Status, "persisted")
		}
		if !got.MatchOffset.Valid || got.MatchOffset.Int64 != 23 {
			t.Errorf("MatchOffset = %+v, want 23", got.MatchOffset)
		}
		if !got.BackupPath.Valid || got.BackupPath.String != "/opt/app.egg.bak" {
			t.Errorf("BackupPath = %+v, want /opt/app.egg.bak", got.BackupPath)
		}
		if got.Error.Valid {
			t.Errorf("Error = %+v, want NULL", got.Error)
		}
		if !got.FinishedAt.Valid {
			t.Error("FinishedAt not set")
		}
	})

	t.Run("rejects finishing an unknown run", func(t *testing.T) {
		j := newJournal(t)
		err := j.FinishRun("missing", "persisted", sql.NullInt64{}, sql.NullString{}, sql.NullString{}, startedAt(0))
		if err == nil {
			t.Error("FinishRun() error = nil, want unknown-run error")
		}
	})

	t.Run("lists newest first and honors the limit", func(t *testing.T) {
		j := newJournal(t)

		for i, id := range []string{"run-a", "run-b", "run-c"} {
			run := &history.Run{
				ID:            id,
				ContainerPath: "/opt/app.egg",
				Target:        "connection-limit",
				Member:        "m",
				Status:        "running",
				StartedAt:     startedAt(time.Duration(i) * time.Minute),
			}
			if err := j.CreateRun(run); err != nil {
				t.Fatalf("CreateRun(%s) error = %v", id, err)
			}
		}

		runs, err := j.ListRuns(2)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("len(runs) = %d, want 2", len(runs))
		}
		if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
			t.Errorf("order = %s, %s; want run-c, run-b", runs[0].ID, runs[1].ID)
		}
	})
}

func TestNewJournalFromConfig(t *testing.T) {
	t.Run("creates a sqlite journal under data_dir", func(t *testing.T) {
		j, err := history.NewJournalFromConfig(config.DatabaseConfig{
			Type:    "sqlite",
			DataDir: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() error = %v", err)
		}
		defer j.Close()
	})

	t.Run("creates a memory journal", func(t *testing.T) {
		j, err := history.NewJournalFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() error = %v", err)
		}
		defer j.Close()
	})

	t.Run("requires data_dir for sqlite", func(t *testing.T) {
		if _, err := history.NewJournalFromConfig(config.DatabaseConfig{Type: "sqlite"}); err == nil {
			t.Error("NewJournalFromConfig() error = nil, want data_dir error")
		}
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		if _, err := history.NewJournalFromConfig(config.DatabaseConfig{Type: "cloud"}); err == nil {
			t.Error("NewJournalFromConfig() error = nil, want unknown-type error")
		}
	})
}
