package history

import (
	"database/sql"
	"fmt"
	"time"

	"eggpatch/internal/history/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the journal database at path and
// migrates the schema to the latest version.
// path can be a file path or ":memory:" for an in-memory journal.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) CreateRun(run *Run) error {
	_, err := j.db.Exec(`
		INSERT INTO patch_runs (id, container_path, target, member, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.ContainerPath, run.Target, run.Member, run.Status, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting patch run: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) FinishRun(id string, status string, offset sql.NullInt64, backupPath, errMsg sql.NullString, finishedAt time.Time) error {
	res, err := j.db.Exec(`
		UPDATE patch_runs
		SET status = ?, match_offset = ?, backup_path = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		status, offset, backupPath, errMsg, finishedAt, id,
	)
	if err != nil {
		return fmt.Errorf("finishing patch run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no patch run with id %s", id)
	}
	return nil
}

func (j *SQLiteJournal) ListRuns(limit int) ([]*Run, error) {
	rows, err := j.db.Query(`
		SELECT id, container_path, target, member, status, match_offset, backup_path, error, started_at, finished_at
		FROM patch_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing patch runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.ContainerPath, &r.Target, &r.Member, &r.Status,
			&r.MatchOffset, &r.BackupPath, &r.Error, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning patch run: %w", err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patch runs: %w", err)
	}
	return runs, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Compile-time check that SQLiteJournal implements Journal
var _ Journal = (*SQLiteJournal)(nil)
