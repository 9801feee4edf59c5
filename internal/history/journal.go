// Package history records every patch run in a local SQLite journal so an
// operator can audit what was patched, when, and where the backup went.
package history

import (
	"database/sql"
	"time"
)

// Run is one journaled engine invocation.
type Run struct {
	ID            string // UUID
	ContainerPath string
	Target        string
	Member        string
	Status        string // terminal engine status; empty until finished
	MatchOffset   sql.NullInt64
	BackupPath    sql.NullString
	Error         sql.NullString
	StartedAt     time.Time
	FinishedAt    sql.NullTime
}

// Journal stores patch run records.
type Journal interface {
	// CreateRun inserts a new run record with its start time.
	CreateRun(run *Run) error

	// FinishRun records the terminal state of a run.
	FinishRun(id string, status string, offset sql.NullInt64, backupPath, errMsg sql.NullString, finishedAt time.Time) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)

	// Close closes the underlying database.
	Close() error
}
