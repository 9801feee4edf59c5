package testutil

import (
	"testing"

	"eggpatch/internal/history"
)

// NewTestJournal creates an in-memory run journal that is closed when the
// test finishes.
func NewTestJournal(t *testing.T) history.Journal {
	t.Helper()

	j, err := history.NewSQLiteJournal(":memory:")
	if err != nil {
		t.Fatalf("creating test journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}
