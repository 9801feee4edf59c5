package history

import (
	"fmt"
	"os"
	"path/filepath"

	"eggpatch/internal/config"
)

// NewJournalFromConfig creates a Journal based on the database config type.
func NewJournalFromConfig(cfg config.DatabaseConfig) (Journal, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		return NewSQLiteJournal(filepath.Join(cfg.DataDir, "eggpatch.db"))
	case "memory":
		return NewSQLiteJournal(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
