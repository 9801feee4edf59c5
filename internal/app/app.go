package app

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"eggpatch/internal/backup"
	"eggpatch/internal/config"
	"eggpatch/internal/container"
	"eggpatch/internal/engine"
	"eggpatch/internal/history"
	"eggpatch/internal/targets"
)

// App is the application layer between the CLI and the patch engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the journal lifecycle on Close.
type App struct {
	cfg     *config.Config
	codec   *container.ZipCodec
	backup  *backup.Manager
	journal history.Journal
	table   *targets.Table
	engine  *engine.Engine
	clock   engine.Clock
	idgen   engine.IDGenerator
	logFile *os.File
}

// New creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Patch", "Inspect").
// The caller must call Close when done.
func New(cfg *config.Config, operation string) (*App, error) {
	bm := backup.NewManager(cfg.Backup.Suffix)
	codec := container.NewZipCodec()

	table := targets.Builtin()
	if cfg.Targets.Path != "" {
		var err error
		table, err = targets.LoadFile(cfg.Targets.Path)
		if err != nil {
			return nil, fmt.Errorf("loading targets table: %w", err)
		}
	}

	journal, err := history.NewJournalFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating run journal: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger.Debug("app initialized", "operation", operation)

	eng := engine.New(codec, bm, &slogAdapter{l: logger})

	return &App{
		cfg:     cfg,
		codec:   codec,
		backup:  bm,
		journal: journal,
		table:   table,
		engine:  eng,
		clock:   engine.RealClock{},
		idgen:   engine.UUIDGenerator{},
		logFile: logFile,
	}, nil
}

// FindContainer locates the container file using the configured directory
// and glob pattern. Exactly one match is required: zero matches means the
// host application is not installed where expected, and more than one means
// the choice is ambiguous, which this tool never resolves by guessing.
func (a *App) FindContainer() (string, error) {
	pattern := filepath.Join(a.cfg.Container.Dir, a.cfg.Container.Pattern)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("globbing %s: %w", pattern, err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no container matching %s", pattern)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%d containers match %s: specify one explicitly", len(matches), pattern)
	}
}

// resolveContainer turns a raw CLI argument into an absolute path to an
// existing regular file. An empty argument falls back to configured
// discovery.
func (a *App) resolveContainer(rawPath string) (string, error) {
	if rawPath == "" {
		return a.FindContainer()
	}

	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat container: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("container is not a regular file: %s", absPath)
	}
	return absPath, nil
}

// Patch selects the applicable target for the container and runs the patch
// engine. Business outcomes are reported in the result's Status; an error is
// returned only when the run could not be attempted or journaled.
func (a *App) Patch(rawPath string) (engine.PatchResult, error) {
	path, err := a.resolveContainer(rawPath)
	if err != nil {
		return engine.PatchResult{}, err
	}

	target, err := a.selectTarget(path)
	if err != nil {
		return engine.PatchResult{}, err
	}

	var spec engine.PatchSpec
	if target != nil {
		spec = target.Spec()
	}

	run := &history.Run{
		ID:            a.idgen.New(),
		ContainerPath: path,
		Target:        spec.Name,
		Member:        spec.Member,
		Status:        "running",
		StartedAt:     a.clock.Now(),
	}
	if err := a.journal.CreateRun(run); err != nil {
		return engine.PatchResult{}, fmt.Errorf("recording patch run: %w", err)
	}

	var res engine.PatchResult
	if target == nil {
		// No table entry recognizes this container: an unknown or
		// unsupported version, reported like a missing signature.
		res = engine.PatchResult{Status: engine.StatusSignatureAbsent, Offset: -1}
	} else {
		res = a.engine.Run(path, spec)
	}

	if err := a.finishRun(run.ID, res); err != nil {
		return res, err
	}
	return res, nil
}

// finishRun journals the terminal state of a run.
func (a *App) finishRun(id string, res engine.PatchResult) error {
	var offset sql.NullInt64
	if res.Offset >= 0 {
		offset = sql.NullInt64{Int64: res.Offset, Valid: true}
	}
	var backupPath sql.NullString
	if res.BackupPath != "" {
		backupPath = sql.NullString{String: res.BackupPath, Valid: true}
	}
	var errMsg sql.NullString
	if res.Err != nil {
		errMsg = sql.NullString{String: res.Err.Error(), Valid: true}
	}

	if err := a.journal.FinishRun(id, string(res.Status), offset, backupPath, errMsg, a.clock.Now()); err != nil {
		return fmt.Errorf("finishing patch run: %w", err)
	}
	return nil
}

// selectTarget opens the container read-only and walks the target table in
// declared order. Returns nil when no target fingerprint matches.
func (a *App) selectTarget(path string) (*targets.Target, error) {
	c, err := container.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening container: %w", err)
	}
	defer c.Close()

	target, err := a.table.Select(c.ReadMember)
	if err != nil {
		return nil, fmt.Errorf("selecting target: %w", err)
	}
	return target, nil
}

// InspectReport summarizes a container without mutating it.
type InspectReport struct {
	Path    string
	Members []container.MemberInfo
	Target  string // name of the detected target, empty when none matches
}

// Inspect lists the container's members and reports which target (if any)
// recognizes it.
func (a *App) Inspect(rawPath string) (*InspectReport, error) {
	path, err := a.resolveContainer(rawPath)
	if err != nil {
		return nil, err
	}

	c, err := container.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening container: %w", err)
	}
	defer c.Close()

	report := &InspectReport{
		Path:    path,
		Members: c.Members(),
	}

	target, err := a.table.Select(c.ReadMember)
	if err != nil {
		return nil, fmt.Errorf("selecting target: %w", err)
	}
	if target != nil {
		report.Target = target.Name
	}
	return report, nil
}

// Restore copies the retained backup back over the container. Returns the
// backup path that was applied.
func (a *App) Restore(rawPath string) (string, error) {
	path, err := a.resolveContainer(rawPath)
	if err != nil {
		return "", err
	}
	if err := a.backup.Restore(path); err != nil {
		return "", err
	}
	return a.backup.BackupPath(path), nil
}

// History returns the most recent patch runs, newest first.
func (a *App) History(limit int) ([]*history.Run, error) {
	return a.journal.ListRuns(limit)
}

// Targets returns the active target table in selection order.
func (a *App) Targets() []*targets.Target {
	return a.table.Targets()
}

// Close releases the journal and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.journal.Close(); err != nil {
		firstErr = fmt.Errorf("closing journal: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
