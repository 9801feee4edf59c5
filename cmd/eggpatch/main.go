package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"eggpatch/internal/app"
	"eggpatch/internal/config"
	"eggpatch/internal/engine"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Exit codes reported to the orchestration layer. Every terminal engine
// state maps to a distinct code so callers can branch without parsing text.
const (
	exitOK                 = 0
	exitError              = 1
	exitSignatureAbsent    = 3
	exitSignatureAmbiguous = 4
	exitLengthMismatch     = 5
	exitIOFailure          = 6
)

// statusExit carries a non-zero exit code out of a command without losing
// the printed outcome.
type statusExit struct {
	code int
}

func (e *statusExit) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func exitCodeFor(status engine.Status) int {
	switch status {
	case engine.StatusPersisted, engine.StatusAlreadyPatched:
		return exitOK
	case engine.StatusSignatureAbsent:
		return exitSignatureAbsent
	case engine.StatusSignatureAmbiguous:
		return exitSignatureAmbiguous
	case engine.StatusLengthMismatch:
		return exitLengthMismatch
	case engine.StatusIOFailure:
		return exitIOFailure
	default:
		return exitError
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var se *statusExit
		if errors.As(err, &se) {
			os.Exit(se.code)
		}
		os.Exit(exitError)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Patch", "Inspect").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "eggpatch",
	Short:         "Patch the connection limit inside an egg container",
	SilenceErrors: false,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Container Dir: %s\n", cfg.Container.Dir)
		fmt.Printf("Pattern:       %s\n", cfg.Container.Pattern)
		fmt.Printf("Backup Suffix: %s\n", cfg.Backup.Suffix)
		return nil
	},
}

// patch command
var patchCmd = &cobra.Command{
	Use:   "patch [CONTAINER]",
	Short: "Apply the connection-limit patch",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		a, err := newApp("Patch")
		if err != nil {
			return err
		}
		defer a.Close()

		target := ""
		if len(args) > 0 {
			target = args[0]
		}

		if !yes {
			ok, err := confirmPatch(target)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		res, err := a.Patch(target)
		if err != nil {
			return err
		}

		printResult(res)

		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		if code := exitCodeFor(res.Status); code != exitOK {
			return &statusExit{code: code}
		}
		return nil
	},
}

// confirmPatch asks for interactive confirmation. Refuses when stdin is not
// a terminal so unattended runs must opt in explicitly with --yes.
func confirmPatch(target string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("stdin is not a terminal; pass --yes to patch without confirmation")
	}

	what := target
	if what == "" {
		what = "the discovered container"
	}
	fmt.Printf("Patch %s? A backup will be retained next to it. [y/N]: ", what)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func printResult(res engine.PatchResult) {
	switch res.Status {
	case engine.StatusPersisted:
		fmt.Printf("Patched %s at offset %d.\n", res.Member, res.Offset)
		fmt.Printf("Backup retained at %s\n", res.BackupPath)
	case engine.StatusAlreadyPatched:
		fmt.Println("Container is already patched; nothing to do.")
	case engine.StatusSignatureAbsent:
		fmt.Println("No known signature found: unknown or unsupported version.")
	case engine.StatusSignatureAmbiguous:
		fmt.Println("Signature matches more than once; refusing to guess. No changes made.")
	case engine.StatusLengthMismatch:
		fmt.Println("Old and new values differ in length; refusing to patch. No changes made.")
	case engine.StatusIOFailure:
		fmt.Printf("Patch failed: %v\n", res.Err)
		fmt.Println("The original container has been restored.")
	}
}

// inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [CONTAINER]",
	Short: "List container members and detect the patch target",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Inspect")
		if err != nil {
			return err
		}
		defer a.Close()

		target := ""
		if len(args) > 0 {
			target = args[0]
		}

		report, err := a.Inspect(target)
		if err != nil {
			return err
		}

		fmt.Printf("Container: %s\n", report.Path)
		if report.Target != "" {
			fmt.Printf("Detected target: %s\n", report.Target)
		} else {
			fmt.Println("Detected target: none")
		}
		fmt.Println()
		for _, m := range report.Members {
			method := "stored"
			if m.Compressed {
				method = "deflate"
			}
			fmt.Printf("%10d  %10d  %08x  %-8s  %s\n",
				m.UncompressedSize, m.CompressedSize, m.CRC32, method, m.Name)
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore [CONTAINER]",
	Short: "Copy the retained backup back over the container",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		target := ""
		if len(args) > 0 {
			target = args[0]
		}

		backupPath, err := a.Restore(target)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored from %s\n", backupPath)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View patch run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No patch runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				d := r.FinishedAt.Time.Sub(r.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %s  %-20s  %-20s  %s\n",
				r.ID[:8],
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				r.Target,
				duration,
			)
		}
		return nil
	},
}

// targets command
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage patch targets",
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patch targets in selection order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListTargets")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, t := range a.Targets() {
			fmt.Printf("%s\n", t.Name)
			fmt.Printf("  member: %s\n", t.Member)
			fmt.Printf("  detect: %s\n", t.Detect)
			fmt.Printf("  old:    % x\n", t.Old)
			fmt.Printf("  new:    % x\n", t.New)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// targets subcommands
	targetsCmd.AddCommand(targetsListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(patchCmd)
	patchCmd.Flags().BoolP("yes", "y", false, "Skip the interactive confirmation")
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(targetsCmd)
}
