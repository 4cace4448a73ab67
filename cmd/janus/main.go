// Command janus performs a one-way, local-only, content-addressed
// synchronization of a destination tree to match a source tree.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/janus-sync/janus/internal/config"
	"github.com/janus-sync/janus/internal/logging"
	"github.com/janus-sync/janus/sync/core"
)

// Exit codes follow the convention of the core error taxonomy: 0 for a
// clean run, 1 when the run completed but recorded non-fatal problems, 2
// for a fatal/aborted run, and 3 for invalid invocation.
const (
	exitSuccess      = 0
	exitWithProblems = 1
	exitFatal        = 2
	exitUsage        = 3
)

var rootConfiguration struct {
	dryRun        bool
	delete        bool
	assumeYes     bool
	quiet         bool
	threads       int
	verify        bool
	preserveMode  bool
	preserveMtime bool
	hash          string
}

var rootCommand = &cobra.Command{
	Use:   "janus <source> <destination>",
	Short: "Synchronize a destination directory tree to match a source directory tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(command *cobra.Command, arguments []string) error {
		return run(arguments[0], arguments[1])
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.dryRun, "dry-run", "n", false, "Compute and print the plan without applying it")
	flags.BoolVarP(&rootConfiguration.delete, "delete", "d", false, "Remove destination content that doesn't exist in source")
	flags.BoolVarP(&rootConfiguration.assumeYes, "yes", "y", false, "Don't prompt for confirmation before deleting")
	flags.BoolVarP(&rootConfiguration.quiet, "quiet", "q", false, "Suppress progress output")
	flags.IntVarP(&rootConfiguration.threads, "threads", "j", 0, "Worker count for scanning and copying (default: number of CPUs)")
	flags.BoolVar(&rootConfiguration.verify, "verify", false, "Re-hash transferred content before publishing it")
	flags.BoolVar(&rootConfiguration.preserveMode, "preserve-mode", false, "Propagate source permission bits to destination")
	flags.BoolVar(&rootConfiguration.preserveMtime, "preserve-mtime", false, "Propagate source modification times to destination")
	flags.StringVar(&rootConfiguration.hash, "hash", "", "Hashing algorithm to use for content addressing (blake2b-256 or sha256)")
}

func run(sourceRoot, destinationRoot string) error {
	hashAlgorithm, err := core.ParseHashAlgorithm(rootConfiguration.hash)
	if err != nil {
		return usageError(err)
	}
	if rootsOverlap(sourceRoot, destinationRoot) {
		return usageError(core.ErrRootsOverlap)
	}

	options := config.Default()
	options.Threads = rootConfiguration.threads
	options.Delete = rootConfiguration.delete
	options.PreserveMode = rootConfiguration.preserveMode
	options.PreserveMtime = rootConfiguration.preserveMtime
	options.Verify = rootConfiguration.verify
	options.HashAlgorithm = hashAlgorithm
	if err := options.EnsureValid(); err != nil {
		return usageError(err)
	}

	runID := uuid.New().String()
	logLevel := logging.LevelInfo
	if rootConfiguration.quiet {
		logLevel = logging.LevelWarn
	}
	logger := logging.NewLogger(logLevel).Sublogger(runID[:8])

	printer := &statusLinePrinter{quiet: rootConfiguration.quiet}
	progress := newConsoleProgress(printer)

	ctx := context.Background()

	var sourceInventory, destinationInventory core.ScanResult
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		progress.ScanStarted(sourceRoot)
		result, err := core.Scan(groupCtx, sourceRoot, core.ScanOptions{
			Threads: options.Threads, HashAlgorithm: options.HashAlgorithm, Logger: logger.Sublogger("source"),
		})
		if err != nil {
			return fmt.Errorf("unable to scan source: %w", err)
		}
		sourceInventory = result
		return nil
	})
	group.Go(func() error {
		result, err := core.Scan(groupCtx, destinationRoot, core.ScanOptions{
			Threads: options.Threads, HashAlgorithm: options.HashAlgorithm, Logger: logger.Sublogger("destination"),
		})
		if err != nil {
			return fmt.Errorf("unable to scan destination: %w", err)
		}
		destinationInventory = result
		return nil
	})
	if err := group.Wait(); err != nil {
		return fatalError(err)
	}
	progress.ScanFinished(len(sourceInventory.Inventory.Entries), len(sourceInventory.Problems)+len(destinationInventory.Problems))

	plan := core.PlanSync(sourceInventory.Inventory, destinationInventory.Inventory, core.Options{
		Delete: options.Delete, PreserveMode: options.PreserveMode, PreserveMtime: options.PreserveMtime,
	})
	printer.BreakIfNonEmpty()
	progress.PlanReady(plan.Summary)
	printer.BreakIfNonEmpty()

	if rootConfiguration.dryRun {
		printPlan(plan)
		return nil
	}

	if plan.Summary.Deletes > 0 && !rootConfiguration.assumeYes {
		if !confirmDeletes(plan.Summary.Deletes) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	result, err := core.Apply(ctx, plan, sourceInventory.Inventory.Root, destinationInventory.Inventory.Root, core.ApplyOptions{
		Threads: options.Threads, Verify: options.Verify, HashAlgorithm: options.HashAlgorithm,
		Logger: logger.Sublogger("executor"), Sink: progress,
	})
	printer.BreakIfNonEmpty()
	if err != nil {
		return fatalError(err)
	}

	fmt.Printf("Applied %d actions", result.Applied)
	if len(result.Problems) > 0 {
		fmt.Printf(" (%d problems)\n", len(result.Problems))
		for _, p := range result.Problems {
			logger.Warn(p)
		}
		os.Exit(exitWithProblems)
	}
	fmt.Println()
	return nil
}

// rootsOverlap reports whether one root is identical to, or a path prefix
// of, the other. Roots must be distinct and non-overlapping.
func rootsOverlap(a, b string) bool {
	a, b = strings.TrimRight(a, "/"), strings.TrimRight(b, "/")
	if a == b {
		return true
	}
	return strings.HasPrefix(a+"/", b+"/") || strings.HasPrefix(b+"/", a+"/")
}

func confirmDeletes(count uint64) bool {
	fmt.Printf("This will delete %d destination entr(ies). Continue? [y/N] ", count)
	var response string
	fmt.Scanln(&response)
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

func printPlan(plan core.Plan) {
	for _, a := range plan.Actions {
		fmt.Println(describeAction(a))
	}
}

func describeAction(a core.PlanAction) string {
	switch a.Type {
	case core.ActionCopy:
		return fmt.Sprintf("copy       %s", a.SrcRel)
	case core.ActionOverwrite:
		return fmt.Sprintf("overwrite  %s", a.DstRel)
	case core.ActionLocalRename:
		return fmt.Sprintf("rename     %s -> %s", a.FromRel, a.ToRel)
	case core.ActionLocalCopy:
		return fmt.Sprintf("local-copy %s -> %s", a.FromRel, a.ToRel)
	case core.ActionCreateDir:
		return fmt.Sprintf("mkdir      %s", a.Rel)
	case core.ActionCreateSymlink:
		return fmt.Sprintf("symlink    %s -> %s", a.Rel, a.Target)
	case core.ActionDelete:
		return fmt.Sprintf("delete     %s", a.Rel)
	case core.ActionUpdateMode:
		return fmt.Sprintf("chmod      %s", a.Rel)
	case core.ActionUpdateMtime:
		return fmt.Sprintf("touch      %s", a.Rel)
	default:
		return fmt.Sprintf("unknown    %s", a.Rel)
	}
}

func usageError(err error) error {
	return cobraExitError{err: err, code: exitUsage}
}

func fatalError(err error) error {
	return cobraExitError{err: err, code: exitFatal}
}

// cobraExitError carries the process exit code alongside the error cobra
// prints, since RunE only gives Cobra the error itself.
type cobraExitError struct {
	err  error
	code int
}

func (e cobraExitError) Error() string { return e.err.Error() }

func main() {
	if err := rootCommand.Execute(); err != nil {
		code := exitUsage
		if exitErr, ok := err.(cobraExitError); ok {
			code = exitErr.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(code)
	}
}
