package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/yuya-takeyama/sure-backup/internal/config"
	"github.com/yuya-takeyama/sure-backup/internal/logging"
	"github.com/yuya-takeyama/sure-backup/pkg/backup"
	"github.com/yuya-takeyama/sure-backup/pkg/engine"
	"github.com/yuya-takeyama/sure-backup/pkg/logger"
	"github.com/yuya-takeyama/sure-backup/pkg/strategy"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	mode           string
	strategyName   string
	errorPolicy    string
	criteria       string
	verify         bool
	dryRun         bool
	excludes       []string
	excludeNames   []string
	quiet          bool
	verbose        bool
	noColor        bool
	noProgress     bool
	resultJSONFile string
	configPath     string
	setName        string
	unitName       string
	verifyRun      bool
	logFile        string
	logJSON        bool
	logLevel       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sure-backup [<SourceDir> <TargetDir>]",
		Short: "Directory backup and mirroring with verification",
		Long: `sure-backup copies, mirrors or verifies a directory tree against a backup
target. Units can be given on the command line or read from a YAML config
of backup sets.`,
		Version:      fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:         validateArgs,
		RunE:         run,
		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&mode, "mode", "copy", "Backup mode: copy, sync or verify")
	flags.StringVar(&strategyName, "strategy", "sequential", "Execution strategy: sequential, parallel or comparing")
	flags.StringVar(&errorPolicy, "error-policy", "continue", "What to do on a failed item: continue or suspend")
	flags.StringVar(&criteria, "criteria", "size,time", "Comma separated change detection criteria: size, time, data")
	flags.BoolVar(&verify, "verify", false, "Re-read every copied file and compare it with its source")
	flags.BoolVar(&dryRun, "dryrun", false, "Shows operations without executing")
	flags.StringSliceVar(&excludes, "exclude", nil, "Exclude path patterns relative to the source (multiple allowed)")
	flags.StringSliceVar(&excludeNames, "exclude-name", nil, "Exclude entry name patterns, case-insensitive (multiple allowed)")
	flags.StringVar(&configPath, "config", "", "Path to the config file (default $"+config.EnvPath+")")
	flags.StringVar(&setName, "set", "", "Backup set to run from the config (default: first set)")
	flags.StringVar(&unitName, "unit", "", "Run only this unit of the selected set")
	flags.BoolVar(&verifyRun, "verify-run", false, "Compare every unit against its target without writing anything")
	flags.StringVar(&resultJSONFile, "result-json-file", "", "Path to output result as JSON file")

	pflags := rootCmd.PersistentFlags()
	pflags.BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	pflags.BoolVar(&verbose, "verbose", false, "Print progress counters and worker status")
	pflags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pflags.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	pflags.StringVar(&logFile, "log-file", "", "Also write a structured log to this file (rotated)")
	pflags.BoolVar(&logJSON, "log-json", false, "Write the structured log as JSON")
	pflags.StringVar(&logLevel, "log-level", "info", "Structured log level: debug, info, warn or error")

	rootCmd.AddCommand(newConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func validateArgs(cmd *cobra.Command, args []string) error {
	switch len(args) {
	case 0:
		if config.Path(configPath) == "" {
			return fmt.Errorf("either <SourceDir> <TargetDir> or --config is required")
		}
		return nil
	case 2:
		return nil
	}
	return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
}

func run(cmd *cobra.Command, args []string) error {
	if noColor {
		color.NoColor = true
	}

	slogger, closer, err := newStructuredLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	jobs, title, err := buildJobs(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := logger.Multi{logger.NewConsole(quiet, verbose)}
	var bar *logger.Progress
	if !noProgress && !quiet {
		bar = logger.NewProgress(os.Stderr)
		sinks = append(sinks, bar)
	}
	if slogger != nil {
		sinks = append(sinks, logger.NewSlog(slogger))
	}
	var rec *logger.Recorder
	if resultJSONFile != "" {
		rec = &logger.Recorder{}
		sinks = append(sinks, rec)
	}

	eng := engine.New(sinks)
	results, err := eng.RunAll(ctx, jobs, dryRun, title)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	logging.PrintSummary(os.Stdout, results, quiet)

	if rec != nil {
		if err := writeRunResult(resultJSONFile, buildRunResult(results, rec.Actions())); err != nil {
			return fmt.Errorf("failed to write result JSON: %w", err)
		}
	}

	return exitError(results)
}

// newStructuredLogger sets up the slog sink. It returns a nil logger when
// neither a log file nor JSON output was requested.
func newStructuredLogger() (*slog.Logger, io.Closer, error) {
	opts := logging.DefaultOptions()
	if err := opts.Level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	opts.JSON = logJSON
	opts.File = logFile

	l, closer := logging.New(opts)
	logging.SetDefault(l)
	if logFile == "" && !logJSON {
		return nil, closer, nil
	}
	return l, closer, nil
}

func buildJobs(args []string) ([]engine.Job, string, error) {
	if len(args) == 0 {
		return jobsFromConfig(config.Path(configPath))
	}

	task, kind, err := taskFromFlags(args[0], args[1])
	if err != nil {
		return nil, "", err
	}
	return []engine.Job{{Kind: kind, Task: task}}, task.Name, nil
}

func jobsFromConfig(path string) ([]engine.Job, string, error) {
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, "", err
	}
	title, units, err := cfg.Select(setName, unitName)
	if err != nil {
		return nil, "", err
	}

	jobs := make([]engine.Job, 0, len(units))
	for _, u := range units {
		job, err := u.Job(verifyRun)
		if err != nil {
			return nil, "", err
		}
		slog.Debug("unit selected", logging.Unit(u.Name), logging.Strategy(job.Kind.String()))
		jobs = append(jobs, job)
	}
	return jobs, title, nil
}

func taskFromFlags(source, target string) (backup.Task, strategy.Kind, error) {
	m, err := backup.ParseMode(mode)
	if err != nil {
		return backup.Task{}, 0, err
	}
	policy, err := backup.ParseErrorPolicy(errorPolicy)
	if err != nil {
		return backup.Task{}, 0, err
	}
	kind, err := strategy.ParseKind(strategyName)
	if err != nil {
		return backup.Task{}, 0, err
	}
	c, err := parseCriteria(criteria)
	if err != nil {
		return backup.Task{}, 0, err
	}
	if verifyRun {
		m, kind = backup.ModeVerify, strategy.KindComparing
	}

	source, target = getAbsolutePath(source), getAbsolutePath(target)
	if filepath.Clean(source) == filepath.Clean(target) {
		return backup.Task{}, 0, errors.New("source and target are the same path")
	}

	return backup.Task{
		Name:         filepath.Base(source),
		Source:       source,
		Target:       target,
		Mode:         m,
		Verify:       verify,
		ErrorPolicy:  policy,
		Criteria:     c,
		Excludes:     excludes,
		ExcludeNames: excludeNames,
	}, kind, nil
}

// parseCriteria reads a comma separated list such as "size,time,data".
// "none" disables every check, so only missing targets are copied.
func parseCriteria(s string) (backup.Criteria, error) {
	var c backup.Criteria
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "", "none":
		case "size":
			c.Size = true
		case "time", "mtime":
			c.Time = true
		case "data", "content":
			c.Data = true
		default:
			return backup.Criteria{}, fmt.Errorf("unknown criterion %q (want size, time or data)", part)
		}
	}
	return c, nil
}

// exitError turns unit outcomes into the command error, which sets a
// non-zero exit status.
func exitError(results []backup.Result) error {
	var interrupted, failed int
	for _, r := range results {
		switch {
		case r.Status == backup.StatusInterrupted:
			interrupted++
		case !r.OK():
			failed++
		}
	}
	switch {
	case interrupted > 0:
		return errors.New("interrupted")
	case failed > 0:
		return fmt.Errorf("%d of %d units did not complete cleanly", failed, len(results))
	}
	return nil
}

func getAbsolutePath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
