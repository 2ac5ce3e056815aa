package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/fastcopy/internal/config"
	"github.com/bamsammich/fastcopy/internal/engine"
	"github.com/bamsammich/fastcopy/internal/event"
	"github.com/bamsammich/fastcopy/internal/filter"
	"github.com/bamsammich/fastcopy/internal/proto"
	"github.com/bamsammich/fastcopy/internal/stats"
	"github.com/bamsammich/fastcopy/internal/ui"
)

var version = "dev"

// Exit codes.
const (
	exitOK        = 0
	exitErrors    = 1
	exitFatal     = 2
	exitCancelled = 130
)

func main() {
	// Worker mode: re-exec'd child for process-mode copies.
	// Must be checked before cobra to avoid flag conflicts.
	if len(os.Args) == 2 && os.Args[1] == proto.WorkerModeFlag {
		os.Exit(runWorker())
	}

	os.Exit(run())
}

// runWorker serves copy jobs on stdin/stdout until the parent closes the
// pipe.
func runWorker() int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	// Ctrl-C reaches the whole process group; the parent decides when the
	// run stops and lets in-flight jobs finish.
	signal.Ignore(syscall.SIGINT)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	defer engine.CleanupTmpFiles()

	if err := proto.Serve(ctx, os.Stdin, os.Stdout, engine.ExecuteMsg); err != nil {
		slog.Error("copy worker failed", "error", err)
		return exitFatal
	}
	return exitOK
}

// options holds every root command flag.
type options struct {
	overwrite         bool
	quick             bool
	verify            bool
	verbose           bool
	quiet             bool
	noProgress        bool
	noDefaultExcludes bool
	mode              engine.Mode
	workers           int
	excludes          []string
	excludeFrom       string
	logFile           string
}

// defaultWorkers is twice the cores, at least 8 and at most 32.
func defaultWorkers() int {
	return min(32, max(8, 2*runtime.NumCPU()))
}

// modeFlag is a pflag.Value that parses --mode at flag-parse time.
type modeFlag struct {
	mode *engine.Mode
}

var _ pflag.Value = modeFlag{}

func (f modeFlag) String() string {
	if f.mode == nil {
		return ""
	}
	return f.mode.String()
}

func (modeFlag) Type() string { return "mode" }

func (f modeFlag) Set(val string) error {
	m, err := engine.ParseMode(val)
	if err != nil {
		return err
	}
	*f.mode = m
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "fastcopy [flags] <source> <destination>",
		Short: "Copy a directory tree in parallel",
		Long: `fastcopy replicates a directory tree into a destination using a pool of
parallel workers. Files already present at the destination are left alone
unless --overwrite is given. Symlinks are copied as the file they point to.`,
		Version:       version,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd, opts, args[0], args[1])
		},
	}

	f := rootCmd.Flags()
	f.BoolVar(&opts.overwrite, "overwrite", false, "replace files that already exist at the destination")
	f.Var(modeFlag{mode: &opts.mode}, "mode", "execution mode: thread or process")
	f.IntVarP(&opts.workers, "workers", "n", defaultWorkers(), "number of parallel copy workers")
	f.BoolVar(&opts.quick, "quick", true, "stream jobs without counting first (--quick=false counts the tree for an exact total)")
	f.StringArrayVar(&opts.excludes, "exclude", nil, "skip directories named NAME (repeatable)")
	f.StringVar(&opts.excludeFrom, "exclude-from", "", "read directory names to skip from FILE")
	f.BoolVar(&opts.noDefaultExcludes, "no-default-excludes", false, "do not skip node_modules")
	f.BoolVar(&opts.verify, "verify", false, "verify every copy with a BLAKE3 checksum")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")
	f.StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	f.BoolVar(&opts.noProgress, "no-progress", false, "disable progress display")

	rootCmd.AddCommand(docsCmd)
	return rootCmd
}

func run() int {
	defer engine.CleanupTmpFiles()

	if err := newRootCmd().Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}
	return exitOK
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: CLI entry point wires every component
func runCopy(cmd *cobra.Command, opts *options, src, dst string) error {
	// Configure logging.
	logLevel := slog.LevelWarn
	if opts.verbose {
		logLevel = slog.LevelDebug
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	// The presenter already prints per-file errors; the engine only writes
	// to the terminal when asked to be verbose or when the presenter is
	// silenced.
	var engineText slog.Handler = slog.DiscardHandler
	if opts.verbose || opts.quiet {
		engineText = textHandler
	}

	var logHandler, engineHandler slog.Handler = textHandler, engineText
	if opts.logFile != "" {
		lf, lfErr := os.Create(opts.logFile)
		if lfErr != nil {
			return fmt.Errorf("open log file: %w", lfErr)
		}
		defer lf.Close()
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
		engineHandler = ui.NewMultiHandler(engineText, jsonHandler)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	// Load optional config file.
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("ignoring config file", "error", err)
		cfg = config.Config{}
	}
	for _, key := range cfg.Undecoded {
		slog.Warn("unknown config key", "key", key, "path", config.Path())
	}
	if err := applyConfigDefaults(cmd, cfg.Defaults, opts); err != nil {
		return err
	}
	ui.ApplyTheme(cfg.Theme)

	if opts.workers < 1 {
		return fmt.Errorf("invalid --workers %d: must be at least 1", opts.workers)
	}
	exclude, err := buildExclude(opts)
	if err != nil {
		return err
	}
	counting := engine.CountQuick
	if !opts.quick {
		counting = engine.CountAccurate
	}

	// Set up context with signal handling. A second signal after the first
	// one restores the default action and kills the process.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	context.AfterFunc(ctx, stop)

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)

	// When --log is set, tee events through a logging goroutine
	// that writes structured records before forwarding to the presenter.
	presenterEvents := (<-chan event.Event)(events)
	if opts.logFile != "" {
		presenterEvents = teeEvents(events)
	}

	presenter := ui.NewPresenter(ui.Config{
		Writer:     os.Stdout,
		ErrWriter:  os.Stderr,
		Stats:      collector,
		Width:      ui.TermWidth(os.Stderr),
		IsTTY:      ui.IsTTY(os.Stderr),
		Quiet:      opts.quiet,
		NoProgress: opts.noProgress,
	})

	// Presenter in the background, engine in the foreground.
	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(presenterEvents)
	}()

	eng := engine.New(event.ChanSink(events),
		engine.WithLogger(slog.New(engineHandler)),
		engine.WithStats(collector),
	)
	result := eng.Start(ctx, engine.Config{
		Src:       src,
		Dst:       dst,
		Overwrite: opts.overwrite,
		Verify:    opts.verify,
		Mode:      opts.mode,
		Workers:   opts.workers,
		Counting:  counting,
		Exclude:   exclude,
	})
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
	}

	if !opts.quiet && !result.Fatal() {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(os.Stderr, summary)
		}
	}

	return exitFor(result)
}

// exitFor maps a run result to the process exit status.
func exitFor(result engine.Result) error {
	switch {
	case result.Verdict == engine.Success:
		return nil
	case result.Verdict == engine.Cancelled:
		return &exitError{code: exitCancelled}
	case result.Fatal():
		return &exitError{code: exitFatal}
	default:
		slog.Error("copy finished with errors", "errors", result.Errors, "error", result.Err)
		return &exitError{code: exitErrors}
	}
}

func teeEvents(events <-chan event.Event) <-chan event.Event {
	teed := make(chan event.Event, cap(events))
	go func() {
		for ev := range events {
			attrs := []slog.Attr{slog.String("type", ev.Type.String())}
			switch ev.Type {
			case event.Fatal, event.Log:
				attrs = append(attrs, slog.String("message", ev.Message))
			case event.TotalKnown:
				attrs = append(attrs, slog.Int64("total", ev.Total))
			case event.Progress:
				attrs = append(attrs, slog.Int64("copied", ev.Copied), slog.Int64("total", ev.Total))
			case event.Finished:
				attrs = append(attrs, slog.Bool("success", ev.Success))
			}
			slog.LogAttrs(context.Background(), slog.LevelInfo, "fastcopy.event", attrs...)
			teed <- ev
		}
		close(teed)
	}()
	return teed
}

// buildExclude assembles the pruning policy: the default set unless
// disabled, then --exclude names, then names from --exclude-from.
func buildExclude(opts *options) (*filter.Policy, error) {
	policy := filter.Default()
	if opts.noDefaultExcludes {
		policy = filter.NewPolicy()
	}
	for _, name := range opts.excludes {
		if err := policy.Add(name); err != nil {
			return nil, fmt.Errorf("invalid --exclude: %w", err)
		}
	}
	if opts.excludeFrom != "" {
		if err := policy.LoadFile(opts.excludeFrom); err != nil {
			return nil, fmt.Errorf("load exclude file: %w", err)
		}
	}
	return policy, nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, opts *options) error {
	changed := cmd.Flags().Changed
	if !changed("workers") && defaults.Workers != nil {
		opts.workers = *defaults.Workers
	}
	if !changed("mode") && defaults.Mode != nil {
		if err := (modeFlag{mode: &opts.mode}).Set(*defaults.Mode); err != nil {
			return fmt.Errorf("config mode: %w", err)
		}
	}
	if !changed("quick") && defaults.Quick != nil {
		opts.quick = *defaults.Quick
	}
	if !changed("overwrite") && defaults.Overwrite != nil {
		opts.overwrite = *defaults.Overwrite
	}
	if !changed("verify") && defaults.Verify != nil {
		opts.verify = *defaults.Verify
	}
	if !changed("exclude") && len(defaults.Exclude) > 0 {
		opts.excludes = defaults.Exclude
	}
	return nil
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
