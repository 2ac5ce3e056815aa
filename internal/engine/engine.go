// Package engine replicates a directory tree onto a destination using a
// bounded pool of workers, reporting progress through an event.Sink.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bamsammich/fastcopy/internal/event"
	"github.com/bamsammich/fastcopy/internal/filter"
	"github.com/bamsammich/fastcopy/internal/stats"
)

// Sentinel errors for validation and lifecycle failures.
var (
	ErrSourceMissing = errors.New("source directory does not exist")
	ErrSourceNotDir  = errors.New("source is not a directory")
	ErrNestedDest    = errors.New("destination is inside the source directory")
	ErrRunning       = errors.New("a copy is already running on this engine")
	ErrCancelled     = errors.New("copy cancelled")
)

// Mode selects where jobs execute.
type Mode int

const (
	// ModeThread runs jobs on goroutines in this process.
	ModeThread Mode = iota
	// ModeProcess runs jobs in re-executed child processes.
	ModeProcess
)

func (m Mode) String() string {
	switch m {
	case ModeThread:
		return "thread"
	case ModeProcess:
		return "process"
	default:
		return "unknown"
	}
}

// ParseMode accepts "thread(s)" or "process(es)".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "thread", "threads":
		return ModeThread, nil
	case "process", "processes":
		return ModeProcess, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want thread or process)", s)
	}
}

// Counting selects whether the tree is counted before copying starts.
type Counting int

const (
	// CountQuick streams jobs into the pool as the walk finds them; the
	// total is never known.
	CountQuick Counting = iota
	// CountAccurate walks the whole tree first and announces the total.
	CountAccurate
)

func (c Counting) String() string {
	if c == CountAccurate {
		return "accurate"
	}
	return "quick"
}

// Config describes one copy run.
type Config struct {
	Src       string
	Dst       string
	Overwrite bool
	Verify    bool
	Mode      Mode
	Workers   int
	Counting  Counting
	// Exclude prunes directories by bare name. Nil means filter.Default().
	Exclude *filter.Policy
	// WorkerCommand overrides the process-mode child argv. Empty means
	// re-execute this binary with the worker flag.
	WorkerCommand []string
}

// Verdict is the terminal state of a run.
type Verdict int

const (
	Success Verdict = iota
	Failed
	Cancelled
)

func (v Verdict) String() string {
	switch v {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result summarizes a finished run.
type Result struct {
	Err     error
	Verdict Verdict
	Copied  int64 // completed jobs, success or failure
	Errors  int64 // failed jobs plus walk errors
	Skipped int64 // successful jobs that copied nothing
	Total   int64 // accurate mode only
	Bytes   int64
	Elapsed time.Duration
}

// Fatal reports whether the run was aborted before any job ran.
func (r Result) Fatal() bool {
	return r.Verdict == Failed && r.Errors == 0
}

// Engine runs copies one at a time. Cancel may be called from any goroutine.
type Engine struct {
	sink    event.Sink
	logger  *slog.Logger
	stats   stats.Writer
	cancel  atomic.Bool
	running atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStats mirrors every counter update into w for live presenters.
func WithStats(w stats.Writer) Option {
	return func(e *Engine) { e.stats = w }
}

// New returns an idle Engine that reports to sink. A nil sink discards.
func New(sink event.Sink, opts ...Option) *Engine {
	if sink == nil {
		sink = event.Discard
	}
	e := &Engine{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cancel requests cooperative cancellation: no new job is submitted and
// in-flight jobs are awaited. A Cancel before Start applies to the next run.
func (e *Engine) Cancel() {
	e.cancel.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (e *Engine) Cancelled() bool {
	return e.cancel.Load()
}

// Start runs one copy to completion and returns its Result. Events are
// emitted on the calling goroutine; Finished is always the last one.
// Cancelling ctx is equivalent to calling Cancel.
func (e *Engine) Start(ctx context.Context, cfg Config) Result {
	if !e.running.CompareAndSwap(false, true) {
		return Result{Verdict: Failed, Err: ErrRunning}
	}
	defer func() {
		e.cancel.Store(false)
		e.running.Store(false)
	}()

	if ctx.Err() != nil {
		e.Cancel()
	} else {
		stop := context.AfterFunc(ctx, e.Cancel)
		defer stop()
	}

	r := &run{e: e, cfg: cfg, start: time.Now()}
	return r.execute(ctx)
}

// run holds the state of one Start call. Only the coordinator goroutine
// touches it.
type run struct {
	e     *Engine
	cfg   Config
	start time.Time
	res   Result

	firstErr error
}

func (r *run) emit(ev event.Event) {
	ev.Timestamp = time.Now()
	r.e.sink.Emit(ev)
}

func (r *run) fatal(err error) Result {
	r.e.logger.Error("copy aborted", "src", r.cfg.Src, "dst", r.cfg.Dst, "error", err)
	r.emit(event.Event{Type: event.Fatal, Message: err.Error()})
	r.emit(event.Event{Type: event.Finished, Success: false})
	return Result{Verdict: Failed, Err: err, Elapsed: time.Since(r.start)}
}

func (r *run) execute(ctx context.Context) Result {
	cfg := r.cfg
	if err := validate(cfg.Src, cfg.Dst); err != nil {
		return r.fatal(err)
	}
	if err := os.MkdirAll(cfg.Dst, 0o755); err != nil {
		return r.fatal(fmt.Errorf("create destination %s: %w", cfg.Dst, err))
	}

	exclude := cfg.Exclude
	if exclude == nil {
		exclude = filter.Default()
	}
	workers := max(1, cfg.Workers)

	pool := r.newExecutor(workers)
	if err := pool.Start(ctx); err != nil {
		return r.fatal(fmt.Errorf("start %s workers: %w", cfg.Mode, err))
	}

	r.e.logger.Info("copy started",
		"src", cfg.Src,
		"dst", cfg.Dst,
		"mode", cfg.Mode.String(),
		"workers", workers,
		"counting", cfg.Counting.String(),
		"exclude", exclude.Names(),
	)

	seq := Walk(cfg.Src, cfg.Dst, WalkOptions{
		Exclude:   exclude,
		Cancelled: r.e.Cancelled,
		OnError:   r.walkError,
		Overwrite: cfg.Overwrite,
		Verify:    cfg.Verify,
	})

	if cfg.Counting == CountAccurate {
		jobs := Collect(seq)
		r.res.Total = int64(len(jobs))
		if r.e.stats != nil {
			r.e.stats.SetTotal(r.res.Total)
		}
		r.emit(event.Event{Type: event.TotalKnown, Total: r.res.Total})
		seq = slices.Values(jobs)
	}

	r.drive(pool, seq)

	if err := pool.Close(); err != nil {
		r.e.logger.Warn("worker pool shutdown", "error", err)
	}

	return r.finish()
}

func (r *run) newExecutor(workers int) executor {
	if r.cfg.Mode == ModeProcess {
		return newProcessPool(workers, r.cfg.WorkerCommand, r.e.logger)
	}
	return newThreadPool(workers)
}

// drive is the coordinator loop. It hands jobs to the pool while fewer than
// pool.Size() are outstanding and records completions as they arrive. Once
// the sequence ends or cancellation is seen it stops submitting and waits
// for every outstanding job.
func (r *run) drive(pool executor, seq iter.Seq[Job]) {
	next, stop := iter.Pull(seq)
	defer stop()

	jobs, results := pool.Jobs(), pool.Results()
	inflight := 0

	job, ok := next()
	for ok || inflight > 0 {
		if ok && r.e.Cancelled() {
			ok = false
			continue
		}

		var submit chan<- Job
		if ok && inflight < pool.Size() {
			submit = jobs
		}

		select {
		case submit <- job:
			inflight++
			inflight -= r.drainReady(results)
			job, ok = next()
		case o := <-results:
			inflight--
			r.record(o)
		}
	}
}

// drainReady records every completion that is already waiting, without
// blocking, and returns how many it took.
func (r *run) drainReady(results <-chan Outcome) int {
	n := 0
	for {
		select {
		case o := <-results:
			r.record(o)
			n++
		default:
			return n
		}
	}
}

func (r *run) record(o Outcome) {
	r.res.Copied++
	r.res.Bytes += o.Bytes

	switch {
	case !o.OK:
		r.res.Errors++
		if r.firstErr == nil {
			r.firstErr = fmt.Errorf("%s: %s", o.Src, o.Err)
		}
		r.e.logger.Warn("copy failed", "src", o.Src, "dst", o.Dst, "error", o.Err)
		r.emit(event.Event{Type: event.Log, Message: fmt.Sprintf("error: %s -> %s: %s", o.Src, o.Dst, o.Err)})
	case o.Skip != SkipNone:
		r.res.Skipped++
		r.e.logger.Debug("skipped", "src", o.Src, "dst", o.Dst, "reason", o.Skip.String())
	}

	if w := r.e.stats; w != nil {
		w.AddDone(1)
		w.AddBytes(o.Bytes)
		switch {
		case !o.OK:
			w.AddFailed(1)
		case o.Skip != SkipNone:
			w.AddSkipped(1)
		}
	}

	r.emit(event.Event{Type: event.Progress, Copied: r.res.Copied, Total: r.res.Total})
}

func (r *run) walkError(err error) {
	r.res.Errors++
	if r.firstErr == nil {
		r.firstErr = err
	}
	if r.e.stats != nil {
		r.e.stats.AddFailed(1)
	}
	r.e.logger.Warn("walk failed", "error", err)
	r.emit(event.Event{Type: event.Log, Message: "error: " + err.Error()})
}

func (r *run) finish() Result {
	res := r.res
	res.Elapsed = time.Since(r.start)

	var summary string
	switch {
	case r.e.Cancelled():
		res.Verdict = Cancelled
		res.Err = ErrCancelled
		summary = fmt.Sprintf("cancelled after %d files; active jobs were allowed to finish", res.Copied)
	case res.Errors > 0:
		res.Verdict = Failed
		res.Err = r.firstErr
		if res.Errors > 1 {
			res.Err = fmt.Errorf("%w (and %d more errors)", r.firstErr, res.Errors-1)
		}
		summary = fmt.Sprintf("finished with %d errors (%d files processed)", res.Errors, res.Copied)
	default:
		res.Verdict = Success
		summary = fmt.Sprintf("finished successfully: %d files processed, %d skipped", res.Copied, res.Skipped)
	}

	r.e.logger.Info("copy finished",
		"verdict", res.Verdict.String(),
		"copied", res.Copied,
		"errors", res.Errors,
		"skipped", res.Skipped,
		"bytes", res.Bytes,
		"elapsed", res.Elapsed,
	)
	r.emit(event.Event{Type: event.Log, Message: summary})
	r.emit(event.Event{Type: event.Finished, Success: res.Verdict == Success})
	return res
}

// validate rejects a missing or non-directory source and a destination
// equal to or nested inside it. Both sides are compared after resolving
// symlinks so an aliased path cannot slip through.
func validate(src, dst string) error {
	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSourceMissing, src)
	}
	if err != nil {
		return fmt.Errorf("source %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrSourceNotDir, src)
	}

	srcReal, err := resolvePath(src)
	if err != nil {
		return fmt.Errorf("resolve source %s: %w", src, err)
	}
	dstReal, err := resolvePath(dst)
	if err != nil {
		return fmt.Errorf("resolve destination %s: %w", dst, err)
	}
	if within(dstReal, srcReal) {
		return fmt.Errorf("%w: %s is inside %s", ErrNestedDest, dst, src)
	}
	return nil
}

// resolvePath returns the absolute, symlink-free form of p. For a path that
// does not exist yet, the deepest existing ancestor is resolved and the
// missing tail re-appended.
func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	var tail []string
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			parts := append([]string{resolved}, tail...)
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}

// within reports whether path equals root or lies beneath it.
func within(path, root string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
