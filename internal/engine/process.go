package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/fastcopy/internal/proto"
)

// processPool runs jobs in N child processes. Each child is owned by one
// driver goroutine that ships a job over the child's stdin and waits for
// the outcome on its stdout, so a child holds at most one job at a time.
type processPool struct {
	argv    []string
	size    int
	logger  *slog.Logger
	jobs    chan Job
	results chan Outcome
	group   errgroup.Group
}

func newProcessPool(size int, argv []string, logger *slog.Logger) *processPool {
	return &processPool{
		argv:    argv,
		size:    max(1, size),
		logger:  logger,
		jobs:    make(chan Job),
		results: make(chan Outcome),
	}
}

// Start launches every child up front so a broken binary is reported as a
// fatal error before any job is handed out.
func (p *processPool) Start(_ context.Context) error {
	workers := make([]*proto.Worker, 0, p.size)
	for i := range p.size {
		w, err := proto.StartWorker(p.argv, nil, p.logger)
		if err != nil {
			for _, started := range workers {
				_ = started.Kill()
			}
			return fmt.Errorf("start worker %d: %w", i, err)
		}
		workers = append(workers, w)
	}

	for slot, w := range workers {
		p.group.Go(func() error { return p.drive(slot, w) })
	}
	return nil
}

// drive feeds one child until the job channel closes. A child that dies
// fails the job it held and is replaced once; if the replacement cannot
// start, every later job on this slot fails with that error.
func (p *processPool) drive(slot int, w *proto.Worker) error {
	var restartErr error
	for job := range p.jobs {
		if w == nil {
			p.results <- failed(job, "worker %d unavailable: %v", slot, restartErr)
			continue
		}

		msg, err := w.Do(job.ToMsg())
		if err == nil {
			p.results <- OutcomeFromMsg(msg)
			continue
		}

		p.logger.Warn("worker process failed", "slot", slot, "pid", w.Pid(), "error", err)
		_ = w.Kill()
		p.results <- failed(job, "worker process failed: %v", err)

		next, startErr := proto.StartWorker(p.argv, nil, p.logger)
		if startErr != nil {
			p.logger.Error("worker restart failed", "slot", slot, "error", startErr)
			w, restartErr = nil, startErr
			continue
		}
		w = next
	}

	if w == nil {
		return nil
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("worker %d exit: %w", slot, err)
	}
	return nil
}

func (p *processPool) Jobs() chan<- Job { return p.jobs }

func (p *processPool) Results() <-chan Outcome { return p.results }

func (p *processPool) Size() int { return p.size }

// Close asks every child to exit by closing its stdin and waits for them.
// Like threadPool.Close it requires all outcomes to have been received.
func (p *processPool) Close() error {
	close(p.jobs)
	return p.group.Wait()
}
