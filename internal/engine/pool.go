package engine

import (
	"context"
	"sync"
)

// executor runs jobs on a fixed set of workers. The coordinator sends on
// Jobs and receives from Results; Close stops the workers after the jobs
// already handed over have been reported.
type executor interface {
	Start(ctx context.Context) error
	Jobs() chan<- Job
	Results() <-chan Outcome
	Close() error
	Size() int
}

// threadPool runs Execute on N goroutines in this process.
type threadPool struct {
	jobs    chan Job
	results chan Outcome
	wg      sync.WaitGroup
	size    int
	exec    func(Job) Outcome
}

func newThreadPool(size int) *threadPool {
	return &threadPool{
		size:    max(1, size),
		jobs:    make(chan Job),
		results: make(chan Outcome),
		exec:    Execute,
	}
}

func (p *threadPool) Start(_ context.Context) error {
	for range p.size {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- p.exec(job)
			}
		}()
	}
	return nil
}

func (p *threadPool) Jobs() chan<- Job { return p.jobs }

func (p *threadPool) Results() <-chan Outcome { return p.results }

func (p *threadPool) Size() int { return p.size }

// Close must only be called once every submitted job's outcome has been
// received; otherwise workers block on Results.
func (p *threadPool) Close() error {
	close(p.jobs)
	p.wg.Wait()
	return nil
}
