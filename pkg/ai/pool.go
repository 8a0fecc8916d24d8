package ai

import (
	"context"
	"errors"
	"sync"
)

// job is a unit of work submitted to the pool.
type job func(ctx context.Context) error

var errPoolClosed = errors.New("worker pool closed")

// pool runs jobs on a fixed number of goroutines. The synonym lookup
// uses it to fan out embedding batches without opening one connection
// per vocabulary chunk.
type pool struct {
	jobs    chan job
	wg      sync.WaitGroup
	workers int

	closeMu sync.Mutex
	closed  bool

	errMu    sync.Mutex
	firstErr error
}

func newPool(workers, queue int) *pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &pool{
		jobs:    make(chan job, queue),
		workers: workers,
	}
}

// start launches the worker goroutines; they drain jobs until the
// channel closes or ctx is done.
func (p *pool) start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-p.jobs:
					if !ok {
						return
					}
					if err := j(ctx); err != nil {
						p.setErr(err)
					}
				}
			}
		}()
	}
}

// submit enqueues a job. Returns errPoolClosed after close.
func (p *pool) submit(j job) error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return errPoolClosed
	}
	p.jobs <- j
	return nil
}

// close stops accepting jobs, waits for workers to finish and returns
// the first job error seen, if any.
func (p *pool) close() error {
	p.closeMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.closeMu.Unlock()
	p.wg.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.firstErr
}

func (p *pool) setErr(err error) {
	p.errMu.Lock()
	if p.firstErr == nil {
		p.firstErr = err
	}
	p.errMu.Unlock()
}
