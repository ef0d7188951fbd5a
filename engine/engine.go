// Bounded fan-out of independent tasks.
//
// A Pool is a fixed set of worker goroutines reading from a shared request channel.  Run submits a
// batch of keyed tasks and collects the results as they arrive, in whatever order the workers
// finish; results are returned by key.  A failing (or panicking) task does not affect the others,
// its error is returned alongside the successful results.

package engine

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/multierr"

	. "navstat/common"
)

type Config struct {
	// Number of workers, NumCPU() if zero or negative
	Workers int
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

type request struct {
	thunk func()
}

// MT: The request channel is thread-safe; the rest is constant after New() until Close().

type Pool struct {
	requests chan request
	workers  int
	once     sync.Once
	wg       sync.WaitGroup
}

func New(cfg Config) *Pool {
	p := &Pool{
		requests: make(chan request, 100),
		workers:  cfg.workers(),
	}
	for range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			Forever(
				func() bool {
					for r := range p.requests {
						r.thunk()
					}
					return true
				},
				os.Stderr,
			)
		}()
	}
	return p
}

func (p *Pool) Workers() int {
	return p.workers
}

// Close stops the workers once pending requests are done.  The pool cannot be used after Close.

func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.requests)
	})
	p.wg.Wait()
}

type Task[K comparable, R any] struct {
	Key K
	Run func(ctx context.Context) (R, error)
}

type result[K comparable, R any] struct {
	key   K
	value R
	err   error
}

// Run executes the tasks on the pool and returns the results of those that succeeded, keyed by
// task key.  The error, if not nil, combines the failures (use multierr.Errors to list them), each
// carrying its task key.  `label` names the batch in progress messages.

func Run[K comparable, R any](
	ctx context.Context,
	pool *Pool,
	label string,
	tasks []Task[K, R],
) (map[K]R, error) {
	results := make(chan result[K, R], 100)
	values := make(map[K]R, len(tasks))
	var failures error
	progress := newProgress(label, len(tasks))

	receive := func(res result[K, R]) {
		if res.err != nil {
			failures = multierr.Append(failures, fmt.Errorf("%v: %w", res.key, res.err))
		} else {
			values[res.key] = res.value
		}
		progress.step()
	}

	toSend := 0
	toReceive := len(tasks)
	for toSend < len(tasks) && toReceive > 0 {
		task := tasks[toSend]
		select {
		case pool.requests <- request{
			thunk: func() {
				value, err := Protect(func() (R, error) {
					return task.Run(ctx)
				})
				results <- result[K, R]{task.Key, value, err}
			},
		}:
			toSend++
		case res := <-results:
			receive(res)
			toReceive--
		}
	}
	for toReceive > 0 {
		receive(<-results)
		toReceive--
	}
	return values, failures
}

// Progress is logged at every tenth of the batch, for diagnostics only.

type progress struct {
	label string
	total int
	done  int
	next  int
}

func newProgress(label string, total int) *progress {
	return &progress{label: label, total: total, next: 1}
}

func (p *progress) step() {
	p.done++
	if p.done*10 >= p.next*p.total {
		Log.Infof("%s: Progress: %.1f%%", p.label, float64(p.done)*100/float64(p.total))
		for p.next <= 10 && p.done*10 >= p.next*p.total {
			p.next++
		}
	}
}
