package eval

import (
	"context"
	"sync"
)

// future is a single-value, single-writer handoff, the minimal stand-in for
// the engine's IntermediateResultFuture: a predicate leaf computes its
// result on a worker pool goroutine, and any number of readers (its parent
// combinator, and percentile leaves building a filter) may Await it; every
// Await after completion returns the same value immediately (spec §5).
type future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *future[T] {
	return &future[T]{done: make(chan struct{})}
}

func (f *future[T]) complete(val T, err error) {
	f.val, f.err = val, err
	close(f.done)
}

// Await blocks until the future is completed or ctx is done, whichever
// comes first.
func (f *future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// DefaultPoolSize is a suggested worker count for callers building their
// own Pool. Nothing in this module applies it: NewPool treats size<1 as 1,
// and the engine defaults to runtime.GOMAXPROCS(0).
const DefaultPoolSize = 8

// Pool is a small fixed-size goroutine pool fed by a buffered job channel,
// the shape spec §5 asks the threaded evaluator variants to share rather
// than spin up per query: the teacher's own executeConcurrent spawns one
// goroutine per subquery with no shared pool, which is fine for the
// teacher's shallow composite queries but would spawn unboundedly many
// goroutines for a deep query tree here. A Pool is started once (NewPool)
// and stopped once (Close); combinators never go through it; they only
// orchestrate and combine already in-flight child results and so run as
// plain goroutines.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup
}

// NewPool starts size worker goroutines (size<1 is treated as 1) draining
// a buffered job queue.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{jobs: make(chan func(), size*4)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}
	return p
}

// submit queues fn to run on the next free worker.
func (p *Pool) submit(fn func()) {
	p.jobs <- fn
}

// Close stops accepting new work and blocks until every in-flight job
// finishes and all worker goroutines have exited.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
