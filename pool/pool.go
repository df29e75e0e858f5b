// Package pool hands out a fixed set of closable resources, one per worker.
//
// Analyzer backends are not safe for concurrent use, so parallel record processing
// keeps one *morph.Analyzer per worker in a Pool.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("pool: closed")

// Resource is anything a Pool can own.
type Resource interface {
	comparable
	Close() error
}

// Pool manages a pool of resources for concurrent use.
type Pool[T Resource] struct {
	items  chan T
	size   int
	mu     sync.Mutex
	closed bool
}

// New creates a pool of size resources built by factory. A size <= 0 means 1.
func New[T Resource](size int, factory func() (T, error)) (*Pool[T], error) {
	if size <= 0 {
		size = 1
	}

	p := &Pool[T]{
		items: make(chan T, size),
		size:  size,
	}

	// Pre-create all resources
	for i := 0; i < size; i++ {
		item, err := factory()
		if err != nil {
			_ = p.Close() // Best-effort cleanup; original error takes precedence
			return nil, fmt.Errorf("creating resource %d: %w", i, err)
		}
		p.items <- item
	}

	return p, nil
}

// Acquire gets a resource from the pool, blocking if none available.
// Respects context cancellation. Returns error if pool is closed.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T
	select {
	case item, ok := <-p.items:
		if !ok {
			return zero, ErrPoolClosed
		}
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Release returns a resource to the pool.
func (p *Pool[T]) Release(item T) {
	var zero T
	if item == zero {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = item.Close() // Pool closed; clean up resource
		return
	}

	select {
	case p.items <- item:
	default:
		_ = item.Close() // Pool full; clean up excess resource
	}
}

// Close closes every resource currently in the pool. Resources still acquired
// are closed when released.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.items)
	p.mu.Unlock()

	var errs []error
	for item := range p.items {
		if err := item.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Size returns the pool size.
func (p *Pool[T]) Size() int {
	return p.size
}
