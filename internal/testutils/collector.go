// Package testutils holds helpers shared by the test suites: a notification
// collector and a logger factory for ginkgo runs.
package testutils

import (
	"sync"

	"github.com/hsnlab/changeflow/pkg/stream"
)

var _ stream.Observer[int] = &Collector[int]{}

// Collector is an observer recording every notification and the terminal
// state of a stream. Safe for concurrent producers.
type Collector[T any] struct {
	mu        sync.Mutex
	batches   []T
	completed bool
	err       error
}

// NewCollector creates an empty collector.
func NewCollector[T any]() *Collector[T] {
	return &Collector[T]{}
}

func (c *Collector[T]) OnNext(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, value)
}

func (c *Collector[T]) OnCompleted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = true
}

func (c *Collector[T]) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Batches returns a copy of the recorded notifications in arrival order.
func (c *Collector[T]) Batches() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.batches))
	copy(out, c.batches)
	return out
}

// Count returns the number of notifications received so far.
func (c *Collector[T]) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

// Completed reports whether the stream completed normally.
func (c *Collector[T]) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Err returns the terminal error, if any.
func (c *Collector[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Terminated reports whether any terminal event arrived.
func (c *Collector[T]) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed || c.err != nil
}
