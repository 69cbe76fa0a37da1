// Package stream defines the push-based notification contracts shared by
// dynamic collections and the operators consuming them. Delivery is
// synchronous: a producer invokes observer callbacks inline, and subscribing
// may deliver notifications before Subscribe returns.
package stream

import "sync"

// Observer receives the notifications of a Stream: zero or more OnNext calls
// followed by at most one terminal call (OnCompleted or OnError).
type Observer[T any] interface {
	OnNext(T)
	OnCompleted()
	OnError(error)
}

// Stream is a source of notifications. Subscribe registers an observer and
// returns the handle to cancel the registration; producers may deliver the
// first notifications synchronously during Subscribe.
type Stream[T any] interface {
	Subscribe(Observer[T]) Subscription
}

// Subscription cancels an observer registration. Unsubscribe is idempotent
// and safe to call after the stream terminated.
type Subscription interface {
	Unsubscribe()
}

// ObserverFuncs adapts plain callbacks to the Observer interface. Nil
// callbacks are skipped.
type ObserverFuncs[T any] struct {
	NextFunc      func(T)
	CompletedFunc func()
	ErrorFunc     func(error)
}

func (o ObserverFuncs[T]) OnNext(value T) {
	if o.NextFunc != nil {
		o.NextFunc(value)
	}
}

func (o ObserverFuncs[T]) OnCompleted() {
	if o.CompletedFunc != nil {
		o.CompletedFunc()
	}
}

func (o ObserverFuncs[T]) OnError(err error) {
	if o.ErrorFunc != nil {
		o.ErrorFunc(err)
	}
}

// Observe returns an observer that forwards values to next and ignores
// terminal events.
func Observe[T any](next func(T)) Observer[T] {
	return ObserverFuncs[T]{NextFunc: next}
}

type subscription struct {
	once sync.Once
	stop func()
}

// NewSubscription wraps stop into an idempotent Subscription: stop runs on
// the first Unsubscribe only.
func NewSubscription(stop func()) Subscription {
	return &subscription{stop: stop}
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.stop)
}
