// Package collection provides List, a mutable dynamic collection that
// publishes its mutations as changeset streams: every subscriber first
// receives the current contents as one synchronous changeset, then one
// changeset per subsequent edit, and finally exactly one terminal event.
package collection

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/hsnlab/changeflow/pkg/changeset"
	"github.com/hsnlab/changeflow/pkg/stream"
)

var (
	// ErrTerminated is returned for mutations after Complete or Fail.
	ErrTerminated = errors.New("list already terminated")
	// ErrIndexOutOfRange is returned for positional arguments outside the list.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNotFound is returned when an operation names an item the list does not hold.
	ErrNotFound = errors.New("item not found")
)

// Options configures a List.
type Options struct {
	Logger logr.Logger
}

// List is a dynamic collection of identity-compared items. All operations are
// safe for concurrent use; change delivery is synchronous and serialized, so
// no two changesets interleave. Observers must not synchronously mutate the
// list they observe.
type List[T comparable] struct {
	// emitMu serializes mutation+delivery pairs and subscriber snapshots
	emitMu sync.Mutex
	// mu guards items, subs and the terminal state
	mu    sync.Mutex
	items []T
	subs  map[string]*listSubscription[T]
	done  bool
	err   error
	log   logr.Logger
}

// NewList creates an empty list.
func NewList[T comparable](opts Options) *List[T] {
	logger := opts.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	return &List[T]{
		subs: make(map[string]*listSubscription[T]),
		log:  logger.WithName("list"),
	}
}

// Items returns a copy of the current contents in order.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// Len returns the number of items held.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Subscribers returns the number of live change-stream registrations.
func (l *List[T]) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, sub := range l.subs {
		if !sub.closed.Load() {
			n++
		}
	}
	return n
}

// Contains reports whether item is present.
func (l *List[T]) Contains(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Index(l.items, item) >= 0
}

// Edit batches several mutations into one atomic changeset: fn runs against
// an updater holding a working copy of the contents, and all accumulated
// changes are committed and delivered as a single notification.
func (l *List[T]) Edit(fn func(*Updater[T])) error {
	l.emitMu.Lock()
	defer l.emitMu.Unlock()

	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return ErrTerminated
	}
	u := &Updater[T]{items: slices.Clone(l.items)}
	l.mu.Unlock()

	fn(u)

	if len(u.changes) == 0 {
		return nil
	}

	cs := changeset.ChangeSet[T](u.changes)

	l.mu.Lock()
	l.items = u.items
	subs := l.activeSubsLocked()
	l.mu.Unlock()

	l.log.V(5).Info("emitting changeset", "changes", len(cs), "size", len(u.items))

	for _, sub := range subs {
		sub.deliver(cs)
	}

	return nil
}

// Add appends one or more items; more than one item yields a single range change.
func (l *List[T]) Add(items ...T) error {
	return l.Edit(func(u *Updater[T]) { u.Add(items...) })
}

// Insert places item at the given position.
func (l *List[T]) Insert(index int, item T) error {
	return l.edit1(func(u *Updater[T]) error { return u.Insert(index, item) })
}

// Remove retracts the first occurrence of item.
func (l *List[T]) Remove(item T) error {
	return l.edit1(func(u *Updater[T]) error { return u.Remove(item) })
}

// RemoveAt retracts the item at the given position.
func (l *List[T]) RemoveAt(index int) error {
	return l.edit1(func(u *Updater[T]) error { return u.RemoveAt(index) })
}

// Replace swaps previous for current in place.
func (l *List[T]) Replace(previous, current T) error {
	return l.edit1(func(u *Updater[T]) error { return u.Replace(previous, current) })
}

// Move repositions the item at index from to index to.
func (l *List[T]) Move(from, to int) error {
	return l.edit1(func(u *Updater[T]) error { return u.Move(from, to) })
}

// Refresh signals an in-place update of item without changing the contents.
func (l *List[T]) Refresh(item T) error {
	return l.edit1(func(u *Updater[T]) error { return u.Refresh(item) })
}

// Clear retracts every item in a single change.
func (l *List[T]) Clear() error {
	return l.Edit(func(u *Updater[T]) { u.Clear() })
}

func (l *List[T]) edit1(fn func(*Updater[T]) error) error {
	var opErr error
	if err := l.Edit(func(u *Updater[T]) { opErr = fn(u) }); err != nil {
		return err
	}
	return opErr
}

// Changes returns the change stream of the list. Subscribing synchronously
// delivers the current contents as one changeset (suppressed when empty),
// then every subsequent edit, then exactly one terminal event.
func (l *List[T]) Changes() stream.Stream[changeset.ChangeSet[T]] {
	return changesStream[T]{list: l}
}

// Complete finishes every subscriber stream normally. Later mutations fail
// with ErrTerminated; later subscribers receive the final contents and the
// terminal event immediately.
func (l *List[T]) Complete() {
	l.terminate(nil)
}

// Fail finishes every subscriber stream with err. A nil err completes instead.
func (l *List[T]) Fail(err error) {
	l.terminate(err)
}

func (l *List[T]) terminate(err error) {
	l.emitMu.Lock()
	defer l.emitMu.Unlock()

	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.done = true
	l.err = err
	subs := l.activeSubsLocked()
	l.subs = make(map[string]*listSubscription[T])
	l.mu.Unlock()

	l.log.V(4).Info("terminating", "error", err, "subscribers", len(subs))

	for _, sub := range subs {
		sub.terminate(err)
	}
}

// activeSubsLocked prunes closed registrations and returns the live ones.
func (l *List[T]) activeSubsLocked() []*listSubscription[T] {
	subs := make([]*listSubscription[T], 0, len(l.subs))
	for id, sub := range l.subs {
		if sub.closed.Load() {
			delete(l.subs, id)
			continue
		}
		subs = append(subs, sub)
	}
	return subs
}

func (l *List[T]) subscribe(obs stream.Observer[changeset.ChangeSet[T]]) stream.Subscription {
	l.emitMu.Lock()
	defer l.emitMu.Unlock()

	l.mu.Lock()
	snapshot := slices.Clone(l.items)
	done, err := l.done, l.err
	var sub *listSubscription[T]
	if !done {
		sub = &listSubscription[T]{id: uuid.NewString(), list: l, observer: obs}
		l.subs[sub.id] = sub
	}
	l.mu.Unlock()

	l.log.V(4).Info("subscribe", "size", len(snapshot), "terminated", done)

	if len(snapshot) > 0 {
		obs.OnNext(changeset.ChangeSet[T]{changeset.NewAddRange(snapshot, 0)})
	}

	if done {
		if err != nil {
			obs.OnError(err)
		} else {
			obs.OnCompleted()
		}
		return stream.NewSubscription(func() {})
	}

	return sub
}

var _ stream.Stream[changeset.ChangeSet[int]] = changesStream[int]{}

type changesStream[T comparable] struct {
	list *List[T]
}

func (s changesStream[T]) Subscribe(obs stream.Observer[changeset.ChangeSet[T]]) stream.Subscription {
	return s.list.subscribe(obs)
}

type listSubscription[T comparable] struct {
	id       string
	list     *List[T]
	observer stream.Observer[changeset.ChangeSet[T]]
	closed   atomic.Bool
}

func (s *listSubscription[T]) deliver(cs changeset.ChangeSet[T]) {
	if s.closed.Load() {
		return
	}
	s.observer.OnNext(cs)
}

func (s *listSubscription[T]) terminate(err error) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if err != nil {
		s.observer.OnError(err)
	} else {
		s.observer.OnCompleted()
	}
}

// Unsubscribe cancels the registration. It takes no delivery locks so it is
// safe to call from inside an observer callback.
func (s *listSubscription[T]) Unsubscribe() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.list.dropSubscription(s.id)
}

func (l *List[T]) dropSubscription(id string) {
	l.mu.Lock()
	delete(l.subs, id)
	l.mu.Unlock()

	l.log.V(4).Info("unsubscribe", "id", id)
}
