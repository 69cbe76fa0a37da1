package merge

import (
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/hsnlab/changeflow/pkg/changeset"
	"github.com/hsnlab/changeflow/pkg/stream"
)

type sessionState int

const (
	// stateActive: parent stream open, zero or more child subscriptions open
	stateActive sessionState = iota
	// stateSourceCompleted: parent stream completed, children may still be open
	stateSourceCompleted
	// stateCompleted: terminal, output completed
	stateCompleted
	// stateFailed: terminal, output failed
	stateFailed
)

func (s sessionState) String() string {
	switch s {
	case stateActive:
		return "active"
	case stateSourceCompleted:
		return "source-completed"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// record is the bookkeeping entry of one tracked parent: its live child
// subscription and the children last observed from it. The snapshot is what
// makes retraction accurate: the child stream never announces what a
// cancellation takes away.
type record[C comparable] struct {
	id        string
	sub       stream.Subscription
	snapshot  *changeset.Snapshot[C]
	completed bool
}

// session is one independent merge instance, created per output subscriber.
//
// All state below the mutex comment is confined to the active dispatcher: the
// trampoline in dispatch guarantees that exactly one goroutine at a time runs
// session logic, even when the parent stream and the child streams fire their
// callbacks concurrently. This is what keeps output batches serialized and
// never partially visible.
type session[P, C comparable] struct {
	src *mergeStream[P, C]
	out stream.Observer[changeset.ChangeSet[C]]
	log logr.Logger

	// mu guards the dispatch queue and the parent subscription handle
	mu        sync.Mutex
	running   bool
	queue     []func()
	parentSub stream.Subscription

	// dispatcher-confined state
	state        sessionState
	disposed     bool
	tornDown     bool
	tracked      map[P]*record[C]
	order        []P
	openChildren int
}

func newSession[P, C comparable](src *mergeStream[P, C], out stream.Observer[changeset.ChangeSet[C]]) *session[P, C] {
	return &session[P, C]{
		src:     src,
		out:     out,
		log:     src.log.WithValues("session", uuid.NewString()),
		tracked: make(map[P]*record[C]),
	}
}

func (s *session[P, C]) start() {
	sub := s.src.parents.Subscribe(stream.ObserverFuncs[changeset.ChangeSet[P]]{
		NextFunc:      func(cs changeset.ChangeSet[P]) { s.dispatch(func() { s.onParentBatch(cs) }) },
		CompletedFunc: func() { s.dispatch(s.onParentCompleted) },
		ErrorFunc:     func(err error) { s.dispatch(func() { s.fail(err) }) },
	})

	s.mu.Lock()
	s.parentSub = sub
	s.mu.Unlock()

	// the parent stream may have terminated synchronously during Subscribe,
	// before the handle was stored
	s.dispatch(func() {
		if s.terminal() || s.disposed {
			sub.Unsubscribe()
		}
	})
}

// dispatch serializes session work: the first caller becomes the dispatcher
// and drains everything queued by concurrent or reentrant callers.
func (s *session[P, C]) dispatch(f func()) {
	s.mu.Lock()
	if s.running {
		s.queue = append(s.queue, f)
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	for {
		f()

		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		f = s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
	}
}

// drainInline runs queued work immediately from within the dispatcher. Used
// after each tracked/retired parent so that the notifications a child stream
// delivered synchronously during subscription are emitted in trigger order,
// before the next parent-level change is processed.
func (s *session[P, C]) drainInline() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		f := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		f()
	}
}

func (s *session[P, C]) terminal() bool {
	return s.state == stateCompleted || s.state == stateFailed
}

func (s *session[P, C]) onParentBatch(cs changeset.ChangeSet[P]) {
	if s.disposed || s.terminal() {
		return
	}

	s.log.V(5).Info("parent changeset", "changes", len(cs))

	for _, c := range cs {
		switch c.Reason {
		case changeset.Add:
			for _, p := range c.Affected() {
				s.track(p)
				s.drainInline()
				if s.disposed || s.terminal() {
					return
				}
			}

		case changeset.Remove:
			for _, p := range c.Affected() {
				s.retire(p)
				s.drainInline()
				if s.disposed || s.terminal() {
					return
				}
			}

		case changeset.Replace:
			// two independent steps, each with its own output batch
			s.retire(c.Previous)
			s.drainInline()
			if s.disposed || s.terminal() {
				return
			}
			s.track(c.Current)
			s.drainInline()
			if s.disposed || s.terminal() {
				return
			}

		case changeset.Clear:
			targets := c.Items
			if len(targets) == 0 {
				targets = append([]P{}, s.order...)
			}
			for _, p := range targets {
				s.retire(p)
				s.drainInline()
				if s.disposed || s.terminal() {
					return
				}
			}

		case changeset.Move, changeset.Refresh:
			// no subscription effect
		}
	}
}

// track creates the record for a newly present parent and subscribes to its
// child stream. The subscription delivers the parent's current children
// synchronously as its first notification; those land on the dispatch queue
// and are emitted by the caller's drainInline.
func (s *session[P, C]) track(p P) {
	if _, ok := s.tracked[p]; ok {
		return
	}

	rec := &record[C]{id: uuid.NewString(), snapshot: changeset.NewSnapshot[C]()}
	s.tracked[p] = rec
	s.order = append(s.order, p)
	s.openChildren++
	s.metricsTracked(1)

	s.log.V(4).Info("tracking parent", "record", rec.id, "tracked", len(s.tracked))

	childStream := s.src.children(p)
	if childStream == nil {
		s.fail(ErrNilChildStream)
		return
	}

	rec.sub = childStream.Subscribe(stream.ObserverFuncs[changeset.ChangeSet[C]]{
		NextFunc: func(cs changeset.ChangeSet[C]) {
			s.dispatch(func() { s.onChildBatch(p, rec, cs) })
		},
		CompletedFunc: func() {
			s.dispatch(func() { s.onChildCompleted(p, rec) })
		},
		ErrorFunc: func(err error) {
			s.dispatch(func() { s.fail(err) })
		},
	})
}

// retire destroys the record of a parent that is no longer present and
// synthesizes the retraction batch removing every child last known for it.
func (s *session[P, C]) retire(p P) {
	rec, ok := s.tracked[p]
	if !ok {
		return
	}

	delete(s.tracked, p)
	for i, have := range s.order {
		if have == p {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if rec.sub != nil {
		rec.sub.Unsubscribe()
	}
	if !rec.completed {
		s.openChildren--
	}
	s.metricsTracked(-1)

	items := rec.snapshot.Items()

	s.log.V(4).Info("retiring parent", "record", rec.id, "children", len(items))

	if len(items) > 0 {
		out := make(changeset.ChangeSet[C], 0, len(items))
		for _, item := range items {
			out = append(out, changeset.NewRemove(item, changeset.NoIndex))
		}
		s.emit(out)
		s.metricsRetraction()
	}

	s.maybeComplete()
}

func (s *session[P, C]) onChildBatch(p P, rec *record[C], cs changeset.ChangeSet[C]) {
	if s.disposed || s.terminal() {
		return
	}
	if cur, ok := s.tracked[p]; !ok || cur != rec {
		// late event from a retired subscription
		return
	}

	rec.snapshot.Apply(cs)
	if !cs.Empty() {
		s.emit(cs)
	}
}

// onChildCompleted handles a child stream finishing while its parent is still
// present: the record stays, its snapshot stays retraction-accurate, and the
// stream stops counting against joint completion.
func (s *session[P, C]) onChildCompleted(p P, rec *record[C]) {
	if s.disposed || s.terminal() {
		return
	}
	if cur, ok := s.tracked[p]; !ok || cur != rec || rec.completed {
		return
	}

	rec.completed = true
	s.openChildren--

	s.log.V(4).Info("child stream completed", "record", rec.id, "open", s.openChildren)

	s.maybeComplete()
}

func (s *session[P, C]) onParentCompleted() {
	if s.disposed || s.terminal() || s.state != stateActive {
		return
	}

	s.state = stateSourceCompleted

	s.log.V(4).Info("parent stream completed", "open", s.openChildren)

	s.maybeComplete()
}

// maybeComplete completes the output once the parent stream has completed and
// no open child subscription remains.
func (s *session[P, C]) maybeComplete() {
	if s.disposed || s.state != stateSourceCompleted || s.openChildren > 0 {
		return
	}

	s.state = stateCompleted
	s.log.V(3).Info("completed")
	s.out.OnCompleted()
	s.teardown()
}

// fail terminates the output with err, identity preserved. First error wins.
func (s *session[P, C]) fail(err error) {
	if s.disposed || s.terminal() {
		return
	}

	s.state = stateFailed
	s.metricsFailure()
	s.log.V(3).Info("failed", "error", err)
	s.out.OnError(err)
	s.teardown()
}

func (s *session[P, C]) emit(cs changeset.ChangeSet[C]) {
	s.out.OnNext(cs)
	s.metricsBatch()
}

// teardown releases the parent subscription and every child subscription
// exactly once. It emits nothing: teardown is a hard stop, not a retraction.
func (s *session[P, C]) teardown() {
	if s.tornDown {
		return
	}
	s.tornDown = true

	s.mu.Lock()
	parentSub := s.parentSub
	s.parentSub = nil
	s.mu.Unlock()

	if parentSub != nil {
		parentSub.Unsubscribe()
	}

	for _, p := range s.order {
		rec := s.tracked[p]
		if rec != nil && rec.sub != nil {
			rec.sub.Unsubscribe()
		}
		s.metricsTracked(-1)
	}

	s.tracked = make(map[P]*record[C])
	s.order = nil
	s.openChildren = 0

	s.log.V(4).Info("torn down")
}

// dispose implements cancellation: idempotent, no further output, all
// subscriptions released.
func (s *session[P, C]) dispose() {
	s.dispatch(func() {
		if s.disposed {
			return
		}
		s.disposed = true
		s.teardown()
	})
}

func (s *session[P, C]) metricsBatch() {
	if m := s.src.metrics; m != nil {
		m.BatchesEmitted.Inc()
	}
}

func (s *session[P, C]) metricsRetraction() {
	if m := s.src.metrics; m != nil {
		m.Retractions.Inc()
	}
}

func (s *session[P, C]) metricsTracked(delta float64) {
	if m := s.src.metrics; m != nil {
		m.TrackedParents.Add(delta)
	}
}

func (s *session[P, C]) metricsFailure() {
	if m := s.src.metrics; m != nil {
		m.Failures.Inc()
	}
}
