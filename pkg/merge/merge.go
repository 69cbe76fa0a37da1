// Package merge implements the nested merge operator: it flattens a dynamic
// collection of dynamic collections into one continuous changeset stream.
//
// The parent stream announces which parents are present; every tracked parent
// owns an independently changing child collection, reached through a selector.
// The operator keeps one live child subscription per present parent, forwards
// child changesets as they happen, synthesizes retraction batches when a
// parent is retired (cancelling a subscription does not itself undo what it
// already delivered), and completes the output only once the parent stream
// and every child stream have completed. The first error from any source
// terminates the output with that same error.
package merge

import (
	"errors"

	"github.com/go-logr/logr"

	"github.com/hsnlab/changeflow/pkg/changeset"
	"github.com/hsnlab/changeflow/pkg/stream"
)

var (
	// ErrNilParentStream is returned when the parent stream is absent.
	ErrNilParentStream = errors.New("parent stream must not be nil")
	// ErrNilChildSelector is returned when the child selector is absent.
	ErrNilChildSelector = errors.New("child selector must not be nil")
	// ErrNilChildStream terminates the output when the selector hands back no
	// stream for a parent.
	ErrNilChildStream = errors.New("child selector returned a nil stream")
)

// Selector yields the child collection stream of a parent. It is invoked
// exactly once per parent, at the moment the parent is first tracked.
type Selector[P, C comparable] func(P) stream.Stream[changeset.ChangeSet[C]]

// Options configures the operator.
type Options struct {
	Logger  logr.Logger
	Metrics *Metrics
}

// ChangeSets builds the merged child changeset stream of parents. It fails
// synchronously on an absent argument, before any subscription occurs. The
// returned stream is cold: every subscriber gets an independent merge
// instance, torn down by unsubscribing.
func ChangeSets[P, C comparable](parents stream.Stream[changeset.ChangeSet[P]],
	children Selector[P, C], opts Options) (stream.Stream[changeset.ChangeSet[C]], error) {
	if parents == nil {
		return nil, ErrNilParentStream
	}
	if children == nil {
		return nil, ErrNilChildSelector
	}

	logger := opts.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	return &mergeStream[P, C]{
		parents:  parents,
		children: children,
		log:      logger.WithName("merge"),
		metrics:  opts.Metrics,
	}, nil
}

var _ stream.Stream[changeset.ChangeSet[int]] = &mergeStream[int, int]{}

type mergeStream[P, C comparable] struct {
	parents  stream.Stream[changeset.ChangeSet[P]]
	children Selector[P, C]
	log      logr.Logger
	metrics  *Metrics
}

func (m *mergeStream[P, C]) Subscribe(obs stream.Observer[changeset.ChangeSet[C]]) stream.Subscription {
	s := newSession(m, obs)
	s.start()
	return stream.NewSubscription(s.dispose)
}
