// Package changeset defines the change notification model for dynamic
// collections: a ChangeSet is one atomic batch of Change entries, each entry
// describing a single mutation (or a contiguous range of mutations) applied to
// a collection. ChangeSets are what collection streams emit and what the merge
// operator consumes and produces.
package changeset

import "fmt"

// Reason is the kind of mutation a change entry represents.
type Reason int

const (
	// Add introduces one item (or a range of items) into the collection.
	Add Reason = iota
	// Remove retracts one item (or a range of items) from the collection.
	Remove
	// Replace swaps an existing item for a new one at the same position.
	Replace
	// Move repositions an item without changing the collection's content.
	Move
	// Refresh signals an in-place update of an item.
	Refresh
	// Clear retracts every item in one step.
	Clear
)

func (r Reason) String() string {
	switch r {
	case Add:
		return "add"
	case Remove:
		return "remove"
	case Replace:
		return "replace"
	case Move:
		return "move"
	case Refresh:
		return "refresh"
	case Clear:
		return "clear"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// NoIndex marks positional fields of changes that carry no position.
const NoIndex = -1

// Change is a single entry of a ChangeSet. Single-item changes carry the
// affected item in Current (and the replaced item in Previous for Replace);
// range changes (range add, clear) carry the affected items in Items.
type Change[T any] struct {
	// Reason is the kind of mutation this entry represents.
	Reason Reason
	// Current is the affected item for single-item changes.
	Current T
	// Previous is the item that was replaced; set for Replace only.
	Previous T
	// Items holds the affected items of a range change, in collection order.
	Items []T
	// Index is the position the change applies at, or NoIndex.
	Index int
	// PreviousIndex is the origin position for Move, or NoIndex.
	PreviousIndex int
}

// NewAdd returns a change introducing item at the given index.
func NewAdd[T any](item T, index int) Change[T] {
	return Change[T]{Reason: Add, Current: item, Index: index, PreviousIndex: NoIndex}
}

// NewAddRange returns a single change introducing items starting at index.
func NewAddRange[T any](items []T, index int) Change[T] {
	return Change[T]{Reason: Add, Items: items, Index: index, PreviousIndex: NoIndex}
}

// NewRemove returns a change retracting item from the given index.
func NewRemove[T any](item T, index int) Change[T] {
	return Change[T]{Reason: Remove, Current: item, Index: index, PreviousIndex: NoIndex}
}

// NewReplace returns a change swapping previous for current at index.
func NewReplace[T any](current, previous T, index int) Change[T] {
	return Change[T]{Reason: Replace, Current: current, Previous: previous, Index: index, PreviousIndex: NoIndex}
}

// NewMove returns a change repositioning item from one index to another.
func NewMove[T any](item T, from, to int) Change[T] {
	return Change[T]{Reason: Move, Current: item, Index: to, PreviousIndex: from}
}

// NewRefresh returns a change signaling an in-place update of item.
func NewRefresh[T any](item T, index int) Change[T] {
	return Change[T]{Reason: Refresh, Current: item, Index: index, PreviousIndex: NoIndex}
}

// NewClear returns a change retracting every item. The removed items are
// carried in collection order so that consumers can process them one by one.
func NewClear[T any](items []T) Change[T] {
	return Change[T]{Reason: Clear, Items: items, Index: NoIndex, PreviousIndex: NoIndex}
}

// IsRange reports whether the change carries its items in Items.
func (c Change[T]) IsRange() bool { return c.Items != nil }

// Affected returns the item(s) the change carries: the Items slice for range
// changes, a one-element slice holding Current otherwise.
func (c Change[T]) Affected() []T {
	if c.IsRange() {
		return c.Items
	}
	return []T{c.Current}
}

func (c Change[T]) String() string {
	if c.IsRange() {
		return fmt.Sprintf("%s[%d items]", c.Reason, len(c.Items))
	}
	return fmt.Sprintf("%s(%v)", c.Reason, c.Current)
}

// ChangeSet is one atomic notification: an ordered, finite sequence of
// changes. Entries are applied in order.
type ChangeSet[T any] []Change[T]

// Empty reports whether the changeset carries no changes.
func (cs ChangeSet[T]) Empty() bool { return len(cs) == 0 }

// Adds returns the number of items the changeset introduces.
func (cs ChangeSet[T]) Adds() int {
	n := 0
	for _, c := range cs {
		if c.Reason == Add {
			n += len(c.Affected())
		}
	}
	return n
}

// Removes returns the number of items the changeset retracts, counting both
// remove and clear entries.
func (cs ChangeSet[T]) Removes() int {
	n := 0
	for _, c := range cs {
		if c.Reason == Remove || c.Reason == Clear {
			n += len(c.Affected())
		}
	}
	return n
}
