package collection

import (
	"slices"

	"github.com/hsnlab/changeflow/pkg/changeset"
)

// Updater accumulates the mutations of one Edit call against a working copy
// of the list contents. Every successful mutation appends one change entry;
// the whole batch is delivered as a single changeset when Edit returns.
type Updater[T comparable] struct {
	items   []T
	changes []changeset.Change[T]
}

// Len returns the size of the working copy.
func (u *Updater[T]) Len() int { return len(u.items) }

// Items returns a copy of the working contents.
func (u *Updater[T]) Items() []T { return slices.Clone(u.items) }

// Add appends items; more than one item is recorded as a single range change.
func (u *Updater[T]) Add(items ...T) {
	if len(items) == 0 {
		return
	}
	index := len(u.items)
	u.items = append(u.items, items...)
	if len(items) == 1 {
		u.changes = append(u.changes, changeset.NewAdd(items[0], index))
		return
	}
	u.changes = append(u.changes, changeset.NewAddRange(slices.Clone(items), index))
}

// Insert places item at index.
func (u *Updater[T]) Insert(index int, item T) error {
	if index < 0 || index > len(u.items) {
		return ErrIndexOutOfRange
	}
	u.items = slices.Insert(u.items, index, item)
	u.changes = append(u.changes, changeset.NewAdd(item, index))
	return nil
}

// Remove retracts the first occurrence of item.
func (u *Updater[T]) Remove(item T) error {
	index := slices.Index(u.items, item)
	if index < 0 {
		return ErrNotFound
	}
	return u.RemoveAt(index)
}

// RemoveAt retracts the item at index.
func (u *Updater[T]) RemoveAt(index int) error {
	if index < 0 || index >= len(u.items) {
		return ErrIndexOutOfRange
	}
	item := u.items[index]
	u.items = slices.Delete(u.items, index, index+1)
	u.changes = append(u.changes, changeset.NewRemove(item, index))
	return nil
}

// Replace swaps previous for current in place.
func (u *Updater[T]) Replace(previous, current T) error {
	index := slices.Index(u.items, previous)
	if index < 0 {
		return ErrNotFound
	}
	u.items[index] = current
	u.changes = append(u.changes, changeset.NewReplace(current, previous, index))
	return nil
}

// Move repositions the item at from to position to.
func (u *Updater[T]) Move(from, to int) error {
	if from < 0 || from >= len(u.items) || to < 0 || to >= len(u.items) {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	item := u.items[from]
	u.items = slices.Delete(u.items, from, from+1)
	u.items = slices.Insert(u.items, to, item)
	u.changes = append(u.changes, changeset.NewMove(item, from, to))
	return nil
}

// Refresh records an in-place update of item without changing the contents.
func (u *Updater[T]) Refresh(item T) error {
	index := slices.Index(u.items, item)
	if index < 0 {
		return ErrNotFound
	}
	u.changes = append(u.changes, changeset.NewRefresh(item, index))
	return nil
}

// Clear retracts every item as one change carrying the removed items in order.
func (u *Updater[T]) Clear() {
	if len(u.items) == 0 {
		return
	}
	u.changes = append(u.changes, changeset.NewClear(u.items))
	u.items = nil
}
