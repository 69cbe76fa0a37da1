package changeset

// Snapshot is the cached contents of one dynamic collection, maintained by
// folding changesets into it. Items are identity-compared (the comparable
// constraint; use pointer types for reference identity) and kept in collection
// order, with a multiplicity count per identity so duplicate entries fold
// correctly.
type Snapshot[T comparable] struct {
	items  []T
	counts map[T]int
}

// NewSnapshot returns a snapshot holding the given items.
func NewSnapshot[T comparable](items ...T) *Snapshot[T] {
	s := &Snapshot[T]{counts: make(map[T]int)}
	s.insert(0, items)
	return s
}

// Len returns the number of items in the snapshot.
func (s *Snapshot[T]) Len() int { return len(s.items) }

// Contains reports whether item is present.
func (s *Snapshot[T]) Contains(item T) bool { return s.counts[item] > 0 }

// Items returns a copy of the snapshot contents in collection order.
func (s *Snapshot[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Apply folds one changeset into the snapshot, entry by entry, so the
// snapshot tracks what the originating collection currently holds.
func (s *Snapshot[T]) Apply(cs ChangeSet[T]) {
	for _, c := range cs {
		s.apply(c)
	}
}

func (s *Snapshot[T]) apply(c Change[T]) {
	switch c.Reason {
	case Add:
		s.insert(c.Index, c.Affected())
	case Remove:
		for _, item := range c.Affected() {
			s.remove(item, c.Index)
		}
	case Replace:
		s.replace(c.Previous, c.Current, c.Index)
	case Move:
		s.move(c.Current, c.PreviousIndex, c.Index)
	case Refresh:
		// content unchanged
	case Clear:
		s.items = s.items[:0]
		clear(s.counts)
	}
}

func (s *Snapshot[T]) insert(index int, items []T) {
	if len(items) == 0 {
		return
	}
	if index < 0 || index > len(s.items) {
		index = len(s.items)
	}
	s.items = append(s.items[:index], append(append([]T{}, items...), s.items[index:]...)...)
	for _, item := range items {
		s.counts[item]++
	}
}

func (s *Snapshot[T]) remove(item T, index int) {
	if s.counts[item] == 0 {
		return
	}
	if index >= 0 && index < len(s.items) && s.items[index] == item {
		s.items = append(s.items[:index], s.items[index+1:]...)
	} else {
		for i, have := range s.items {
			if have == item {
				s.items = append(s.items[:i], s.items[i+1:]...)
				break
			}
		}
	}
	s.counts[item]--
	if s.counts[item] == 0 {
		delete(s.counts, item)
	}
}

func (s *Snapshot[T]) replace(previous, current T, index int) {
	pos := -1
	if index >= 0 && index < len(s.items) && s.items[index] == previous {
		pos = index
	} else {
		for i, have := range s.items {
			if have == previous {
				pos = i
				break
			}
		}
	}
	if pos < 0 {
		// unknown previous item: treat as a plain add
		s.insert(index, []T{current})
		return
	}
	s.items[pos] = current
	s.counts[previous]--
	if s.counts[previous] == 0 {
		delete(s.counts, previous)
	}
	s.counts[current]++
}

func (s *Snapshot[T]) move(item T, from, to int) {
	pos := -1
	if from >= 0 && from < len(s.items) && s.items[from] == item {
		pos = from
	} else {
		for i, have := range s.items {
			if have == item {
				pos = i
				break
			}
		}
	}
	if pos < 0 {
		return
	}
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	if to < 0 || to > len(s.items) {
		to = len(s.items)
	}
	s.items = append(s.items[:to], append([]T{item}, s.items[to:]...)...)
}
