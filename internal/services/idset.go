package services

import "slices"

// IDSet is a set of candidate ids.
type IDSet map[uint]struct{}

func NewIDSet(ids ...uint) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id uint) {
	s[id] = struct{}{}
}

func (s IDSet) Contains(id uint) bool {
	_, ok := s[id]
	return ok
}

// Intersect returns the ids present in both sets.
func (s IDSet) Intersect(other IDSet) IDSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(IDSet, len(small))
	for id := range small {
		if large.Contains(id) {
			out.Add(id)
		}
	}
	return out
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []uint {
	ids := make([]uint, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Eligible is the outcome of filter composition. When All is set no filter
// was active and every candidate is eligible; IDs is then unused.
type Eligible struct {
	All bool
	IDs IDSet
}

func (e Eligible) Empty() bool {
	return !e.All && len(e.IDs) == 0
}

// paginate returns the window [offset, offset+limit) of items.
func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
