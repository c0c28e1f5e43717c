package elements

import "sort"

// IDSet is a membership set of element IDs, used on nodes and edges to
// record which routes and services reference them.
type IDSet map[string]struct{}

// NewIDSet creates a set holding the given IDs.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts the given IDs.
func (s IDSet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Remove deletes an ID; absent IDs are ignored.
func (s IDSet) Remove(id string) {
	delete(s, id)
}

// Has reports whether the set contains id.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s IDSet) Len() int {
	return len(s)
}

// Copy returns an independent copy of the set.
func (s IDSet) Copy() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Merge inserts all members of other into s.
func (s IDSet) Merge(other IDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Intersects reports whether the two sets share any member.
func (s IDSet) Intersects(other IDSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for id := range small {
		if large.Has(id) {
			return true
		}
	}
	return false
}

// Equal reports whether both sets hold exactly the same members.
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the members in lexicographic order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
