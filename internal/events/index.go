package events

import (
	"sort"
)

// UserSet is a set of user IDs.
type UserSet map[string]struct{}

// Add inserts a user.
func (s UserSet) Add(user string) { s[user] = struct{}{} }

// Contains reports membership.
func (s UserSet) Contains(user string) bool {
	_, ok := s[user]
	return ok
}

// Intersect returns the users present in both sets.
func (s UserSet) Intersect(other UserSet) UserSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(UserSet, len(small))
	for u := range small {
		if large.Contains(u) {
			out.Add(u)
		}
	}
	return out
}

// Union returns the users present in either set.
func (s UserSet) Union(other UserSet) UserSet {
	out := make(UserSet, len(s)+len(other))
	for u := range s {
		out.Add(u)
	}
	for u := range other {
		out.Add(u)
	}
	return out
}

// Sorted returns the members in ascending order.
func (s UserSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Index groups a time-ordered event slice by user and by event name so the
// engines avoid rescanning the full collection per user and per step.
type Index struct {
	byUser      map[string][]ProcessedEvent
	usersByName map[string]UserSet
	countByName map[string]int
	names       []string
}

// NewIndex builds an index. Events are expected in ascending timestamp order,
// as returned by ProcessData; per-user slices keep that order.
func NewIndex(evts []ProcessedEvent) *Index {
	idx := &Index{
		byUser:      make(map[string][]ProcessedEvent),
		usersByName: make(map[string]UserSet),
		countByName: make(map[string]int),
	}
	for _, e := range evts {
		idx.byUser[e.UserID] = append(idx.byUser[e.UserID], e)
		set, ok := idx.usersByName[e.EventName]
		if !ok {
			set = make(UserSet)
			idx.usersByName[e.EventName] = set
			idx.names = append(idx.names, e.EventName)
		}
		set.Add(e.UserID)
		idx.countByName[e.EventName]++
	}
	sort.Strings(idx.names)
	return idx
}

// Names returns the distinct event names, sorted.
func (idx *Index) Names() []string { return idx.names }

// Users returns the distinct user IDs, sorted.
func (idx *Index) Users() []string {
	users := make([]string, 0, len(idx.byUser))
	for u := range idx.byUser {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// UserCount returns the number of distinct users.
func (idx *Index) UserCount() int { return len(idx.byUser) }

// Events returns one user's events in time order.
func (idx *Index) Events(user string) []ProcessedEvent { return idx.byUser[user] }

// Count returns how many times an exact event name occurs.
func (idx *Index) Count(name string) int { return idx.countByName[name] }

// UsersWith returns the users who fired the exact event name.
// The returned set must not be modified.
func (idx *Index) UsersWith(name string) UserSet {
	if set, ok := idx.usersByName[name]; ok {
		return set
	}
	return UserSet{}
}

// UsersMatching returns the users who fired any event whose name satisfies match.
func (idx *Index) UsersMatching(match func(name string) bool) UserSet {
	out := make(UserSet)
	for _, name := range idx.names {
		if !match(name) {
			continue
		}
		for u := range idx.usersByName[name] {
			out.Add(u)
		}
	}
	return out
}

// AnyMatching reports whether any event name satisfies match.
func (idx *Index) AnyMatching(match func(name string) bool) bool {
	for _, name := range idx.names {
		if match(name) {
			return true
		}
	}
	return false
}

// MostFrequentName returns the most frequent event name; ties resolve to the
// alphabetically first name. Returns "" for an empty index.
func (idx *Index) MostFrequentName() string {
	best, bestCount := "", 0
	for _, name := range idx.names {
		if c := idx.countByName[name]; c > bestCount {
			best, bestCount = name, c
		}
	}
	return best
}
