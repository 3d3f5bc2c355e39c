package events

import (
	"sort"
	"strings"
)

// NormalizeEventName lower-cases and trims an event name for vocabulary matching.
func NormalizeEventName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FuzzyMatch reports whether either name contains the other after normalization.
// Empty names never match.
func FuzzyMatch(a, b string) bool {
	a = NormalizeEventName(a)
	b = NormalizeEventName(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// ContainsName reports whether the normalized event name contains the fragment.
// Used for canonical subscription event names (subscribe, renew, cancel...).
func ContainsName(eventName, fragment string) bool {
	return strings.Contains(NormalizeEventName(eventName), fragment)
}

// DistinctEventNames returns the sorted set of event names in events.
func DistinctEventNames(evts []ProcessedEvent) []string {
	seen := make(map[string]struct{})
	for _, e := range evts {
		seen[e.EventName] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
