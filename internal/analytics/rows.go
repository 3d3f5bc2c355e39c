package analytics

import (
	"sort"
	"strings"

	"cohortly/internal/events"
)

// Canonical subscription event fragments, matched as substrings of the lower-cased name.
const (
	nameSignup        = "signup"
	nameSignupAlt     = "sign_up"
	nameOnboarding    = "onboarding"
	nameTrial         = "trial"
	nameSubscribe     = "subscribe"
	nameRenew         = "renew"
	nameCancel        = "cancel"
	namePaymentFailed = "payment_failed"
)

// Unknown labels a missing optional attribute in breakdowns.
const Unknown = "Unknown"

// rowEvent is a processed event that keeps its source row for optional columns.
type rowEvent struct {
	events.ProcessedEvent
	row events.RawRow
}

func (e rowEvent) attrOrUnknown(column string) string {
	if v := strings.TrimSpace(e.row.Get(column)); v != "" {
		return v
	}
	return Unknown
}

// groupRowsByUser processes rows through the mapping and returns each user's
// events in time order plus the sorted user list. Unusable rows are skipped.
func groupRowsByUser(rows []events.RawRow, mapping events.ColumnMapping) (map[string][]rowEvent, []string) {
	byUser := make(map[string][]rowEvent)
	if !mapping.Complete() {
		return byUser, nil
	}

	for _, row := range rows {
		e, ok := events.ProcessRow(row, mapping)
		if !ok {
			continue
		}
		byUser[e.UserID] = append(byUser[e.UserID], rowEvent{ProcessedEvent: e, row: row})
	}

	users := make([]string, 0, len(byUser))
	for user, evts := range byUser {
		sort.SliceStable(evts, func(i, j int) bool {
			return evts[i].Timestamp.Before(evts[j].Timestamp)
		})
		users = append(users, user)
	}
	sort.Strings(users)
	return byUser, users
}

func isSignup(name string) bool {
	return events.ContainsName(name, nameSignup) || events.ContainsName(name, nameSignupAlt)
}

func isPaid(name string) bool {
	return events.ContainsName(name, nameSubscribe) || events.ContainsName(name, nameRenew)
}
