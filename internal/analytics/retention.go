package analytics

import (
	"sort"
	"strconv"
	"time"

	"cohortly/internal/events"
	"cohortly/internal/timeframe"
)

const (
	// ActivityRetentionDays is the last day offset of activity retention (D0..D14).
	ActivityRetentionDays = 14
	// MaxPaidRetentionCohorts caps paid retention to the earliest cohorts.
	MaxPaidRetentionCohorts = 10
	// MaxFullDataRetentionCohorts caps the auto-anchored retention to the earliest cohorts.
	MaxFullDataRetentionCohorts = 7
)

// PaidRetentionOffsets are the day offsets reported by paid retention.
var PaidRetentionOffsets = []int{0, 7, 14, 30, 60, 90}

// RetentionCohort holds per-day retention percentages for users sharing a cohort date.
type RetentionCohort struct {
	CohortDate string             `json:"cohort_date" yaml:"cohort_date"`
	CohortSize int                `json:"cohort_size" yaml:"cohort_size"`
	Days       map[string]float64 `json:"days" yaml:"days"`
}

// DayKey formats a day offset as "D{n}".
func DayKey(n int) string {
	return "D" + strconv.Itoa(n)
}

// CalculateActivityRetention groups users by the UTC date of their first cohortEvent
// and reports, for D0..D14, the share of each cohort active on exactly that day.
// An empty activeEvents list counts any event as activity.
func CalculateActivityRetention(evts []events.ProcessedEvent, cohortEvent string, activeEvents []string) []RetentionCohort {
	isActive := func(string) bool { return true }
	if len(activeEvents) > 0 {
		active := make(map[string]struct{}, len(activeEvents))
		for _, name := range activeEvents {
			active[name] = struct{}{}
		}
		isActive = func(name string) bool {
			_, ok := active[name]
			return ok
		}
	}

	cohorts := activityRetention(events.NewIndex(evts), func(name string) bool { return name == cohortEvent }, isActive, 0)
	if cohorts == nil {
		return []RetentionCohort{}
	}
	return cohorts
}

// CalculateFullDataRetention anchors cohorts on the most frequent event name and
// counts any event as activity, keeping the earliest cohorts. Nil when no cohort forms.
func CalculateFullDataRetention(evts []events.ProcessedEvent) []RetentionCohort {
	idx := events.NewIndex(evts)
	anchor := idx.MostFrequentName()
	if anchor == "" {
		return nil
	}
	return activityRetention(idx, func(name string) bool { return name == anchor }, func(string) bool { return true }, MaxFullDataRetentionCohorts)
}

func activityRetention(idx *events.Index, isCohort, isActive func(string) bool, maxCohorts int) []RetentionCohort {
	members := make(map[string][]string)
	activeDays := make(map[string]map[string]struct{})

	for _, user := range idx.Users() {
		cohortDate := ""
		days := make(map[string]struct{})
		for _, e := range idx.Events(user) {
			if cohortDate == "" && isCohort(e.EventName) {
				cohortDate = timeframe.DateKey(e.Timestamp)
			}
			if isActive(e.EventName) {
				days[timeframe.DateKey(e.Timestamp)] = struct{}{}
			}
		}
		if cohortDate == "" {
			continue
		}
		members[cohortDate] = append(members[cohortDate], user)
		activeDays[user] = days
	}

	dates := sortedKeys(members, maxCohorts)
	if len(dates) == 0 {
		return nil
	}

	cohorts := make([]RetentionCohort, 0, len(dates))
	for _, date := range dates {
		start, _ := timeframe.ParseDateKey(date)
		users := members[date]
		cohort := RetentionCohort{
			CohortDate: date,
			CohortSize: len(users),
			Days:       make(map[string]float64, ActivityRetentionDays+1),
		}
		for n := 0; n <= ActivityRetentionDays; n++ {
			day := timeframe.DateKey(timeframe.AddDays(start, n))
			active := 0
			for _, user := range users {
				if _, ok := activeDays[user][day]; ok {
					active++
				}
			}
			cohort.Days[DayKey(n)] = rate(active, len(users))
		}
		cohorts = append(cohorts, cohort)
	}
	return cohorts
}

// CalculatePaidRetention seeds cohorts with each user's first subscribe event and
// counts a user as retained at an offset while their first later cancel has not
// happened by cohortDate+offset. Only the earliest MaxPaidRetentionCohorts are kept.
func CalculatePaidRetention(rows []events.RawRow, mapping events.ColumnMapping) []RetentionCohort {
	byUser, users := groupRowsByUser(rows, mapping)

	type subscriber struct {
		cancelledAt *time.Time
	}
	members := make(map[string][]subscriber)

	for _, user := range users {
		var subscribedAt *time.Time
		var cancelledAt *time.Time
		for _, e := range byUser[user] {
			if subscribedAt == nil {
				if events.ContainsName(e.EventName, nameSubscribe) {
					ts := e.Timestamp
					subscribedAt = &ts
				}
				continue
			}
			if events.ContainsName(e.EventName, nameCancel) && e.Timestamp.After(*subscribedAt) {
				ts := e.Timestamp
				cancelledAt = &ts
				break
			}
		}
		if subscribedAt == nil {
			continue
		}
		date := timeframe.DateKey(*subscribedAt)
		members[date] = append(members[date], subscriber{cancelledAt: cancelledAt})
	}

	dates := sortedKeys(members, MaxPaidRetentionCohorts)
	cohorts := make([]RetentionCohort, 0, len(dates))
	for _, date := range dates {
		start, _ := timeframe.ParseDateKey(date)
		subs := members[date]
		cohort := RetentionCohort{
			CohortDate: date,
			CohortSize: len(subs),
			Days:       make(map[string]float64, len(PaidRetentionOffsets)),
		}
		for _, offset := range PaidRetentionOffsets {
			boundary := timeframe.AddDays(start, offset)
			retained := 0
			for _, s := range subs {
				if s.cancelledAt == nil || s.cancelledAt.After(boundary) {
					retained++
				}
			}
			cohort.Days[DayKey(offset)] = rate(retained, len(subs))
		}
		cohorts = append(cohorts, cohort)
	}
	return cohorts
}

// AverageRetention averages each day key across cohorts, weighting cohorts equally.
func AverageRetention(cohorts []RetentionCohort) map[string]float64 {
	if len(cohorts) == 0 {
		return nil
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, c := range cohorts {
		for key, v := range c.Days {
			sums[key] += v
			counts[key]++
		}
	}
	avg := make(map[string]float64, len(sums))
	for key, sum := range sums {
		avg[key] = sum / float64(counts[key])
	}
	return avg
}

// sortedKeys returns the ascending date keys, truncated to limit when limit > 0.
func sortedKeys[T any](m map[string][]T, limit int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}
