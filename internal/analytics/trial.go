package analytics

import (
	"sort"
	"strconv"

	"cohortly/internal/events"
)

// TrialBucket is the trial conversion of users sharing a trial_days value.
type TrialBucket struct {
	TrialDays            string   `json:"trial_days" yaml:"trial_days"`
	TrialUsers           int      `json:"trial_users" yaml:"trial_users"`
	ConvertedUsers       int      `json:"converted_users" yaml:"converted_users"`
	ConversionRate       float64  `json:"conversion_rate" yaml:"conversion_rate"`
	MedianHoursToConvert *float64 `json:"median_hours_to_convert" yaml:"median_hours_to_convert"`
	P90HoursToConvert    *float64 `json:"p90_hours_to_convert" yaml:"p90_hours_to_convert"`
}

// TrialAnalysis is the overall trial-to-paid conversion plus its per-length breakdown.
type TrialAnalysis struct {
	TrialUsers           int           `json:"trial_users" yaml:"trial_users"`
	ConvertedUsers       int           `json:"converted_users" yaml:"converted_users"`
	ConversionRate       float64       `json:"conversion_rate" yaml:"conversion_rate"`
	MedianHoursToConvert *float64      `json:"median_hours_to_convert" yaml:"median_hours_to_convert"`
	P90HoursToConvert    *float64      `json:"p90_hours_to_convert" yaml:"p90_hours_to_convert"`
	ByTrialDays          []TrialBucket `json:"by_trial_days" yaml:"by_trial_days"`
}

// AnalyzeTrialConversion pairs each user's first trial start with their first
// subscribe at or after it. Users are bucketed by the trial_days value of the
// trial-start row, "Unknown" when absent. Nil when required columns are unmapped
// or no row is usable.
func AnalyzeTrialConversion(rows []events.RawRow, mapping events.ColumnMapping) *TrialAnalysis {
	byUser, users := groupRowsByUser(rows, mapping)
	if len(users) == 0 {
		return nil
	}

	type bucketAcc struct {
		users     int
		converted int
		hours     []float64
	}
	buckets := make(map[string]*bucketAcc)
	overall := &bucketAcc{}

	for _, user := range users {
		evts := byUser[user]

		trialIdx := -1
		for i, e := range evts {
			if events.ContainsName(e.EventName, nameTrial) {
				trialIdx = i
				break
			}
		}
		if trialIdx < 0 {
			continue
		}
		start := evts[trialIdx]

		key := start.attrOrUnknown(events.ColumnTrialDays)
		b, ok := buckets[key]
		if !ok {
			b = &bucketAcc{}
			buckets[key] = b
		}
		b.users++
		overall.users++

		for _, e := range evts {
			if !events.ContainsName(e.EventName, nameSubscribe) || e.Timestamp.Before(start.Timestamp) {
				continue
			}
			hours := e.Timestamp.Sub(start.Timestamp).Hours()
			b.converted++
			b.hours = append(b.hours, hours)
			overall.converted++
			overall.hours = append(overall.hours, hours)
			break
		}
	}

	analysis := &TrialAnalysis{
		TrialUsers:           overall.users,
		ConvertedUsers:       overall.converted,
		ConversionRate:       rate(overall.converted, overall.users),
		MedianHoursToConvert: lowerMedian(overall.hours),
		P90HoursToConvert:    percentile(overall.hours, 0.9),
		ByTrialDays:          make([]TrialBucket, 0, len(buckets)),
	}
	for _, key := range sortedTrialKeys(buckets) {
		b := buckets[key]
		analysis.ByTrialDays = append(analysis.ByTrialDays, TrialBucket{
			TrialDays:            key,
			TrialUsers:           b.users,
			ConvertedUsers:       b.converted,
			ConversionRate:       rate(b.converted, b.users),
			MedianHoursToConvert: lowerMedian(b.hours),
			P90HoursToConvert:    percentile(b.hours, 0.9),
		})
	}
	return analysis
}

// sortedTrialKeys orders numeric trial lengths ascending, then other labels alphabetically.
func sortedTrialKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseFloat(keys[i], 64)
		b, errB := strconv.ParseFloat(keys[j], 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}
