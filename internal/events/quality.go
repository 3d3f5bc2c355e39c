package events

import (
	"sort"
	"time"
)

// EventFrequency is one row of the top-events table.
type EventFrequency struct {
	Name       string  `json:"name" yaml:"name"`
	Count      int     `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// DataQualityReport summarizes how much of the input survived normalization.
type DataQualityReport struct {
	TotalRows          int              `json:"total_rows" yaml:"total_rows"`
	ValidRows          int              `json:"valid_rows" yaml:"valid_rows"`
	FailedRows         int              `json:"failed_rows" yaml:"failed_rows"`
	UniqueUsers        int              `json:"unique_users" yaml:"unique_users"`
	MinDate            *time.Time       `json:"min_date" yaml:"min_date"`
	MaxDate            *time.Time       `json:"max_date" yaml:"max_date"`
	MissingPlatformPct float64          `json:"missing_platform_pct" yaml:"missing_platform_pct"`
	MissingChannelPct  float64          `json:"missing_channel_pct" yaml:"missing_channel_pct"`
	TopEvents          []EventFrequency `json:"top_events" yaml:"top_events"`
}

// GenerateDataQualityReport compares the raw input with the processed events.
func GenerateDataQualityReport(rows []RawRow, processed []ProcessedEvent) DataQualityReport {
	report := DataQualityReport{
		TotalRows:  len(rows),
		ValidRows:  len(processed),
		FailedRows: len(rows) - len(processed),
		TopEvents:  []EventFrequency{},
	}
	if len(processed) == 0 {
		return report
	}

	users := make(map[string]struct{})
	counts := make(map[string]int)
	missingPlatform, missingChannel := 0, 0
	minDate, maxDate := processed[0].Timestamp, processed[0].Timestamp

	for _, e := range processed {
		users[e.UserID] = struct{}{}
		counts[e.EventName]++
		if e.Platform == "" {
			missingPlatform++
		}
		if e.Channel == "" {
			missingChannel++
		}
		if e.Timestamp.Before(minDate) {
			minDate = e.Timestamp
		}
		if e.Timestamp.After(maxDate) {
			maxDate = e.Timestamp
		}
	}

	valid := float64(len(processed))
	report.UniqueUsers = len(users)
	report.MinDate = &minDate
	report.MaxDate = &maxDate
	report.MissingPlatformPct = float64(missingPlatform) / valid * 100
	report.MissingChannelPct = float64(missingChannel) / valid * 100
	report.TopEvents = topEvents(counts, valid, TopEventsLimit)

	return report
}

func topEvents(counts map[string]int, total float64, limit int) []EventFrequency {
	freqs := make([]EventFrequency, 0, len(counts))
	for name, count := range counts {
		freqs = append(freqs, EventFrequency{
			Name:       name,
			Count:      count,
			Percentage: float64(count) / total * 100,
		})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Count != freqs[j].Count {
			return freqs[i].Count > freqs[j].Count
		}
		return freqs[i].Name < freqs[j].Name
	})
	if len(freqs) > limit {
		freqs = freqs[:limit]
	}
	return freqs
}
