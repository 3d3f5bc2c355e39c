package events

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cohortly/internal/pkg/vocabulary"
)

// minUnixDigits is the shortest bare integer read as unix seconds (1973-03-03 onwards).
const minUnixDigits = 9

// timestampLayouts are tried in order; layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"2006-01-02",
	"20060102",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTimestamp parses the timestamp formats commonly found in event exports.
// Bare integers of 9 to 12 digits are unix seconds, 13 or more are milliseconds.
// Shorter integers are not epochs; 8 digits read as a compact YYYYMMDD date.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		switch digits := len(strings.TrimPrefix(value, "-")); {
		case digits >= 13:
			return time.UnixMilli(n).UTC(), nil
		case digits >= minUnixDigits:
			return time.Unix(n, 0).UTC(), nil
		}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// ProcessData converts raw rows into validated events sorted by timestamp.
// Rows with an unparseable timestamp or an empty user or event name are
// dropped silently; the quality report surfaces them as failed rows.
func ProcessData(rows []RawRow, mapping ColumnMapping) []ProcessedEvent {
	if !mapping.Complete() {
		return []ProcessedEvent{}
	}

	processed := make([]ProcessedEvent, 0, len(rows))
	for _, row := range rows {
		event, ok := ProcessRow(row, mapping)
		if !ok {
			continue
		}
		processed = append(processed, event)
	}

	sort.SliceStable(processed, func(i, j int) bool {
		return processed[i].Timestamp.Before(processed[j].Timestamp)
	})
	return processed
}

// ProcessRow converts a single row; ok is false when the row would be dropped.
func ProcessRow(row RawRow, mapping ColumnMapping) (ProcessedEvent, bool) {
	ts, err := ParseTimestamp(row.Get(mapping.Timestamp))
	if err != nil {
		return ProcessedEvent{}, false
	}
	userID := row.Get(mapping.UserID)
	eventName := row.Get(mapping.EventName)
	if userID == "" || eventName == "" {
		return ProcessedEvent{}, false
	}

	event := ProcessedEvent{
		Timestamp: ts,
		UserID:    userID,
		EventName: eventName,
	}
	if mapping.SessionID != "" {
		event.SessionID = row.Get(mapping.SessionID)
	}
	if mapping.Platform != "" {
		event.Platform = row.Get(mapping.Platform)
	}
	if mapping.Channel != "" {
		event.Channel = row.Get(mapping.Channel)
	}
	return event, true
}

// FilterEvents drops events whose name matches the PCRE pattern.
// An empty pattern returns the input unchanged.
func FilterEvents(evts []ProcessedEvent, excludePattern string) ([]ProcessedEvent, error) {
	if excludePattern == "" {
		return evts, nil
	}
	if err := vocabulary.Validate(excludePattern); err != nil {
		return nil, fmt.Errorf("invalid exclude pattern %q: %w", excludePattern, err)
	}

	kept := make([]ProcessedEvent, 0, len(evts))
	for _, e := range evts {
		matched, err := vocabulary.Match(excludePattern, e.EventName)
		if err != nil {
			return nil, fmt.Errorf("matching exclude pattern: %w", err)
		}
		if !matched {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

// FilterRows drops rows whose mapped event name matches the PCRE pattern, so the
// row-based engines see the same scope as FilterEvents.
func FilterRows(rows []RawRow, mapping ColumnMapping, excludePattern string) ([]RawRow, error) {
	if excludePattern == "" || mapping.EventName == "" {
		return rows, nil
	}
	if err := vocabulary.Validate(excludePattern); err != nil {
		return nil, fmt.Errorf("invalid exclude pattern %q: %w", excludePattern, err)
	}

	kept := make([]RawRow, 0, len(rows))
	for _, row := range rows {
		matched, err := vocabulary.Match(excludePattern, row.Get(mapping.EventName))
		if err != nil {
			return nil, fmt.Errorf("matching exclude pattern: %w", err)
		}
		if !matched {
			kept = append(kept, row)
		}
	}
	return kept, nil
}
