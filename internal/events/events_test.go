package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohortly/internal/events"
	"cohortly/internal/testsupport"
)

func TestAutoDetectColumns(t *testing.T) {
	testCases := []struct {
		name     string
		headers  []string
		expected events.ColumnMapping
	}{
		{
			name:    "canonical headers",
			headers: []string{"timestamp", "user_id", "event_name", "session_id", "platform", "channel"},
			expected: events.ColumnMapping{
				Timestamp: "timestamp", UserID: "user_id", EventName: "event_name",
				SessionID: "session_id", Platform: "platform", Channel: "channel",
			},
		},
		{
			name:    "case insensitive and casing preserved",
			headers: []string{"Time", "USER", "Action", "Device", "UTM_Source"},
			expected: events.ColumnMapping{
				Timestamp: "Time", UserID: "USER", EventName: "Action",
				Platform: "Device", Channel: "UTM_Source",
			},
		},
		{
			name:    "first header in input order wins",
			headers: []string{"date", "timestamp", "customer_id", "user_id", "event"},
			expected: events.ColumnMapping{
				Timestamp: "date", UserID: "customer_id", EventName: "event",
			},
		},
		{
			name:     "unknown headers are omitted",
			headers:  []string{"foo", "bar"},
			expected: events.ColumnMapping{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, events.AutoDetectColumns(tc.headers))
		})
	}
}

func TestColumnMappingMissing(t *testing.T) {
	m := events.ColumnMapping{Timestamp: "ts"}
	assert.False(t, m.Complete())
	assert.Equal(t, []string{events.FieldUserID, events.FieldEventName}, m.Missing())

	merged := m.Merge(events.ColumnMapping{Timestamp: "other", UserID: "uid", EventName: "ev"})
	assert.True(t, merged.Complete())
	assert.Equal(t, "ts", merged.Timestamp)
}

func TestRawRowLookup(t *testing.T) {
	row := events.RawRow{"Revenue": " 9900 ", "Plan": "monthly"}

	assert.True(t, row.Has("revenue"))
	assert.True(t, row.Has("PLAN"))
	assert.False(t, row.Has("trial_days"))
	assert.Equal(t, "9900", row.Get("REVENUE"))
	assert.Equal(t, "", row.Get("cancel_reason"))
	assert.True(t, events.HasColumn([]events.RawRow{{"a": "1"}, row}, "revenue"))
}

func TestParseTimestamp(t *testing.T) {
	expected := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	for _, value := range []string{
		"2024-03-15T12:30:00Z",
		"2024-03-15T14:30:00+02:00",
		"2024-03-15 12:30:00",
		"2024-03-15T12:30:00",
		"2024-03-15 12:30",
		"2024/03/15 12:30:00",
		"1710505800",
		"1710505800000",
	} {
		t.Run(value, func(t *testing.T) {
			ts, err := events.ParseTimestamp(value)
			require.NoError(t, err)
			assert.True(t, expected.Equal(ts), "got %s", ts)
		})
	}

	_, err := events.ParseTimestamp("not a date")
	assert.Error(t, err)
	_, err = events.ParseTimestamp("")
	assert.Error(t, err)

	t.Run("short integers are not epochs", func(t *testing.T) {
		_, err := events.ParseTimestamp("2024")
		assert.Error(t, err)
		_, err = events.ParseTimestamp("86400")
		assert.Error(t, err)

		ts, err := events.ParseTimestamp("20240115")
		require.NoError(t, err)
		assert.True(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC).Equal(ts), "got %s", ts)

		ts, err = events.ParseTimestamp("100000000")
		require.NoError(t, err)
		assert.Equal(t, int64(100000000), ts.Unix())
	})
}

func TestProcessData(t *testing.T) {
	mapping := events.ColumnMapping{Timestamp: "ts", UserID: "uid", EventName: "ev", Platform: "os"}
	rows := []events.RawRow{
		testsupport.Row("ts", "2024-01-02T00:00:00Z", "uid", "b", "ev", "purchase", "os", "ios"),
		testsupport.Row("ts", "2024-01-01T00:00:00Z", "uid", "a", "ev", "view_item"),
		testsupport.Row("ts", "garbage", "uid", "c", "ev", "view_item"),
		testsupport.Row("ts", "2024-01-01T00:00:00Z", "uid", "  ", "ev", "view_item"),
		testsupport.Row("ts", "2024-01-01T00:00:00Z", "uid", "d", "ev", ""),
	}

	processed := events.ProcessData(rows, mapping)
	require.Len(t, processed, 2)
	assert.Equal(t, "a", processed[0].UserID)
	assert.Equal(t, "b", processed[1].UserID)
	assert.Equal(t, "ios", processed[1].Platform)
	assert.Empty(t, processed[0].Channel)

	t.Run("incomplete mapping yields no events", func(t *testing.T) {
		assert.Empty(t, events.ProcessData(rows, events.ColumnMapping{Timestamp: "ts"}))
	})

	t.Run("input is not mutated", func(t *testing.T) {
		assert.Equal(t, "2024-01-02T00:00:00Z", rows[0]["ts"])
	})
}

func TestGenerateDataQualityReport(t *testing.T) {
	mapping := events.ColumnMapping{Timestamp: "ts", UserID: "uid", EventName: "ev", Platform: "os"}
	rows := []events.RawRow{
		testsupport.Row("ts", "2024-01-03T00:00:00Z", "uid", "a", "ev", "view_item", "os", "ios"),
		testsupport.Row("ts", "2024-01-01T00:00:00Z", "uid", "a", "ev", "view_item"),
		testsupport.Row("ts", "2024-01-02T00:00:00Z", "uid", "b", "ev", "purchase"),
		testsupport.Row("ts", "bad", "uid", "c", "ev", "purchase"),
	}
	processed := events.ProcessData(rows, mapping)

	report := events.GenerateDataQualityReport(rows, processed)
	assert.Equal(t, 4, report.TotalRows)
	assert.Equal(t, 3, report.ValidRows)
	assert.Equal(t, 1, report.FailedRows)
	assert.Equal(t, 2, report.UniqueUsers)
	require.NotNil(t, report.MinDate)
	require.NotNil(t, report.MaxDate)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *report.MinDate)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), *report.MaxDate)
	assert.InDelta(t, 66.666, report.MissingPlatformPct, 0.01)
	assert.InDelta(t, 100.0, report.MissingChannelPct, 0.01)
	require.Len(t, report.TopEvents, 2)
	assert.Equal(t, "view_item", report.TopEvents[0].Name)
	assert.Equal(t, 2, report.TopEvents[0].Count)
	assert.InDelta(t, 66.666, report.TopEvents[0].Percentage, 0.01)

	t.Run("empty input", func(t *testing.T) {
		empty := events.GenerateDataQualityReport(nil, nil)
		assert.Zero(t, empty.TotalRows)
		assert.Nil(t, empty.MinDate)
		assert.NotNil(t, empty.TopEvents)
	})

	t.Run("top events capped at ten", func(t *testing.T) {
		var many []events.ProcessedEvent
		for i := 0; i < 15; i++ {
			many = append(many, testsupport.Event("u", string(rune('a'+i)), testsupport.EcommerceBase, 0, i))
		}
		assert.Len(t, events.GenerateDataQualityReport(nil, many).TopEvents, events.TopEventsLimit)
	})
}

func TestFilterEvents(t *testing.T) {
	evts := []events.ProcessedEvent{
		testsupport.Event("a", "view_item", testsupport.EcommerceBase, 0, 0),
		testsupport.Event("a", "debug_ping", testsupport.EcommerceBase, 0, 1),
		testsupport.Event("b", "QA_test_purchase", testsupport.EcommerceBase, 0, 2),
	}

	kept, err := events.FilterEvents(evts, `(?i)^(debug_|qa_)`)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "view_item", kept[0].EventName)

	same, err := events.FilterEvents(evts, "")
	require.NoError(t, err)
	assert.Len(t, same, 3)

	_, err = events.FilterEvents(evts, "(unclosed")
	assert.Error(t, err)
}

func TestFilterRows(t *testing.T) {
	mapping := events.ColumnMapping{Timestamp: "ts", UserID: "user", EventName: "event"}
	rows := []events.RawRow{
		testsupport.Row("ts", "2024-01-01", "user", "a", "event", "view_item"),
		testsupport.Row("ts", "2024-01-01", "user", "a", "event", "debug_ping"),
		testsupport.Row("ts", "2024-01-01", "user", "b", "Event", "purchase"),
	}

	kept, err := events.FilterRows(rows, mapping, `^debug_`)
	require.NoError(t, err)
	assert.Len(t, kept, 2)

	same, err := events.FilterRows(rows, events.ColumnMapping{}, `^debug_`)
	require.NoError(t, err)
	assert.Len(t, same, 3)

	_, err = events.FilterRows(rows, mapping, "[a-")
	assert.Error(t, err)
}

func TestFuzzyMatch(t *testing.T) {
	assert.True(t, events.FuzzyMatch("Purchase_Completed", "purchase"))
	assert.True(t, events.FuzzyMatch("cart", "add_to_cart"))
	assert.False(t, events.FuzzyMatch("signup", "purchase"))
	assert.False(t, events.FuzzyMatch("", "purchase"))
	assert.False(t, events.FuzzyMatch("purchase", "  "))
}

func TestIndex(t *testing.T) {
	evts := testsupport.EcommerceFixture().Events()
	idx := events.NewIndex(evts)

	assert.Equal(t, 10, idx.UserCount())
	assert.Equal(t, []string{"add_to_cart", "begin_checkout", "purchase", "view_item"}, idx.Names())
	assert.Len(t, idx.UsersWith("add_to_cart"), 7)
	assert.Empty(t, idx.UsersWith("missing"))
	assert.Equal(t, "view_item", idx.MostFrequentName())
	assert.Len(t, idx.UsersMatching(func(name string) bool { return events.FuzzyMatch(name, "checkout") }), 4)

	userEvents := idx.Events("u03")
	require.Len(t, userEvents, 3)
	for i := 1; i < len(userEvents); i++ {
		assert.False(t, userEvents[i].Timestamp.Before(userEvents[i-1].Timestamp))
	}
}
