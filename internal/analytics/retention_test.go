package analytics_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohortly/internal/analytics"
	"cohortly/internal/events"
	"cohortly/internal/testsupport"
)

func TestCalculateActivityRetention(t *testing.T) {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	evts := []events.ProcessedEvent{
		testsupport.Event("u1", "signup", base, 0, 0),
		testsupport.Event("u2", "signup", base, 0, 1),
		testsupport.Event("u1", "open", base, 1, 0),
		testsupport.Event("u2", "open", base, 1, 2),
		testsupport.Event("u3", "signup", base, 2, 0),
		testsupport.Event("u1", "open", base, 3, 0),
		testsupport.Event("u3", "open", base, 3, 1),
		// A second signup never moves a user to a later cohort
		testsupport.Event("u2", "signup", base, 4, 0),
	}

	cohorts := analytics.CalculateActivityRetention(evts, "signup", []string{"open"})
	require.Len(t, cohorts, 2)

	first := cohorts[0]
	assert.Equal(t, "2024-03-01", first.CohortDate)
	assert.Equal(t, 2, first.CohortSize)
	assert.Len(t, first.Days, analytics.ActivityRetentionDays+1)
	assert.Equal(t, 0.0, first.Days["D0"])
	assert.Equal(t, 100.0, first.Days["D1"])
	assert.Equal(t, 0.0, first.Days["D2"])
	// Exact-day activity: u1 returns on D3 without being active on D2
	assert.Equal(t, 50.0, first.Days["D3"])
	assert.Equal(t, 0.0, first.Days["D14"])

	second := cohorts[1]
	assert.Equal(t, "2024-03-03", second.CohortDate)
	assert.Equal(t, 1, second.CohortSize)
	assert.Equal(t, 100.0, second.Days["D1"])

	t.Run("any event counts when no active events are given", func(t *testing.T) {
		cohorts := analytics.CalculateActivityRetention(evts, "signup", nil)
		require.Len(t, cohorts, 2)
		assert.Equal(t, 100.0, cohorts[0].Days["D0"])
		assert.Equal(t, 50.0, cohorts[0].Days["D4"])
	})

	t.Run("unknown cohort event", func(t *testing.T) {
		cohorts := analytics.CalculateActivityRetention(evts, "purchase", nil)
		assert.NotNil(t, cohorts)
		assert.Empty(t, cohorts)
	})
}

func TestCalculateFullDataRetention(t *testing.T) {
	evts := testsupport.RequireEvents(t, testsupport.EcommerceFixture())

	cohorts := analytics.CalculateFullDataRetention(evts)
	require.Len(t, cohorts, 1)
	assert.Equal(t, "2024-01-01", cohorts[0].CohortDate)
	assert.Equal(t, 10, cohorts[0].CohortSize)
	assert.Equal(t, 100.0, cohorts[0].Days["D0"])
	assert.Equal(t, 0.0, cohorts[0].Days["D1"])

	assert.Nil(t, analytics.CalculateFullDataRetention(nil))

	t.Run("keeps the earliest cohorts", func(t *testing.T) {
		var evts []events.ProcessedEvent
		for day := 0; day < 9; day++ {
			evts = append(evts, testsupport.Event(fmt.Sprintf("u%d", day), "open", testsupport.EcommerceBase, day, 0))
		}
		cohorts := analytics.CalculateFullDataRetention(evts)
		require.Len(t, cohorts, analytics.MaxFullDataRetentionCohorts)
		assert.Equal(t, "2024-01-01", cohorts[0].CohortDate)
		assert.Equal(t, "2024-01-07", cohorts[6].CohortDate)
	})
}

func TestCalculatePaidRetention(t *testing.T) {
	f := testsupport.SubscriptionFixture()

	cohorts := analytics.CalculatePaidRetention(f.Rows, f.Mapping())
	require.Len(t, cohorts, 2)

	renewer := cohorts[0]
	assert.Equal(t, "2024-02-04", renewer.CohortDate)
	assert.Equal(t, 1, renewer.CohortSize)
	for _, offset := range analytics.PaidRetentionOffsets {
		assert.Equal(t, 100.0, renewer.Days[analytics.DayKey(offset)], "offset %d", offset)
	}

	canceller := cohorts[1]
	assert.Equal(t, "2024-02-06", canceller.CohortDate)
	assert.Equal(t, map[string]float64{
		"D0": 100, "D7": 100, "D14": 0, "D30": 0, "D60": 0, "D90": 0,
	}, canceller.Days)
}

func TestCalculatePaidRetentionCohortCap(t *testing.T) {
	var rows []events.RawRow
	for i := 0; i < 12; i++ {
		ts := testsupport.SubscriptionBase.AddDate(0, 0, 11-i)
		rows = append(rows, testsupport.Row(
			"timestamp", ts.Format(time.RFC3339),
			"user_id", fmt.Sprintf("u%02d", i),
			"event_name", "subscribe",
		))
	}
	mapping := events.AutoDetectColumns([]string{"timestamp", "user_id", "event_name"})

	cohorts := analytics.CalculatePaidRetention(rows, mapping)
	require.Len(t, cohorts, analytics.MaxPaidRetentionCohorts)
	assert.Equal(t, "2024-02-01", cohorts[0].CohortDate)
	assert.Equal(t, "2024-02-10", cohorts[9].CohortDate)
	for _, c := range cohorts {
		assert.Equal(t, 100.0, c.Days["D0"])
	}

	t.Run("unmapped columns", func(t *testing.T) {
		assert.Empty(t, analytics.CalculatePaidRetention(rows, events.ColumnMapping{}))
	})
}

func TestAverageRetention(t *testing.T) {
	avg := analytics.AverageRetention([]analytics.RetentionCohort{
		{Days: map[string]float64{"D0": 100, "D1": 40}},
		{Days: map[string]float64{"D0": 100, "D1": 20}},
	})
	assert.Equal(t, 100.0, avg["D0"])
	assert.InDelta(t, 30.0, avg["D1"], 0.0001)

	assert.Nil(t, analytics.AverageRetention(nil))
}
