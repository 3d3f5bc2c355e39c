package analytics_test

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"cohortly/internal/analytics"
	"cohortly/internal/events"
	"cohortly/internal/testsupport"
)

// eventsFromCodes decodes each int into a user, a funnel step and a platform;
// the slice position drives the timestamp so the result is already time-ordered.
func eventsFromCodes(codes []int) []events.ProcessedEvent {
	evts := make([]events.ProcessedEvent, 0, len(codes))
	for i, code := range codes {
		user := code % 8
		platform := "android"
		if user%2 == 0 {
			platform = "ios"
		}
		evts = append(evts, events.ProcessedEvent{
			Timestamp: testsupport.EcommerceBase.Add(time.Duration(i) * 7 * time.Hour),
			UserID:    fmt.Sprintf("u%d", user),
			EventName: testsupport.EcommerceSteps[(code/8)%len(testsupport.EcommerceSteps)],
			Platform:  platform,
		})
	}
	return evts
}

func subscriptionRowsFromCodes(codes []int) []events.RawRow {
	names := []string{"subscribe", "renew", "cancel", "app_open"}
	rows := make([]events.RawRow, 0, len(codes))
	for i, code := range codes {
		ts := testsupport.SubscriptionBase.Add(time.Duration(i) * 19 * time.Hour)
		rows = append(rows, testsupport.Row(
			"timestamp", ts.Format(time.RFC3339),
			"user_id", fmt.Sprintf("u%d", code%6),
			"event_name", names[(code/6)%len(names)],
		))
	}
	return rows
}

func TestFunnelProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("first step is 100% with no drop-off and users never increase", prop.ForAll(
		func(codes []int, strict bool) bool {
			var opts []analytics.FunnelOption
			if strict {
				opts = append(opts, analytics.WithStrictOrder())
			}
			steps := analytics.CalculateFunnel(eventsFromCodes(codes), testsupport.EcommerceSteps, opts...)
			if len(steps) != len(testsupport.EcommerceSteps) {
				return false
			}
			if steps[0].ConversionRate != 100 || steps[0].DropOff != 0 {
				return false
			}
			for i, s := range steps {
				if s.ConversionRate < 0 || s.ConversionRate > 100 {
					return false
				}
				if i > 0 && s.Users > steps[i-1].Users {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 63)),
		gen.Bool(),
	))

	properties.Property("strict order never admits more users than loose order", prop.ForAll(
		func(codes []int) bool {
			evts := eventsFromCodes(codes)
			loose := analytics.CalculateFunnel(evts, testsupport.EcommerceSteps)
			strict := analytics.CalculateFunnel(evts, testsupport.EcommerceSteps, analytics.WithStrictOrder())
			for i := range loose {
				if strict[i].Users > loose[i].Users {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 63)),
	))

	properties.Property("funnel is idempotent", prop.ForAll(
		func(codes []int) bool {
			evts := eventsFromCodes(codes)
			return reflect.DeepEqual(
				analytics.CalculateFunnel(evts, testsupport.EcommerceSteps),
				analytics.CalculateFunnel(evts, testsupport.EcommerceSteps),
			)
		},
		gen.SliceOf(gen.IntRange(0, 63)),
	))

	properties.TestingRun(t)
}

func TestSegmentProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("segment conversions and p-values stay in range", prop.ForAll(
		func(codes []int) bool {
			evts := eventsFromCodes(codes)
			results := analytics.CompareSegments(evts, testsupport.EcommerceSteps, []string{"ios", "android"}, nil)
			for _, r := range results {
				if r.PValue < 0 || r.PValue > 1 {
					return false
				}
				if r.Conversion < 0 || r.Conversion > 100 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 63)),
	))

	properties.Property("p-value is within [0, 1]", prop.ForAll(
		func(x1, n1, x2, n2 int) bool {
			if x1 > n1 {
				x1 = n1
			}
			if x2 > n2 {
				x2 = n2
			}
			p := analytics.TwoProportionPValue(x1, n1, x2, n2)
			return p >= 0 && p <= 1
		},
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
	))

	properties.TestingRun(t)
}

func TestRetentionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	mapping := events.AutoDetectColumns([]string{"timestamp", "user_id", "event_name"})

	properties.Property("paid retention starts at 100% and stays in range", prop.ForAll(
		func(codes []int) bool {
			for _, c := range analytics.CalculatePaidRetention(subscriptionRowsFromCodes(codes), mapping) {
				if c.Days["D0"] != 100 {
					return false
				}
				for _, v := range c.Days {
					if v < 0 || v > 100 {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 23)),
	))

	properties.Property("activity retention is idempotent", prop.ForAll(
		func(codes []int) bool {
			evts := eventsFromCodes(codes)
			return reflect.DeepEqual(
				analytics.CalculateActivityRetention(evts, "view_item", nil),
				analytics.CalculateActivityRetention(evts, "view_item", nil),
			)
		},
		gen.SliceOf(gen.IntRange(0, 63)),
	))

	properties.TestingRun(t)
}
