package testsupport

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"cohortly/internal/events"
)

// Fixture base times; every fixture event is derived from these.
var (
	EcommerceBase    = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	SubscriptionBase = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
)

// EcommerceSteps is the ordered funnel of the e-commerce fixture.
var EcommerceSteps = []string{"view_item", "add_to_cart", "begin_checkout", "purchase"}

// SubscriptionSteps is the ordered funnel of the subscription fixture.
var SubscriptionSteps = []string{"app_open", "signup", "onboarding_complete", "start_trial", "subscribe"}

// GetLogger returns a logger that discards output.
func GetLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fixture is a tokenized CSV table.
type Fixture struct {
	Headers []string
	Rows    []events.RawRow
}

// Mapping resolves the fixture's column mapping from its headers.
func (f Fixture) Mapping() events.ColumnMapping {
	return events.AutoDetectColumns(f.Headers)
}

// Events returns the fixture's processed events.
func (f Fixture) Events() []events.ProcessedEvent {
	return events.ProcessData(f.Rows, f.Mapping())
}

// EcommerceFixture builds the 10-user e-commerce dataset:
// view_item 10 users, add_to_cart 7, begin_checkout 4, purchase 2.
// Users 1-5 are on ios, 6-10 on android; odd users come from google, even from facebook.
// User i adds to cart 2*i minutes after viewing, checks out 10 minutes later and
// purchases 5 minutes after that.
func EcommerceFixture() Fixture {
	f := Fixture{Headers: []string{"timestamp", "user_id", "event_name", "session_id", "platform", "channel"}}

	for i := 1; i <= 10; i++ {
		user := fmt.Sprintf("u%02d", i)
		platform := "android"
		if i <= 5 {
			platform = "ios"
		}
		channel := "facebook"
		if i%2 == 1 {
			channel = "google"
		}
		view := EcommerceBase.Add(time.Duration(i) * time.Hour)
		cart := view.Add(time.Duration(2*i) * time.Minute)
		checkout := cart.Add(10 * time.Minute)
		purchase := checkout.Add(5 * time.Minute)

		add := func(ts time.Time, name string) {
			f.Rows = append(f.Rows, events.RawRow{
				"timestamp":  ts.Format(time.RFC3339),
				"user_id":    user,
				"event_name": name,
				"session_id": "s-" + user,
				"platform":   platform,
				"channel":    channel,
			})
		}

		add(view, "view_item")
		if i <= 7 {
			add(cart, "add_to_cart")
		}
		if i <= 4 {
			add(checkout, "begin_checkout")
		}
		if i <= 2 {
			add(purchase, "purchase")
		}
	}
	return f
}

// SubscriptionFixture builds the 8-user subscription dataset:
// app_open 8 users, signup 7, onboarding_complete 5, start_trial 3, subscribe 2.
// u1 subscribes 3 days into a 7-day trial on a monthly plan and renews 30 days later.
// u2 subscribes 5 days into a 7-day trial on a yearly plan and cancels 10 days later
// with reason too_expensive. u3 starts a 14-day trial and never converts.
// Every subscribe and renew carries revenue 9900.
func SubscriptionFixture() Fixture {
	f := Fixture{Headers: []string{"timestamp", "user_id", "event_name", "platform", "channel", "revenue", "plan", "trial_days", "cancel_reason"}}

	for i := 1; i <= 8; i++ {
		user := "u" + strconv.Itoa(i)
		platform := "android"
		if i%2 == 1 {
			platform = "ios"
		}
		channel := "organic"
		if i <= 4 {
			channel = "paid_social"
		}

		add := func(ts time.Time, name string, extra map[string]string) {
			row := events.RawRow{
				"timestamp":     ts.Format("2006-01-02 15:04:05"),
				"user_id":       user,
				"event_name":    name,
				"platform":      platform,
				"channel":       channel,
				"revenue":       "",
				"plan":          "",
				"trial_days":    "",
				"cancel_reason": "",
			}
			for k, v := range extra {
				row[k] = v
			}
			f.Rows = append(f.Rows, row)
		}

		open := SubscriptionBase.Add(time.Duration(i-1) * time.Hour)
		signup := open.Add(10 * time.Minute)
		onboarding := open.Add(20 * time.Minute)
		trial := open.Add(30 * time.Minute)

		add(open, "app_open", nil)
		if i <= 7 {
			add(signup, "signup", nil)
		}
		if i <= 5 {
			add(onboarding, "onboarding_complete", nil)
		}
		switch i {
		case 1:
			add(trial, "start_trial", map[string]string{"trial_days": "7"})
			sub := trial.Add(3 * 24 * time.Hour)
			add(sub, "subscribe", map[string]string{"revenue": "9900", "plan": "monthly"})
			add(sub.Add(30*24*time.Hour), "renew", map[string]string{"revenue": "9900", "plan": "monthly"})
		case 2:
			add(trial, "start_trial", map[string]string{"trial_days": "7"})
			sub := trial.Add(5 * 24 * time.Hour)
			add(sub, "subscribe", map[string]string{"revenue": "9900", "plan": "yearly"})
			add(sub.Add(10*24*time.Hour), "cancel", map[string]string{"cancel_reason": "too_expensive", "plan": "yearly"})
		case 3:
			add(trial, "start_trial", map[string]string{"trial_days": "14"})
		}
	}
	return f
}

// Row builds a RawRow from alternating key/value pairs.
func Row(kv ...string) events.RawRow {
	row := events.RawRow{}
	for i := 0; i+1 < len(kv); i += 2 {
		row[kv[i]] = kv[i+1]
	}
	return row
}

// Event builds a processed event at base plus the given day and hour offsets.
func Event(user, name string, base time.Time, day, hour int) events.ProcessedEvent {
	return events.ProcessedEvent{
		Timestamp: base.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour),
		UserID:    user,
		EventName: name,
	}
}

// RequireEvents processes rows and fails the test when nothing survives.
func RequireEvents(t *testing.T, f Fixture) []events.ProcessedEvent {
	t.Helper()
	evts := f.Events()
	if len(evts) == 0 {
		t.Fatalf("testsupport: fixture produced no events")
	}
	return evts
}
