// Package seeder generates synthetic event logs for demos and load tests.
package seeder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"cohortly/internal/csvinput"
	"cohortly/internal/events"
)

// Kind selects the journey templates.
type Kind string

const (
	KindEcommerce    Kind = "ecommerce"
	KindSubscription Kind = "subscription"
)

const timestampLayout = "2006-01-02 15:04:05"

var (
	ecommerceHeaders    = []string{"timestamp", "user_id", "event_name", "session_id", "platform", "channel", "revenue"}
	subscriptionHeaders = []string{"timestamp", "user_id", "event_name", "session_id", "platform", "channel", "revenue", "plan", "trial_days", "cancel_reason"}

	platforms     = []string{"ios", "android", "web"}
	channels      = []string{"google", "facebook", "newsletter", "twitter", "linkedin"}
	cancelReasons = []string{"too_expensive", "missing_features", "not_using", "switched_competitor", "technical_issues"}
)

// Options configure a generation run.
type Options struct {
	Kind  Kind
	Users int
	Seed  uint64
	// Start is the earliest first-seen time; users arrive over Days days.
	Start time.Time
	Days  int
}

// Seeder produces a deterministic dataset for a given seed.
type Seeder struct {
	Logger  *slog.Logger
	Options Options
}

// NewSeeder creates a new seeder instance
func NewSeeder(logger *slog.Logger, opts Options) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Kind == "" {
		opts.Kind = KindEcommerce
	}
	if opts.Users <= 0 {
		opts.Users = 500
	}
	if opts.Days <= 0 {
		opts.Days = 14
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Seeder{Logger: logger, Options: opts}
}

type generated struct {
	ts  time.Time
	row events.RawRow
}

// journey appends the events of one user.
type journey struct {
	rng      *rand.Rand
	user     string
	session  string
	platform string
	channel  string
	clock    time.Time
	out      []generated
}

func (j *journey) emit(name string, extra map[string]string) {
	row := events.RawRow{
		"timestamp":  j.clock.Format(timestampLayout),
		"user_id":    j.user,
		"event_name": name,
		"session_id": j.session,
		"platform":   j.platform,
		"channel":    j.channel,
	}
	for k, v := range extra {
		row[k] = v
	}
	j.out = append(j.out, generated{ts: j.clock, row: row})
}

func (j *journey) wait(lo, hi time.Duration) {
	j.clock = j.clock.Add(lo + time.Duration(j.rng.Int64N(int64(hi-lo)+1)))
}

func (j *journey) chance(p float64) bool {
	return j.rng.Float64() < p
}

// Generate builds the dataset. Rows are ordered by timestamp.
func (s *Seeder) Generate(ctx context.Context) (csvinput.Table, error) {
	start := time.Now()
	opts := s.Options

	var headers []string
	var build func(j *journey)
	switch opts.Kind {
	case KindEcommerce:
		headers, build = ecommerceHeaders, ecommerceJourney
	case KindSubscription:
		headers, build = subscriptionHeaders, subscriptionJourney
	default:
		return csvinput.Table{}, fmt.Errorf("unknown dataset kind: %s", opts.Kind)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	var all []generated
	for i := 0; i < opts.Users; i++ {
		if ctx.Err() != nil {
			return csvinput.Table{}, ctx.Err()
		}
		offset := time.Duration(rng.Int64N(int64(opts.Days) * int64(24*time.Hour)))
		j := &journey{
			rng:      rng,
			user:     fmt.Sprintf("user_%05d", i+1),
			session:  fmt.Sprintf("s_%05d_1", i+1),
			platform: platforms[rng.IntN(len(platforms))],
			channel:  channels[rng.IntN(len(channels))],
			clock:    opts.Start.Add(offset).Truncate(time.Second),
		}
		build(j)
		all = append(all, j.out...)
	}

	sort.SliceStable(all, func(a, b int) bool { return all[a].ts.Before(all[b].ts) })

	table := csvinput.Table{Headers: append([]string(nil), headers...), Rows: make([]events.RawRow, len(all))}
	for i, g := range all {
		table.Rows[i] = g.row
	}

	s.Logger.Info("Generated synthetic dataset",
		slog.String("kind", string(opts.Kind)),
		slog.Int("users", opts.Users),
		slog.Int("rows", len(table.Rows)),
		slog.Duration("elapsed", time.Since(start)))
	return table, nil
}

// WriteCSV generates the dataset and writes it as CSV.
func (s *Seeder) WriteCSV(ctx context.Context, w io.Writer) error {
	table, err := s.Generate(ctx)
	if err != nil {
		return err
	}
	return csvinput.Write(w, table.Headers, table.Rows)
}

// ecommerceJourney walks view_item → add_to_cart → begin_checkout → purchase.
// Mobile users abandon the cart more often than web users.
func ecommerceJourney(j *journey) {
	cartRate := 0.55
	if j.platform == "web" {
		cartRate = 0.7
	}

	j.emit("view_item", nil)
	for views := j.rng.IntN(3); views > 0; views-- {
		j.wait(30*time.Second, 3*time.Minute)
		j.emit("view_item", nil)
	}
	if !j.chance(cartRate) {
		return
	}
	j.wait(time.Minute, 10*time.Minute)
	j.emit("add_to_cart", nil)
	if !j.chance(0.6) {
		return
	}
	j.wait(time.Minute, 15*time.Minute)
	j.emit("begin_checkout", nil)
	if !j.chance(0.7) {
		return
	}
	j.wait(30*time.Second, 5*time.Minute)
	j.emit("purchase", map[string]string{"revenue": strconv.Itoa(1999 + j.rng.IntN(8000))})

	// Returning buyers come back over the following two weeks.
	j.session = j.session[:len(j.session)-1] + "2"
	for day := 1; day <= 14; day++ {
		if j.chance(0.15) {
			j.clock = j.clock.Add(24 * time.Hour)
			j.emit("view_item", nil)
		}
	}
}

// subscriptionJourney walks app_open → signup → onboarding_complete → start_trial →
// subscribe, then renews, fails payment or cancels.
func subscriptionJourney(j *journey) {
	j.emit("app_open", nil)
	if !j.chance(0.75) {
		return
	}
	j.wait(time.Minute, 20*time.Minute)
	j.emit("signup", nil)
	if !j.chance(0.7) {
		return
	}
	j.wait(5*time.Minute, time.Hour)
	j.emit("onboarding_complete", nil)
	if !j.chance(0.6) {
		return
	}

	trialDays := 7
	if j.chance(0.4) {
		trialDays = 14
	}
	j.wait(10*time.Minute, 2*time.Hour)
	j.emit("start_trial", map[string]string{"trial_days": strconv.Itoa(trialDays)})

	// Daily activity during the trial.
	trialStart := j.clock
	for day := 1; day < trialDays; day++ {
		if j.chance(0.5) {
			j.clock = trialStart.Add(time.Duration(day)*24*time.Hour + time.Duration(j.rng.IntN(12))*time.Hour)
			j.emit("app_open", nil)
		}
	}

	convertRate := 0.45
	if j.channel == "newsletter" {
		convertRate = 0.6
	}
	if !j.chance(convertRate) {
		return
	}

	plan, price, period := "monthly", 999, 30
	if j.chance(0.3) {
		plan, price, period = "yearly", 9999, 365
	}
	j.clock = trialStart.Add(time.Duration(j.rng.IntN(trialDays*24)+1) * time.Hour)
	paid := map[string]string{"plan": plan, "revenue": strconv.Itoa(price)}
	j.emit("subscribe", paid)

	for cycle := 0; cycle < 3; cycle++ {
		if j.chance(0.25) {
			j.wait(24*time.Hour, time.Duration(period)*24*time.Hour)
			j.emit("cancel", map[string]string{"plan": plan, "cancel_reason": cancelReasons[j.rng.IntN(len(cancelReasons))]})
			return
		}
		j.clock = j.clock.Add(time.Duration(period) * 24 * time.Hour)
		if j.chance(0.1) {
			j.emit("payment_failed", map[string]string{"plan": plan})
			j.wait(time.Hour, 48*time.Hour)
		}
		j.emit("renew", paid)
	}
}
