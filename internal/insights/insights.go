// Package insights turns engine results into a fixed, ordered list of findings.
//
// Every rule recomputes the full-dataset engine result it needs from the raw
// input, so the generated set never depends on caller-side configuration.
package insights

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"cohortly/internal/analytics"
	"cohortly/internal/events"
)

// Type is the severity of an insight.
type Type string

const (
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeDanger  Type = "danger"
	TypeInfo    Type = "info"
)

// Insight is a single natural-language finding.
type Insight struct {
	Key             string   `json:"key" yaml:"key"`
	Type            Type     `json:"type" yaml:"type"`
	Icon            string   `json:"icon" yaml:"icon"`
	Title           string   `json:"title" yaml:"title"`
	Body            string   `json:"body" yaml:"body"`
	Metric          string   `json:"metric,omitempty" yaml:"metric,omitempty"`
	Recommendations []string `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}

// Input is the raw data every rule recomputes from.
type Input struct {
	Events      []events.ProcessedEvent
	Rows        []events.RawRow
	Mapping     events.ColumnMapping
	DatasetType events.DatasetType
}

// Rule thresholds
const (
	DangerDropOffPct          = 50.0
	PlatformGapPoints         = 10.0
	ChannelGapPoints          = 15.0
	LowD1RetentionPct         = 25.0
	RetentionDropPoints       = 5.0
	BestSegmentConversionPct  = 10.0
	LowTrialConversionPct     = 35.0
	MinTrialUsers             = 30
	SlowTrialConversionDays   = 10.0
	PaymentFailureRatePct     = 10.0
	PaidChurnRatePct          = 20.0
	DominantCancelReasonShare = 20.0
	PaidD7RetentionPct        = 70.0
	PaidD30RetentionPct       = 50.0
)

// rule appends at most one insight.
type rule func(c *run) (Insight, bool)

var rules = []rule{
	checkFunnelDropOff,
	checkPlatformGap,
	checkChannelGap,
	checkLowD1Retention,
	checkRetentionDrop,
	checkBestSegment,
	checkTrialConversion,
	checkSlowTrialConversion,
	checkPaymentFailures,
	checkPaidChurn,
	checkDominantCancelReason,
	checkPaidRetention,
}

// Generate runs the rule battery in order. The result is never nil.
func Generate(in Input) []Insight {
	c := newRun(in)
	out := []Insight{}
	for _, r := range rules {
		if insight, ok := r(c); ok {
			out = append(out, insight)
		}
	}
	return out
}

// run memoizes engine results within one Generate call.
type run struct {
	in      Input
	printer *message.Printer
	caser   cases.Caser

	funnel    *[]analytics.FunnelStep
	segments  *[]analytics.SegmentResult
	retention *[]analytics.RetentionCohort
	paid      *[]analytics.RetentionCohort
	trial     **analytics.TrialAnalysis
	churn     **analytics.ChurnAnalysis
	kpis      **analytics.SubscriptionKPIs
}

func newRun(in Input) *run {
	return &run{
		in:      in,
		printer: message.NewPrinter(language.English),
		caser:   cases.Title(language.AmericanEnglish),
	}
}

func (c *run) subscription() bool {
	return c.in.DatasetType == events.DatasetSubscription
}

func (c *run) fullFunnel() []analytics.FunnelStep {
	if c.funnel == nil {
		f := analytics.CalculateFullDataFunnel(c.in.Events, c.in.DatasetType)
		c.funnel = &f
	}
	return *c.funnel
}

func (c *run) fullSegments() []analytics.SegmentResult {
	if c.segments == nil {
		s := analytics.CalculateFullDataSegments(c.in.Events, c.in.DatasetType)
		c.segments = &s
	}
	return *c.segments
}

func (c *run) fullRetention() []analytics.RetentionCohort {
	if c.retention == nil {
		r := analytics.CalculateFullDataRetention(c.in.Events)
		c.retention = &r
	}
	return *c.retention
}

func (c *run) paidRetention() []analytics.RetentionCohort {
	if c.paid == nil {
		r := analytics.CalculatePaidRetention(c.in.Rows, c.in.Mapping)
		c.paid = &r
	}
	return *c.paid
}

func (c *run) trialAnalysis() *analytics.TrialAnalysis {
	if c.trial == nil {
		t := analytics.AnalyzeTrialConversion(c.in.Rows, c.in.Mapping)
		c.trial = &t
	}
	return *c.trial
}

func (c *run) churnAnalysis() *analytics.ChurnAnalysis {
	if c.churn == nil {
		ch := analytics.AnalyzeChurn(c.in.Rows, c.in.Mapping)
		c.churn = &ch
	}
	return *c.churn
}

func (c *run) subscriptionKPIs() *analytics.SubscriptionKPIs {
	if c.kpis == nil {
		k := analytics.CalculateSubscriptionKPIs(c.in.Rows, c.in.Mapping)
		c.kpis = &k
	}
	return *c.kpis
}

// stepLabel renders an event name for humans: "add_to_cart" becomes "Add To Cart".
func (c *run) stepLabel(name string) string {
	return c.caser.String(strings.NewReplacer("_", " ", "-", " ").Replace(name))
}

func (c *run) pct(v float64) string {
	return c.printer.Sprintf("%.1f%%", v)
}

func (c *run) points(v float64) string {
	return c.printer.Sprintf("%.1f pts", v)
}

func (c *run) count(n int) string {
	return c.printer.Sprintf("%d", n)
}
