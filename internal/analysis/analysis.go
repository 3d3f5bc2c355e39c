// Package analysis runs every engine over one dataset and collects the results.
package analysis

import (
	"errors"
	"fmt"
	"strings"

	"cohortly/internal/analytics"
	"cohortly/internal/events"
	"cohortly/internal/insights"
	"cohortly/internal/timeframe"
)

// ErrMissingRequiredColumns is returned when timestamp, user or event name cannot be mapped.
var ErrMissingRequiredColumns = errors.New("missing required columns")

// Options tune a run. The zero value analyzes everything with detected defaults.
type Options struct {
	// Mapping overrides auto-detected columns field by field.
	Mapping events.ColumnMapping
	// FunnelSteps selects an exact-name funnel; fewer than two steps use the detected template.
	FunnelSteps []string
	StrictOrder bool
	// CohortEvent anchors activity retention; empty auto-selects the most frequent event.
	CohortEvent  string
	ActiveEvents []string
	// Window restricts rows to a time range; nil keeps all rows.
	Window *timeframe.TimeFrame
	// ExcludeEventPattern drops events whose name matches this PCRE pattern.
	ExcludeEventPattern string
}

// Report is the full result of one run.
type Report struct {
	Mapping       events.ColumnMapping        `json:"mapping" yaml:"mapping"`
	DatasetType   events.DatasetType          `json:"dataset_type" yaml:"dataset_type"`
	Window        string                      `json:"window" yaml:"window"`
	Quality       events.DataQualityReport    `json:"quality" yaml:"quality"`
	FunnelSteps   []string                    `json:"funnel_steps" yaml:"funnel_steps"`
	Funnel        []analytics.FunnelStep      `json:"funnel" yaml:"funnel"`
	Retention     []analytics.RetentionCohort `json:"retention" yaml:"retention"`
	PaidRetention []analytics.RetentionCohort `json:"paid_retention,omitempty" yaml:"paid_retention,omitempty"`
	Segments      []analytics.SegmentResult   `json:"segments" yaml:"segments"`
	Subscription  *analytics.SubscriptionKPIs `json:"subscription,omitempty" yaml:"subscription,omitempty"`
	Trial         *analytics.TrialAnalysis    `json:"trial,omitempty" yaml:"trial,omitempty"`
	Churn         *analytics.ChurnAnalysis    `json:"churn,omitempty" yaml:"churn,omitempty"`
	Insights      []insights.Insight          `json:"insights" yaml:"insights"`
}

// ResolveMapping merges explicit overrides with the mapping detected from headers.
func ResolveMapping(headers []string, overrides events.ColumnMapping) (events.ColumnMapping, error) {
	mapping := overrides.Merge(events.AutoDetectColumns(headers))
	if missing := mapping.Missing(); len(missing) > 0 {
		return mapping, fmt.Errorf("%w: %s", ErrMissingRequiredColumns, strings.Join(missing, ", "))
	}
	return mapping, nil
}

// Analyze normalizes the rows and runs the engines. It does not modify its inputs.
func Analyze(headers []string, rows []events.RawRow, opts Options) (*Report, error) {
	mapping, err := ResolveMapping(headers, opts.Mapping)
	if err != nil {
		return nil, err
	}

	rows = windowRows(rows, mapping, opts.Window)
	rows, err = events.FilterRows(rows, mapping, opts.ExcludeEventPattern)
	if err != nil {
		return nil, err
	}

	evts := events.ProcessData(rows, mapping)
	evts, err = events.FilterEvents(evts, opts.ExcludeEventPattern)
	if err != nil {
		return nil, err
	}

	datasetType := events.DetectDatasetType(evts)
	report := &Report{
		Mapping:     mapping,
		DatasetType: datasetType,
		Window:      opts.Window.String(),
		Quality:     events.GenerateDataQualityReport(rows, evts),
	}

	var funnelOpts []analytics.FunnelOption
	if opts.StrictOrder {
		funnelOpts = append(funnelOpts, analytics.WithStrictOrder())
	}

	if len(opts.FunnelSteps) >= 2 {
		segmentValues := analytics.DistinctSegmentValues(evts)
		report.FunnelSteps = append([]string(nil), opts.FunnelSteps...)
		report.Funnel = analytics.CalculateFunnel(evts, opts.FunnelSteps, funnelOpts...)
		report.Segments = analytics.CompareSegments(evts, opts.FunnelSteps, segmentValues.Platforms, segmentValues.Channels, funnelOpts...)
	} else {
		report.Funnel = analytics.CalculateFullDataFunnel(evts, datasetType)
		report.Segments = analytics.CalculateFullDataSegments(evts, datasetType)
		for _, step := range report.Funnel {
			report.FunnelSteps = append(report.FunnelSteps, step.Step)
		}
	}

	if opts.CohortEvent != "" {
		report.Retention = analytics.CalculateActivityRetention(evts, opts.CohortEvent, opts.ActiveEvents)
	} else {
		report.Retention = analytics.CalculateFullDataRetention(evts)
	}

	if hasSubscriptionEvents(evts, datasetType) {
		report.PaidRetention = analytics.CalculatePaidRetention(rows, mapping)
		report.Subscription = analytics.CalculateSubscriptionKPIs(rows, mapping)
		report.Trial = analytics.AnalyzeTrialConversion(rows, mapping)
		report.Churn = analytics.AnalyzeChurn(rows, mapping)
	}

	report.Insights = insights.Generate(insights.Input{
		Events:      evts,
		Rows:        rows,
		Mapping:     mapping,
		DatasetType: datasetType,
	})

	return report, nil
}

// windowRows keeps rows whose timestamp falls in the window. Rows with an
// unparseable timestamp are kept so the quality report still counts them.
func windowRows(rows []events.RawRow, mapping events.ColumnMapping, window *timeframe.TimeFrame) []events.RawRow {
	if window.IsOpen() {
		return rows
	}
	kept := make([]events.RawRow, 0, len(rows))
	for _, row := range rows {
		ts, err := events.ParseTimestamp(row.Get(mapping.Timestamp))
		if err != nil || window.Contains(ts) {
			kept = append(kept, row)
		}
	}
	return kept
}

func hasSubscriptionEvents(evts []events.ProcessedEvent, datasetType events.DatasetType) bool {
	if datasetType == events.DatasetSubscription {
		return true
	}
	for _, e := range evts {
		if events.ContainsName(e.EventName, "subscribe") {
			return true
		}
	}
	return false
}
