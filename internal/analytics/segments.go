package analytics

import (
	"sort"

	"cohortly/internal/events"
	"cohortly/internal/pkg/vocabulary"
)

// SegmentType is the attribute a segment is cut on.
type SegmentType string

const (
	SegmentPlatform SegmentType = "platform"
	SegmentChannel  SegmentType = "channel"
)

// SegmentResult compares one segment's final conversion with the whole population.
type SegmentResult struct {
	Name       string       `json:"name" yaml:"name"`
	Type       SegmentType  `json:"type" yaml:"type"`
	Population int          `json:"population" yaml:"population"`
	Conversion float64      `json:"conversion" yaml:"conversion"`
	Uplift     float64      `json:"uplift" yaml:"uplift"`
	PValue     float64      `json:"p_value" yaml:"p_value"`
	StepByStep []FunnelStep `json:"step_by_step,omitempty" yaml:"step_by_step,omitempty"`
}

// SegmentValues lists the distinct non-empty values per segment attribute.
type SegmentValues struct {
	Platforms []string `json:"platforms" yaml:"platforms"`
	Channels  []string `json:"channels" yaml:"channels"`
}

// DistinctSegmentValues returns the sorted platform and channel values present in events.
func DistinctSegmentValues(evts []events.ProcessedEvent) SegmentValues {
	platforms := make(map[string]struct{})
	channels := make(map[string]struct{})
	for _, e := range evts {
		if e.Platform != "" {
			platforms[e.Platform] = struct{}{}
		}
		if e.Channel != "" {
			channels[e.Channel] = struct{}{}
		}
	}
	return SegmentValues{Platforms: sortedSet(platforms), Channels: sortedSet(channels)}
}

// CompareSegments recomputes the funnel for every platform and channel value and
// tests each segment's last-step conversion against the whole-population baseline.
// Segments with no first-step users are skipped.
func CompareSegments(evts []events.ProcessedEvent, steps []string, platforms, channels []string, opts ...FunnelOption) []SegmentResult {
	results := []SegmentResult{}

	baseline := CalculateSegmentFunnel(evts, steps, opts...)
	if len(baseline) < 2 {
		return results
	}
	baseFirst := baseline[0].Users
	baseLast := baseline[len(baseline)-1]

	compare := func(segType SegmentType, value string) {
		segment := filterSegment(evts, segType, value)
		funnel := CalculateSegmentFunnel(segment, steps, opts...)
		if len(funnel) < 2 || funnel[0].Users == 0 {
			return
		}
		last := funnel[len(funnel)-1]
		results = append(results, SegmentResult{
			Name:       value,
			Type:       segType,
			Population: countUsers(segment),
			Conversion: last.ConversionRate,
			Uplift:     last.ConversionRate - baseLast.ConversionRate,
			PValue:     TwoProportionPValue(last.Users, funnel[0].Users, baseLast.Users, baseFirst),
			StepByStep: funnel,
		})
	}

	for _, value := range platforms {
		compare(SegmentPlatform, value)
	}
	for _, value := range channels {
		compare(SegmentChannel, value)
	}
	return results
}

// CalculateFullDataSegments compares segments on the detected template using fuzzy
// matching and the share of first-step users who also reached the last matched step.
// Nil when fewer than two template steps match or no segment yields users.
func CalculateFullDataSegments(evts []events.ProcessedEvent, datasetType events.DatasetType) []SegmentResult {
	if datasetType == events.DatasetUnknown {
		return nil
	}
	template := vocabulary.FunnelTemplate(string(datasetType))
	_, matchers := matchedTemplateSteps(events.NewIndex(evts), template)
	if len(matchers) < 2 {
		return nil
	}
	first, last := matchers[0], matchers[len(matchers)-1]

	ratio := func(subset []events.ProcessedEvent) (int, int) {
		idx := events.NewIndex(subset)
		starters := idx.UsersMatching(first)
		finishers := idx.UsersMatching(last).Intersect(starters)
		return len(finishers), len(starters)
	}

	baseX, baseN := ratio(evts)
	baseConversion := rate(baseX, baseN)
	values := DistinctSegmentValues(evts)

	var results []SegmentResult
	compare := func(segType SegmentType, value string) {
		segment := filterSegment(evts, segType, value)
		x, n := ratio(segment)
		if n == 0 {
			return
		}
		conversion := rate(x, n)
		results = append(results, SegmentResult{
			Name:       value,
			Type:       segType,
			Population: countUsers(segment),
			Conversion: conversion,
			Uplift:     conversion - baseConversion,
			PValue:     TwoProportionPValue(x, n, baseX, baseN),
		})
	}

	for _, value := range values.Platforms {
		compare(SegmentPlatform, value)
	}
	for _, value := range values.Channels {
		compare(SegmentChannel, value)
	}
	return results
}

// SegmentsOfType returns the results cut on segType, preserving order.
func SegmentsOfType(results []SegmentResult, segType SegmentType) []SegmentResult {
	var out []SegmentResult
	for _, r := range results {
		if r.Type == segType {
			out = append(out, r)
		}
	}
	return out
}

func filterSegment(evts []events.ProcessedEvent, segType SegmentType, value string) []events.ProcessedEvent {
	out := make([]events.ProcessedEvent, 0)
	for _, e := range evts {
		attr := e.Platform
		if segType == SegmentChannel {
			attr = e.Channel
		}
		if attr == value {
			out = append(out, e)
		}
	}
	return out
}

func countUsers(evts []events.ProcessedEvent) int {
	users := make(map[string]struct{})
	for _, e := range evts {
		users[e.UserID] = struct{}{}
	}
	return len(users)
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
