package analytics

import (
	"time"

	"cohortly/internal/events"
	"cohortly/internal/pkg/vocabulary"
)

// FunnelStep is one row of an ordered conversion funnel.
type FunnelStep struct {
	Step       string `json:"step" yaml:"step"`
	StepNumber int    `json:"step_number" yaml:"step_number"`
	Users      int    `json:"users" yaml:"users"`
	// ConversionRate is relative to step 1 (0-100).
	ConversionRate float64 `json:"conversion_rate" yaml:"conversion_rate"`
	// StepConversionRate is relative to the previous step (0-100).
	StepConversionRate float64 `json:"step_conversion_rate" yaml:"step_conversion_rate"`
	DropOff            int     `json:"drop_off" yaml:"drop_off"`
	// MedianTime is the lower-median minutes from the previous step, nil when no user has an ordered pair.
	MedianTime *float64 `json:"median_time,omitempty" yaml:"median_time,omitempty"`
}

type funnelConfig struct {
	strict  bool
	medians bool
}

// FunnelOption configures funnel computation.
type FunnelOption func(*funnelConfig)

// WithStrictOrder requires each step to happen at or after the user's
// completion of the previous step. By default membership only requires
// that the user fired the step's event at some point.
func WithStrictOrder() FunnelOption {
	return func(c *funnelConfig) {
		c.strict = true
	}
}

func newFunnelConfig(opts []FunnelOption) funnelConfig {
	cfg := funnelConfig{medians: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// stepMatcher decides whether an event name belongs to a funnel step.
type stepMatcher func(name string) bool

func exactMatcher(step string) stepMatcher {
	return func(name string) bool { return name == step }
}

func fuzzyMatcher(step string) stepMatcher {
	return func(name string) bool { return events.FuzzyMatch(name, step) }
}

// CalculateFunnel computes ordered step-wise conversion by exact event name.
// Fewer than two steps yield an empty funnel.
func CalculateFunnel(evts []events.ProcessedEvent, steps []string, opts ...FunnelOption) []FunnelStep {
	if len(steps) < 2 {
		return []FunnelStep{}
	}
	matchers := make([]stepMatcher, len(steps))
	for i, step := range steps {
		matchers[i] = exactMatcher(step)
	}
	return buildFunnel(events.NewIndex(evts), steps, matchers, newFunnelConfig(opts))
}

// CalculateSegmentFunnel is the funnel used for segment comparison: same
// membership rules as CalculateFunnel, without transition times.
func CalculateSegmentFunnel(evts []events.ProcessedEvent, steps []string, opts ...FunnelOption) []FunnelStep {
	withoutMedians := append(append([]FunnelOption(nil), opts...), func(c *funnelConfig) { c.medians = false })
	return CalculateFunnel(evts, steps, withoutMedians...)
}

// CalculateFullDataFunnel runs the built-in template of the detected dataset type
// with fuzzy name matching. Template steps without any matching event are skipped;
// nil is returned when fewer than two steps remain or the type is undetermined.
func CalculateFullDataFunnel(evts []events.ProcessedEvent, datasetType events.DatasetType) []FunnelStep {
	if datasetType == events.DatasetUnknown {
		return nil
	}
	return templateFunnel(evts, vocabulary.FunnelTemplate(string(datasetType)))
}

// CalculateLifecycleFunnel runs the subscription lifecycle template (subscription steps plus renew).
func CalculateLifecycleFunnel(evts []events.ProcessedEvent) []FunnelStep {
	return templateFunnel(evts, vocabulary.FunnelTemplate(vocabulary.TemplateLifecycle))
}

func templateFunnel(evts []events.ProcessedEvent, template []string) []FunnelStep {
	idx := events.NewIndex(evts)
	steps, matchers := matchedTemplateSteps(idx, template)
	if len(steps) < 2 {
		return nil
	}
	return buildFunnel(idx, steps, matchers, newFunnelConfig(nil))
}

// matchedTemplateSteps keeps the template steps that fuzzy-match at least one event name.
func matchedTemplateSteps(idx *events.Index, template []string) ([]string, []stepMatcher) {
	var steps []string
	var matchers []stepMatcher
	for _, step := range template {
		m := fuzzyMatcher(step)
		if !idx.AnyMatching(m) {
			continue
		}
		steps = append(steps, step)
		matchers = append(matchers, m)
	}
	return steps, matchers
}

func buildFunnel(idx *events.Index, steps []string, matchers []stepMatcher, cfg funnelConfig) []FunnelStep {
	result := make([]FunnelStep, 0, len(steps))

	var previous events.UserSet
	// completedAt tracks each member's completion time of the previous step in strict mode.
	var completedAt map[string]time.Time
	firstCount := 0

	for i, step := range steps {
		fired := idx.UsersMatching(matchers[i])

		var current events.UserSet
		switch {
		case i == 0:
			current = fired
			if cfg.strict {
				completedAt = make(map[string]time.Time, len(current))
				for user := range current {
					if ts, ok := firstAtOrAfter(idx.Events(user), matchers[0], time.Time{}); ok {
						completedAt[user] = ts
					}
				}
			}
		case cfg.strict:
			current = make(events.UserSet)
			next := make(map[string]time.Time)
			for user := range fired.Intersect(previous) {
				ts, ok := firstAtOrAfter(idx.Events(user), matchers[i], completedAt[user])
				if !ok {
					continue
				}
				current.Add(user)
				next[user] = ts
			}
			completedAt = next
		default:
			current = fired.Intersect(previous)
		}

		users := len(current)
		fs := FunnelStep{
			Step:       step,
			StepNumber: i + 1,
			Users:      users,
		}
		if i == 0 {
			firstCount = users
			fs.ConversionRate = 100
			fs.StepConversionRate = 100
		} else {
			prevCount := len(previous)
			fs.ConversionRate = rate(users, firstCount)
			fs.StepConversionRate = rate(users, prevCount)
			fs.DropOff = prevCount - users
			if cfg.medians {
				fs.MedianTime = medianTransitionMinutes(idx, current, matchers[i-1], matchers[i])
			}
		}

		result = append(result, fs)
		previous = current
	}

	return result
}

// firstAtOrAfter returns the first matching event at or after since.
func firstAtOrAfter(evts []events.ProcessedEvent, match stepMatcher, since time.Time) (time.Time, bool) {
	for _, e := range evts {
		if match(e.EventName) && !e.Timestamp.Before(since) {
			return e.Timestamp, true
		}
	}
	return time.Time{}, false
}

// medianTransitionMinutes pairs each user's first occurrence of the previous step
// with the first occurrence of the current step strictly after it.
func medianTransitionMinutes(idx *events.Index, users events.UserSet, prev, curr stepMatcher) *float64 {
	var deltas []float64
	for _, user := range users.Sorted() {
		evts := idx.Events(user)

		var start time.Time
		found := false
		for _, e := range evts {
			if prev(e.EventName) {
				start = e.Timestamp
				found = true
				break
			}
		}
		if !found {
			continue
		}

		for _, e := range evts {
			if curr(e.EventName) && e.Timestamp.After(start) {
				deltas = append(deltas, e.Timestamp.Sub(start).Minutes())
				break
			}
		}
	}
	return lowerMedian(deltas)
}
