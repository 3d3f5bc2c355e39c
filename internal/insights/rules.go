package insights

import (
	"cohortly/internal/analytics"
)

func checkFunnelDropOff(c *run) (Insight, bool) {
	funnel := c.fullFunnel()
	worst := -1
	worstDrop := 0.0
	for i := 1; i < len(funnel); i++ {
		if funnel[i-1].Users == 0 {
			continue
		}
		if drop := 100 - funnel[i].StepConversionRate; drop > worstDrop {
			worst, worstDrop = i, drop
		}
	}
	if worst < 0 {
		return Insight{}, false
	}

	from, to := c.stepLabel(funnel[worst-1].Step), c.stepLabel(funnel[worst].Step)
	insight := Insight{
		Key:   "funnel_drop_off",
		Type:  TypeWarning,
		Icon:  "trending-down",
		Title: c.printer.Sprintf("Biggest drop-off: %s → %s", from, to),
		Body: c.printer.Sprintf("%s of users who reached %s did not continue to %s (%s users lost).",
			c.pct(worstDrop), from, to, c.count(funnel[worst].DropOff)),
		Metric: c.pct(worstDrop) + " lost",
		Recommendations: []string{
			c.printer.Sprintf("Review the %s experience for friction or unclear next steps", to),
			"Instrument intermediate events to locate where users abandon",
		},
	}
	if worstDrop >= DangerDropOffPct {
		insight.Type = TypeDanger
	}
	return insight, true
}

// segmentGap returns the best and worst segments of a type when there are at least two.
func segmentGap(results []analytics.SegmentResult) (best, worst analytics.SegmentResult, ok bool) {
	if len(results) < 2 {
		return best, worst, false
	}
	best, worst = results[0], results[0]
	for _, r := range results[1:] {
		if r.Conversion > best.Conversion {
			best = r
		}
		if r.Conversion < worst.Conversion {
			worst = r
		}
	}
	return best, worst, true
}

func checkPlatformGap(c *run) (Insight, bool) {
	best, worst, ok := segmentGap(analytics.SegmentsOfType(c.fullSegments(), analytics.SegmentPlatform))
	if !ok {
		return Insight{}, false
	}
	gap := best.Conversion - worst.Conversion
	if gap <= PlatformGapPoints {
		return Insight{}, false
	}
	return Insight{
		Key:   "platform_gap",
		Type:  TypeWarning,
		Icon:  "smartphone",
		Title: c.printer.Sprintf("%s converts far better than %s", best.Name, worst.Name),
		Body: c.printer.Sprintf("%s users convert at %s versus %s on %s.",
			best.Name, c.pct(best.Conversion), c.pct(worst.Conversion), worst.Name),
		Metric: c.points(gap) + " gap",
		Recommendations: []string{
			c.printer.Sprintf("QA the %s flow end to end", worst.Name),
			"Compare load times and layout between platforms",
		},
	}, true
}

func checkChannelGap(c *run) (Insight, bool) {
	best, worst, ok := segmentGap(analytics.SegmentsOfType(c.fullSegments(), analytics.SegmentChannel))
	if !ok {
		return Insight{}, false
	}
	gap := best.Conversion - worst.Conversion
	if gap <= ChannelGapPoints {
		return Insight{}, false
	}
	return Insight{
		Key:   "channel_gap",
		Type:  TypeInfo,
		Icon:  "megaphone",
		Title: c.printer.Sprintf("%s outperforms %s", best.Name, worst.Name),
		Body: c.printer.Sprintf("Users from %s convert at %s while %s converts at %s.",
			best.Name, c.pct(best.Conversion), worst.Name, c.pct(worst.Conversion)),
		Metric: c.points(gap) + " gap",
		Recommendations: []string{
			c.printer.Sprintf("Shift acquisition budget toward %s", best.Name),
			c.printer.Sprintf("Check targeting and landing pages for %s", worst.Name),
		},
	}, true
}

func checkLowD1Retention(c *run) (Insight, bool) {
	avg := analytics.AverageRetention(c.fullRetention())
	d1, ok := avg[analytics.DayKey(1)]
	if !ok || d1 >= LowD1RetentionPct {
		return Insight{}, false
	}
	return Insight{
		Key:    "low_d1_retention",
		Type:   TypeWarning,
		Icon:   "calendar",
		Title:  "Few users come back the next day",
		Body:   c.printer.Sprintf("On average only %s of a cohort is active on day 1.", c.pct(d1)),
		Metric: c.pct(d1) + " D1",
		Recommendations: []string{
			"Add a reason to return within 24 hours, such as a reminder or saved progress",
			"Review onboarding for a clear first success moment",
		},
	}, true
}

func checkRetentionDrop(c *run) (Insight, bool) {
	avg := analytics.AverageRetention(c.fullRetention())
	if avg == nil {
		return Insight{}, false
	}
	worstDay, worstDrop := 0, 0.0
	for n := 1; n <= analytics.ActivityRetentionDays; n++ {
		prev, okPrev := avg[analytics.DayKey(n-1)]
		curr, okCurr := avg[analytics.DayKey(n)]
		if !okPrev || !okCurr {
			continue
		}
		if drop := prev - curr; drop > worstDrop {
			worstDay, worstDrop = n, drop
		}
	}
	if worstDrop <= RetentionDropPoints {
		return Insight{}, false
	}
	return Insight{
		Key:   "retention_drop",
		Type:  TypeInfo,
		Icon:  "activity",
		Title: c.printer.Sprintf("Steepest retention drop on day %d", worstDay),
		Body: c.printer.Sprintf("Average retention falls by %s between D%d and D%d.",
			c.points(worstDrop), worstDay-1, worstDay),
		Metric: c.points(worstDrop),
		Recommendations: []string{
			c.printer.Sprintf("Schedule a re-engagement touchpoint before day %d", worstDay),
		},
	}, true
}

func checkBestSegment(c *run) (Insight, bool) {
	results := c.fullSegments()
	if len(results) == 0 {
		return Insight{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Conversion > best.Conversion {
			best = r
		}
	}
	if best.Conversion <= BestSegmentConversionPct {
		return Insight{}, false
	}
	return Insight{
		Key:   "best_segment",
		Type:  TypeSuccess,
		Icon:  "trophy",
		Title: c.printer.Sprintf("Top segment: %s %s", best.Type, best.Name),
		Body: c.printer.Sprintf("%s users on %s %s convert at %s.",
			c.count(best.Population), best.Type, best.Name, c.pct(best.Conversion)),
		Metric: c.pct(best.Conversion),
		Recommendations: []string{
			c.printer.Sprintf("Study what makes %s users succeed and replicate it elsewhere", best.Name),
		},
	}, true
}

func checkTrialConversion(c *run) (Insight, bool) {
	if !c.subscription() {
		return Insight{}, false
	}
	trial := c.trialAnalysis()
	if trial == nil || trial.TrialUsers < MinTrialUsers || trial.ConversionRate >= LowTrialConversionPct {
		return Insight{}, false
	}
	return Insight{
		Key:   "trial_conversion",
		Type:  TypeDanger,
		Icon:  "user-x",
		Title: "Trials rarely convert to paid",
		Body: c.printer.Sprintf("Only %s of %s trial users subscribed.",
			c.pct(trial.ConversionRate), c.count(trial.TrialUsers)),
		Metric: c.pct(trial.ConversionRate),
		Recommendations: []string{
			"Surface the paid value during the trial, not only at the paywall",
			"Send reminders before the trial ends",
		},
	}, true
}

func checkSlowTrialConversion(c *run) (Insight, bool) {
	if !c.subscription() {
		return Insight{}, false
	}
	trial := c.trialAnalysis()
	if trial == nil || trial.MedianHoursToConvert == nil {
		return Insight{}, false
	}
	days := *trial.MedianHoursToConvert / 24
	if days <= SlowTrialConversionDays {
		return Insight{}, false
	}
	return Insight{
		Key:    "slow_trial_conversion",
		Type:   TypeWarning,
		Icon:   "clock",
		Title:  "Trial users take long to subscribe",
		Body:   c.printer.Sprintf("The median trial user subscribes after %.1f days.", days),
		Metric: c.printer.Sprintf("%.1f days", days),
		Recommendations: []string{
			"Test a shorter trial or an earlier upgrade prompt",
		},
	}, true
}

func checkPaymentFailures(c *run) (Insight, bool) {
	if !c.subscription() {
		return Insight{}, false
	}
	kpis := c.subscriptionKPIs()
	if kpis == nil || kpis.PaymentFailureRate == nil || *kpis.PaymentFailureRate < PaymentFailureRatePct {
		return Insight{}, false
	}
	return Insight{
		Key:   "payment_failures",
		Type:  TypeDanger,
		Icon:  "credit-card",
		Title: "Many payment attempts fail",
		Body: c.printer.Sprintf("%s of payment attempts failed (%s failures).",
			c.pct(*kpis.PaymentFailureRate), c.count(kpis.PaymentFailedEvents)),
		Metric: c.pct(*kpis.PaymentFailureRate),
		Recommendations: []string{
			"Enable automatic retries and card updater services",
			"Notify users before their card expires",
		},
	}, true
}

func checkPaidChurn(c *run) (Insight, bool) {
	if !c.subscription() {
		return Insight{}, false
	}
	churn := c.churnAnalysis()
	if churn == nil || churn.ChurnRate <= PaidChurnRatePct {
		return Insight{}, false
	}
	return Insight{
		Key:   "paid_churn",
		Type:  TypeDanger,
		Icon:  "user-minus",
		Title: "High churn among paying users",
		Body: c.printer.Sprintf("%s of %s paying users cancelled.",
			c.count(churn.ChurnedUsers), c.count(churn.PaidUsers)),
		Metric: c.pct(churn.ChurnRate),
		Recommendations: []string{
			"Add a cancellation flow that offers a pause or downgrade",
			"Interview recently churned customers",
		},
	}, true
}

func checkDominantCancelReason(c *run) (Insight, bool) {
	if !c.subscription() {
		return Insight{}, false
	}
	churn := c.churnAnalysis()
	if churn == nil || len(churn.CancelReasonTop) == 0 {
		return Insight{}, false
	}
	top := churn.CancelReasonTop[0]
	if top.Share <= DominantCancelReasonShare {
		return Insight{}, false
	}
	return Insight{
		Key:   "cancel_reason",
		Type:  TypeWarning,
		Icon:  "message-circle",
		Title: c.printer.Sprintf("Top cancellation reason: %s", c.stepLabel(top.Reason)),
		Body: c.printer.Sprintf("%s of churned users cited %s.",
			c.pct(top.Share), c.stepLabel(top.Reason)),
		Metric: c.pct(top.Share),
		Recommendations: []string{
			c.printer.Sprintf("Address %s directly in product or pricing", c.stepLabel(top.Reason)),
		},
	}, true
}

func checkPaidRetention(c *run) (Insight, bool) {
	if !c.subscription() {
		return Insight{}, false
	}
	avg := analytics.AverageRetention(c.paidRetention())
	if avg == nil {
		return Insight{}, false
	}

	if d7 := avg[analytics.DayKey(7)]; d7 < PaidD7RetentionPct {
		return Insight{
			Key:    "paid_retention",
			Type:   TypeWarning,
			Icon:   "repeat",
			Title:  "Subscribers cancel within the first week",
			Body:   c.printer.Sprintf("Only %s of subscribers are still active 7 days after subscribing.", c.pct(d7)),
			Metric: c.pct(d7) + " D7",
			Recommendations: []string{
				"Make sure new subscribers hit the paid value in their first days",
			},
		}, true
	}
	if d30 := avg[analytics.DayKey(30)]; d30 < PaidD30RetentionPct {
		return Insight{
			Key:    "paid_retention",
			Type:   TypeWarning,
			Icon:   "repeat",
			Title:  "Subscribers cancel within the first month",
			Body:   c.printer.Sprintf("Only %s of subscribers are still active 30 days after subscribing.", c.pct(d30)),
			Metric: c.pct(d30) + " D30",
			Recommendations: []string{
				"Review the first renewal experience and reminder emails",
			},
		}, true
	}
	return Insight{}, false
}
