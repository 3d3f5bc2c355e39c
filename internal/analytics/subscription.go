package analytics

import (
	"strconv"
	"strings"

	"cohortly/internal/events"
	"cohortly/internal/pkg/vocabulary"
)

// SubscriptionKPIs aggregates subscription lifecycle counts, rates and revenue.
// Pointer fields are nil when their source column is absent or their denominator is zero.
type SubscriptionKPIs struct {
	TotalUsers      int `json:"total_users" yaml:"total_users"`
	SignupUsers     int `json:"signup_users" yaml:"signup_users"`
	OnboardedUsers  int `json:"onboarded_users" yaml:"onboarded_users"`
	TrialUsers      int `json:"trial_users" yaml:"trial_users"`
	SubscribedUsers int `json:"subscribed_users" yaml:"subscribed_users"`
	PaidUsers       int `json:"paid_users" yaml:"paid_users"`
	CancelledUsers  int `json:"cancelled_users" yaml:"cancelled_users"`

	SubscribeEvents     int `json:"subscribe_events" yaml:"subscribe_events"`
	RenewEvents         int `json:"renew_events" yaml:"renew_events"`
	CancelEvents        int `json:"cancel_events" yaml:"cancel_events"`
	PaymentFailedEvents int `json:"payment_failed_events" yaml:"payment_failed_events"`

	GrossRevenue *float64 `json:"gross_revenue" yaml:"gross_revenue"`
	NetRevenue   *float64 `json:"net_revenue" yaml:"net_revenue"`
	ARPPU        *float64 `json:"arppu" yaml:"arppu"`

	// PlanMix is the share of subscribe and renew events per plan bucket.
	PlanMix map[string]float64 `json:"plan_mix" yaml:"plan_mix"`

	CancelRatePaid     float64  `json:"cancel_rate_paid" yaml:"cancel_rate_paid"`
	RenewSuccessRate   *float64 `json:"renew_success_rate" yaml:"renew_success_rate"`
	PaymentFailureRate *float64 `json:"payment_failure_rate" yaml:"payment_failure_rate"`
}

// CalculateSubscriptionKPIs counts users and events by canonical subscription
// event fragments. Nil when the event name is unmapped or there are no rows.
func CalculateSubscriptionKPIs(rows []events.RawRow, mapping events.ColumnMapping) *SubscriptionKPIs {
	if mapping.EventName == "" || len(rows) == 0 {
		return nil
	}

	var (
		all        = make(events.UserSet)
		signup     = make(events.UserSet)
		onboarded  = make(events.UserSet)
		trial      = make(events.UserSet)
		subscribed = make(events.UserSet)
		renewed    = make(events.UserSet)
		cancelled  = make(events.UserSet)
	)
	kpis := &SubscriptionKPIs{}

	hasRevenue := events.HasColumn(rows, events.ColumnRevenue)
	hasPlan := events.HasColumn(rows, events.ColumnPlan)
	var gross, net float64
	planCounts := make(map[string]int)
	planEvents := 0

	for _, row := range rows {
		name := row.Get(mapping.EventName)
		if name == "" {
			continue
		}
		user := ""
		if mapping.UserID != "" {
			user = row.Get(mapping.UserID)
		}
		track := func(set events.UserSet) {
			if user != "" {
				set.Add(user)
			}
		}
		track(all)

		// A compound name such as renewal_payment_failed counts under every fragment it contains.
		if isSignup(name) {
			track(signup)
		}
		if events.ContainsName(name, nameOnboarding) {
			track(onboarded)
		}
		if events.ContainsName(name, nameTrial) {
			track(trial)
		}
		if events.ContainsName(name, nameSubscribe) {
			track(subscribed)
			kpis.SubscribeEvents++
		}
		if events.ContainsName(name, nameRenew) {
			track(renewed)
			kpis.RenewEvents++
		}
		if events.ContainsName(name, nameCancel) {
			track(cancelled)
			kpis.CancelEvents++
		}
		if events.ContainsName(name, namePaymentFailed) {
			kpis.PaymentFailedEvents++
		}

		if hasRevenue {
			if amount, ok := parseAmount(row.Get(events.ColumnRevenue)); ok {
				net += amount
				if amount > 0 {
					gross += amount
				}
			}
		}
		if hasPlan && isPaid(name) {
			planCounts[vocabulary.PlanBucket(row.Get(events.ColumnPlan))]++
			planEvents++
		}
	}

	paid := subscribed.Union(renewed)
	kpis.TotalUsers = len(all)
	kpis.SignupUsers = len(signup)
	kpis.OnboardedUsers = len(onboarded)
	kpis.TrialUsers = len(trial)
	kpis.SubscribedUsers = len(subscribed)
	kpis.PaidUsers = len(paid)
	kpis.CancelledUsers = len(cancelled)

	if hasRevenue {
		kpis.GrossRevenue = float64Ptr(gross)
		kpis.NetRevenue = float64Ptr(net)
		arppu := 0.0
		if len(paid) > 0 {
			arppu = gross / float64(len(paid))
		}
		kpis.ARPPU = float64Ptr(arppu)
	}

	if planEvents > 0 {
		kpis.PlanMix = map[string]float64{
			vocabulary.PlanMonthly: rate(planCounts[vocabulary.PlanMonthly], planEvents),
			vocabulary.PlanYearly:  rate(planCounts[vocabulary.PlanYearly], planEvents),
			vocabulary.PlanOther:   rate(planCounts[vocabulary.PlanOther], planEvents),
		}
	}

	kpis.CancelRatePaid = rate(len(cancelled.Intersect(paid)), len(paid))
	kpis.RenewSuccessRate = ratePtr(kpis.RenewEvents, kpis.RenewEvents+kpis.PaymentFailedEvents)
	kpis.PaymentFailureRate = ratePtr(kpis.PaymentFailedEvents, kpis.SubscribeEvents+kpis.RenewEvents+kpis.PaymentFailedEvents)

	return kpis
}

// parseAmount parses a revenue cell, tolerating a leading currency symbol and thousands separators.
func parseAmount(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimLeft(raw, "$€£")
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
