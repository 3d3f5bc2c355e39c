package analytics

import (
	"sort"

	"cohortly/internal/events"
)

// TopCancelReasons is the number of reasons reported in ChurnAnalysis.
const TopCancelReasons = 5

// CancelReason is one row of the cancellation reason distribution.
type CancelReason struct {
	Reason string  `json:"reason" yaml:"reason"`
	Users  int     `json:"users" yaml:"users"`
	Share  float64 `json:"share" yaml:"share"`
}

// ChurnBreakdown is the churn rate of a group of paid users.
type ChurnBreakdown struct {
	Rate float64 `json:"rate" yaml:"rate"`
	N    int     `json:"n" yaml:"n"`
}

// ChurnAnalysis describes paid users who later cancelled.
type ChurnAnalysis struct {
	PaidUsers          int                       `json:"paid_users" yaml:"paid_users"`
	ChurnedUsers       int                       `json:"churned_users" yaml:"churned_users"`
	ChurnRate          float64                   `json:"churn_rate" yaml:"churn_rate"`
	CancelReasonTop    []CancelReason            `json:"cancel_reason_top" yaml:"cancel_reason_top"`
	MedianDaysToCancel *float64                  `json:"median_days_to_cancel" yaml:"median_days_to_cancel"`
	P90DaysToCancel    *float64                  `json:"p90_days_to_cancel" yaml:"p90_days_to_cancel"`
	ByPlan             map[string]ChurnBreakdown `json:"by_plan" yaml:"by_plan"`
	ByChannel          map[string]ChurnBreakdown `json:"by_channel" yaml:"by_channel"`
}

// AnalyzeChurn treats users with a subscribe or renew event as paid and those
// with a cancel at or after their first paid event as churned. Plan comes from
// the first paid event, channel from the user's first event carrying one.
// Nil when required columns are unmapped or no row is usable.
func AnalyzeChurn(rows []events.RawRow, mapping events.ColumnMapping) *ChurnAnalysis {
	byUser, users := groupRowsByUser(rows, mapping)
	if len(users) == 0 {
		return nil
	}

	type groupAcc struct{ paid, churned int }
	byPlan := make(map[string]*groupAcc)
	byChannel := make(map[string]*groupAcc)
	reasons := make(map[string]int)
	var days []float64
	paidUsers, churnedUsers := 0, 0

	for _, user := range users {
		evts := byUser[user]

		paidIdx := -1
		for i, e := range evts {
			if isPaid(e.EventName) {
				paidIdx = i
				break
			}
		}
		if paidIdx < 0 {
			continue
		}
		firstPaid := evts[paidIdx]
		paidUsers++

		plan := firstPaid.attrOrUnknown(events.ColumnPlan)
		channel := Unknown
		for _, e := range evts {
			if e.Channel != "" {
				channel = e.Channel
				break
			}
		}

		churned := false
		for _, e := range evts {
			if !events.ContainsName(e.EventName, nameCancel) || e.Timestamp.Before(firstPaid.Timestamp) {
				continue
			}
			churned = true
			reasons[e.attrOrUnknown(events.ColumnCancelReason)]++
			days = append(days, e.Timestamp.Sub(firstPaid.Timestamp).Hours()/24)
			break
		}

		for _, group := range []struct {
			key    string
			groups map[string]*groupAcc
		}{{plan, byPlan}, {channel, byChannel}} {
			g, ok := group.groups[group.key]
			if !ok {
				g = &groupAcc{}
				group.groups[group.key] = g
			}
			g.paid++
			if churned {
				g.churned++
			}
		}
		if churned {
			churnedUsers++
		}
	}

	toBreakdown := func(groups map[string]*groupAcc) map[string]ChurnBreakdown {
		out := make(map[string]ChurnBreakdown, len(groups))
		for key, g := range groups {
			out[key] = ChurnBreakdown{Rate: rate(g.churned, g.paid), N: g.paid}
		}
		return out
	}

	return &ChurnAnalysis{
		PaidUsers:          paidUsers,
		ChurnedUsers:       churnedUsers,
		ChurnRate:          rate(churnedUsers, paidUsers),
		CancelReasonTop:    topReasons(reasons, churnedUsers),
		MedianDaysToCancel: lowerMedian(days),
		P90DaysToCancel:    percentile(days, 0.9),
		ByPlan:             toBreakdown(byPlan),
		ByChannel:          toBreakdown(byChannel),
	}
}

func topReasons(counts map[string]int, churned int) []CancelReason {
	out := make([]CancelReason, 0, len(counts))
	for reason, n := range counts {
		out = append(out, CancelReason{Reason: reason, Users: n, Share: rate(n, churned)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Users != out[j].Users {
			return out[i].Users > out[j].Users
		}
		return out[i].Reason < out[j].Reason
	})
	if len(out) > TopCancelReasons {
		out = out[:TopCancelReasons]
	}
	return out
}
