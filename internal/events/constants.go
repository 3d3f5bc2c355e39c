package events

// Semantic field names of the column mapping
const (
	FieldTimestamp = "timestamp"
	FieldUserID    = "userid"
	FieldEventName = "eventname"
	FieldSessionID = "sessionid"
	FieldPlatform  = "platform"
	FieldChannel   = "channel"
)

// Optional columns read directly by name
const (
	ColumnRevenue      = "revenue"
	ColumnPlan         = "plan"
	ColumnTrialDays    = "trial_days"
	ColumnCancelReason = "cancel_reason"
)

// TopEventsLimit is the size of the event frequency table in the quality report.
const TopEventsLimit = 10
