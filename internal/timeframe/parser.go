package timeframe

import (
	"fmt"
	"time"
)

type TimeFrameParserParams struct {
	FromDate string
	ToDate   string
	Tz       string
}

// ParseTimeFrame builds an inclusive window from YYYY-MM-DD dates in the given
// timezone: From is the start of the from-date, To the last nanosecond of the
// to-date. Empty dates leave that side open; an empty Tz means UTC.
func ParseTimeFrame(params TimeFrameParserParams) (*TimeFrame, error) {
	tz := params.Tz
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("error loading timezone: %w", err)
	}

	from, err := parseDate(params.FromDate, loc, false)
	if err != nil {
		return nil, fmt.Errorf("invalid 'from' date: %w", err)
	}
	to, err := parseDate(params.ToDate, loc, true)
	if err != nil {
		return nil, fmt.Errorf("invalid 'to' date: %w", err)
	}

	return NewTimeFrame(from, to, loc)
}

func parseDate(dateStr string, loc *time.Location, isEndDate bool) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, nil
	}

	date, err := time.ParseInLocation(DateKeyFormat, dateStr, loc)
	if err != nil {
		return time.Time{}, err
	}

	if isEndDate {
		return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 999999999, loc), nil
	}
	return date, nil
}
