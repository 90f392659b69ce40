package mindshare

import "time"

// Period selects the trailing window a leaderboard covers.
type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

// ParsePeriod maps a query value to a Period. Anything other than "weekly" is daily.
func ParsePeriod(s string) Period {
	if Period(s) == PeriodWeekly {
		return PeriodWeekly
	}
	return PeriodDaily
}

// Since returns the inclusive cutoff for posts in the window ending at now.
func (p Period) Since(now time.Time) time.Time {
	if p == PeriodWeekly {
		return now.AddDate(0, 0, -7)
	}
	return now.AddDate(0, 0, -1)
}

// Periods lists every supported period.
func Periods() []Period {
	return []Period{PeriodDaily, PeriodWeekly}
}
