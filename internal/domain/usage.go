package domain

import "time"

// Period marker layouts.
const (
	MonthLayout = "2006-01"
	DayLayout   = "2006-01-02"
)

// UsageCounters is the per-identity upload tally for the current periods.
type UsageCounters struct {
	MonthlyCount     int    `json:"monthly_count"`
	DailyCount       int    `json:"daily_count"`
	LastMonthlyReset string `json:"last_monthly_reset"` // YYYY-MM
	LastDailyReset   string `json:"last_daily_reset"`   // YYYY-MM-DD
}

// Rollover zeroes any counter whose marker no longer matches the calendar
// period containing now. It reports whether anything changed.
func (u *UsageCounters) Rollover(now time.Time) bool {
	changed := false

	month := now.Format(MonthLayout)
	if u.LastMonthlyReset != month {
		u.MonthlyCount = 0
		u.LastMonthlyReset = month
		changed = true
	}

	day := now.Format(DayLayout)
	if u.LastDailyReset != day {
		u.DailyCount = 0
		u.LastDailyReset = day
		changed = true
	}

	return changed
}

// UsageSnapshot pairs counters with the limits of the caller's tier.
type UsageSnapshot struct {
	Tier             PlanTier      `json:"tier"`
	Counters         UsageCounters `json:"counters"`
	Limits           PlanLimits    `json:"limits"`
	MonthlyRemaining int           `json:"monthly_remaining"`
	DailyRemaining   int           `json:"daily_remaining"`
}
