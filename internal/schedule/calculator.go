// Package schedule implements nextFiring, the single timezone-aware
// schedule calculator. There is deliberately no UTC-only variant: the
// source this design is modeled on shipped two incompatible calculators,
// and only the timezone-aware one is authoritative here.
package schedule

import (
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
)

// NextFiring computes the next firing instant for spec strictly after now,
// or nil if the schedule has no future occurrence (a lapsed one_time entry).
func NextFiring(spec core.ScheduleSpec, now time.Time) (*time.Time, error) {
	loc, err := time.LoadLocation(spec.Timezone)
	if err != nil {
		loc = time.UTC
	}

	hour, minute, err := parseTime(spec.Time)
	if err != nil {
		return nil, err
	}

	var candidate time.Time
	switch spec.Kind {
	case core.ScheduleDaily:
		candidate = nextDaily(now, loc, hour, minute)
	case core.ScheduleSpecificWeekdays:
		candidate = nextWeekday(now, loc, hour, minute, spec.Config.Weekdays)
	case core.ScheduleFixedInterval:
		candidate = nextFixedInterval(now, loc, hour, minute, spec.Config.IntervalDays)
	case core.ScheduleMonthlyDate:
		candidate = nextMonthlyDate(now, loc, hour, minute, spec.Config.DayOfMonth)
	case core.ScheduleYearly:
		candidate = nextYearly(now, loc, hour, minute, spec.Config.Month, spec.Config.Day)
	case core.ScheduleOneTime:
		if spec.Config.Date == nil || !spec.Config.Date.After(now) {
			return nil, nil
		}
		t := *spec.Config.Date
		return &t, nil
	default:
		return nil, nil
	}

	return &candidate, nil
}

func parseTime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

// atLocal resolves the absolute instant for the given local wall-clock date
// and time in loc, honoring the §4.2 DST contract: a skipped local time
// (gap) resolves to the first valid instant after the gap, and a repeated
// local time (fold) resolves to its first occurrence. time.Date's own
// normalization does not guarantee this (its documented behavior for a
// nonexistent time is "correct in one of the two zones, but not which"),
// so this finds the minimal instant whose local wall-clock is already at
// or past the requested (hour, minute) by binary search over a window
// around time.Date's rough estimate — monotonic except across a fold,
// where it still lands on the earliest matching instant.
func atLocal(loc *time.Location, year int, month time.Month, day, hour, minute int) time.Time {
	target := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	wallTuple := func(t time.Time) time.Time {
		lt := t.In(loc)
		return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), 0, 0, time.UTC)
	}

	naive := time.Date(year, month, day, hour, minute, 0, 0, loc)
	lo := naive.Add(-3 * time.Hour)
	hi := naive.Add(3 * time.Hour)
	for wallTuple(hi).Before(target) {
		hi = hi.Add(3 * time.Hour)
	}
	for !wallTuple(lo).Before(target) {
		lo = lo.Add(-3 * time.Hour)
	}

	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2)
		if wallTuple(mid).Before(target) {
			lo = mid
		} else {
			hi = mid
		}
	}
	// hi is now within one second of the crossing; zone transitions always
	// land on a whole second (in practice a whole minute), so truncating
	// removes the remaining sub-second overshoot and lands exactly on the
	// first valid instant instead of up to a second past it.
	return hi.Truncate(time.Second)
}

// strictlyAfter rejects a candidate equal to now (the tie-break rule).
func strictlyAfter(candidate, now time.Time) bool {
	return candidate.After(now)
}

func nextDaily(now time.Time, loc *time.Location, hour, minute int) time.Time {
	local := now.In(loc)
	candidate := atLocal(loc, local.Year(), local.Month(), local.Day(), hour, minute)
	if !strictlyAfter(candidate, now) {
		candidate = atLocal(loc, local.Year(), local.Month(), local.Day()+1, hour, minute)
	}
	return candidate
}

func nextWeekday(now time.Time, loc *time.Location, hour, minute int, weekdays []time.Weekday) time.Time {
	if len(weekdays) == 0 {
		return nextDaily(now, loc, hour, minute)
	}
	wanted := make(map[time.Weekday]bool, len(weekdays))
	for _, w := range weekdays {
		wanted[w] = true
	}

	local := now.In(loc)
	for offset := 0; offset < 8; offset++ {
		day := local.AddDate(0, 0, offset)
		if !wanted[day.Weekday()] {
			continue
		}
		candidate := atLocal(loc, day.Year(), day.Month(), day.Day(), hour, minute)
		if strictlyAfter(candidate, now) {
			return candidate
		}
	}
	// Unreachable for a non-empty weekday set within 8 days, but keep a
	// deterministic fallback.
	return nextDaily(now, loc, hour, minute)
}

func nextFixedInterval(now time.Time, loc *time.Location, hour, minute, intervalDays int) time.Time {
	if intervalDays < 1 {
		intervalDays = 1
	}
	local := now.In(loc)
	return atLocal(loc, local.Year(), local.Month(), local.Day()+intervalDays, hour, minute)
}

func nextMonthlyDate(now time.Time, loc *time.Location, hour, minute, dayOfMonth int) time.Time {
	local := now.In(loc)
	candidate := monthlyCandidate(loc, local.Year(), local.Month(), dayOfMonth, hour, minute)
	if !strictlyAfter(candidate, now) {
		year, month := local.Year(), local.Month()+1
		if month > 12 {
			month = 1
			year++
		}
		candidate = monthlyCandidate(loc, year, month, dayOfMonth, hour, minute)
	}
	return candidate
}

// monthlyCandidate clamps dayOfMonth to the target month's last day when
// the month is too short, per §4.2's monthly_date semantics.
func monthlyCandidate(loc *time.Location, year int, month time.Month, dayOfMonth, hour, minute int) time.Time {
	lastDay := lastDayOfMonth(year, month)
	day := dayOfMonth
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return atLocal(loc, year, month, day, hour, minute)
}

func lastDayOfMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfThis := firstOfNext.AddDate(0, 0, -1)
	return lastOfThis.Day()
}

func nextYearly(now time.Time, loc *time.Location, hour, minute int, month time.Month, day int) time.Time {
	local := now.In(loc)
	year := local.Year()
	candidate := atLocal(loc, year, month, day, hour, minute)
	if !strictlyAfter(candidate, now) {
		candidate = atLocal(loc, year+1, month, day, hour, minute)
	}
	return candidate
}
