// Package workdays provides working-day calendar arithmetic for SLA due
// dates. Working days are Monday through Friday; there is no holiday
// calendar.
package workdays

import (
	"math"
	"time"
)

// HoursPerDay is the number of working hours counted as one working day
// when hour-denominated estimates are folded into day-based SLA math.
const HoursPerDay = 8

// Unit is the denomination of an estimated duration.
type Unit string

const (
	UnitHours Unit = "hours"
	UnitDays  Unit = "days"
)

// DueDate returns the date reached by walking the given number of working
// days forward from start. The count begins on the day after start, so a
// one-day SLA starting on a Friday lands on the following Monday. A zero or
// negative amount returns start unchanged.
func DueDate(start time.Time, workingDays int) time.Time {
	if workingDays <= 0 {
		return start
	}

	current := start
	counted := 0
	for counted < workingDays {
		current = current.AddDate(0, 0, 1)
		if isWorkingDay(current) {
			counted++
		}
	}
	return current
}

// DayEquivalent converts an estimated duration to whole working days.
// Hour values round up, so a 1-hour step still occupies a day of SLA budget.
func DayEquivalent(value int, unit Unit) int {
	if unit != UnitHours {
		return value
	}
	return (value + HoursPerDay - 1) / HoursPerDay
}

// DaysUntilDue returns the calendar-day distance from now to due, both
// normalized to midnight. The result is 0 on the due date itself and
// negative once the due date has passed; time of day never affects it.
// Midnight-to-midnight spans are not always 24h where DST applies, so the
// quotient is rounded rather than truncated.
func DaysUntilDue(due, now time.Time) int {
	d := midnight(due)
	n := midnight(now)
	return int(math.Round(d.Sub(n).Hours() / 24))
}

// IsOverdue reports whether due has passed at midnight granularity.
func IsOverdue(due, now time.Time) bool {
	return DaysUntilDue(due, now) < 0
}

func isWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
