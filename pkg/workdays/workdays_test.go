package workdays

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func TestDueDate(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		days  int
		want  time.Time
	}{
		{
			name:  "monday plus three days",
			start: date(2026, time.March, 2), // Monday
			days:  3,
			want:  date(2026, time.March, 5), // Thursday
		},
		{
			name:  "friday plus one day lands on monday",
			start: date(2026, time.March, 6), // Friday
			days:  1,
			want:  date(2026, time.March, 9), // Monday
		},
		{
			name:  "thursday plus two days skips weekend",
			start: date(2026, time.March, 5), // Thursday
			days:  2,
			want:  date(2026, time.March, 9), // Monday
		},
		{
			name:  "saturday start counts from next working day",
			start: date(2026, time.March, 7), // Saturday
			days:  1,
			want:  date(2026, time.March, 9), // Monday
		},
		{
			name:  "five days spans exactly one week",
			start: date(2026, time.March, 2), // Monday
			days:  5,
			want:  date(2026, time.March, 9), // next Monday
		},
		{
			name:  "zero days returns start",
			start: date(2026, time.March, 2),
			days:  0,
			want:  date(2026, time.March, 2),
		},
		{
			name:  "negative days returns start",
			start: date(2026, time.March, 2),
			days:  -3,
			want:  date(2026, time.March, 2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueDate(tt.start, tt.days)
			if !got.Equal(tt.want) {
				t.Errorf("DueDate(%v, %d) = %v, want %v", tt.start, tt.days, got, tt.want)
			}
		})
	}
}

func TestDueDateNeverLandsOnWeekend(t *testing.T) {
	start := date(2026, time.March, 2)
	for days := 1; days <= 30; days++ {
		due := DueDate(start, days)
		if wd := due.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("DueDate(%v, %d) landed on %v", start, days, wd)
		}
	}
}

func TestDayEquivalent(t *testing.T) {
	tests := []struct {
		value int
		unit  Unit
		want  int
	}{
		{3, UnitDays, 3},
		{8, UnitHours, 1},
		{9, UnitHours, 2},
		{1, UnitHours, 1},
		{16, UnitHours, 2},
		{0, UnitDays, 0},
	}

	for _, tt := range tests {
		if got := DayEquivalent(tt.value, tt.unit); got != tt.want {
			t.Errorf("DayEquivalent(%d, %q) = %d, want %d", tt.value, tt.unit, got, tt.want)
		}
	}
}

func TestDaysUntilDue(t *testing.T) {
	due := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"three days out", time.Date(2026, time.March, 7, 9, 0, 0, 0, time.UTC), 3},
		{"due today morning", time.Date(2026, time.March, 10, 1, 0, 0, 0, time.UTC), 0},
		{"due today evening", time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC), 0},
		{"one day past", time.Date(2026, time.March, 11, 0, 30, 0, 0, time.UTC), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysUntilDue(due, tt.now); got != tt.want {
				t.Errorf("DaysUntilDue = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysUntilDueIgnoresTimeOfDay(t *testing.T) {
	due := time.Date(2026, time.March, 10, 23, 0, 0, 0, time.UTC)
	morning := time.Date(2026, time.March, 9, 0, 1, 0, 0, time.UTC)
	evening := time.Date(2026, time.March, 9, 23, 59, 0, 0, time.UTC)

	if DaysUntilDue(due, morning) != DaysUntilDue(due, evening) {
		t.Error("time of day affected DaysUntilDue")
	}
}

func TestDaysUntilDueAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// DST begins Sunday 2026-03-08 in this zone: the Sat->Mon span is 47h.
	due := time.Date(2026, time.March, 7, 12, 0, 0, 0, loc)  // Saturday
	now := time.Date(2026, time.March, 9, 12, 0, 0, 0, loc)  // Monday

	if got := DaysUntilDue(due, now); got != -2 {
		t.Errorf("DaysUntilDue two days past due across DST = %d, want -2", got)
	}
	if !IsOverdue(due, now) {
		t.Error("ticket two days past due across DST not reported overdue")
	}

	// Symmetric future case over the same short day.
	future := time.Date(2026, time.March, 10, 9, 0, 0, 0, loc) // Tuesday
	start := time.Date(2026, time.March, 8, 9, 0, 0, 0, loc)   // Sunday
	if got := DaysUntilDue(future, start); got != 2 {
		t.Errorf("DaysUntilDue two days ahead across DST = %d, want 2", got)
	}
}

func TestIsOverdue(t *testing.T) {
	due := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	if IsOverdue(due, time.Date(2026, time.March, 10, 23, 0, 0, 0, time.UTC)) {
		t.Error("ticket due today reported overdue")
	}
	if !IsOverdue(due, time.Date(2026, time.March, 11, 0, 1, 0, 0, time.UTC)) {
		t.Error("ticket past due not reported overdue")
	}
}
