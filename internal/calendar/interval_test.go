package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlapsHalfOpen_BoundaryDayDoesNotConflict(t *testing.T) {
	t.Parallel()

	// Booking ends on the 10th; a new stay starting on the 10th is allowed.
	if OverlapsHalfOpen(date(2024, 3, 10), date(2024, 3, 15), date(2024, 3, 5), date(2024, 3, 10)) {
		t.Fatal("expected back-to-back half-open ranges not to overlap")
	}

	if !OverlapsHalfOpen(date(2024, 3, 9), date(2024, 3, 15), date(2024, 3, 5), date(2024, 3, 10)) {
		t.Fatal("expected ranges sharing the 9th to overlap")
	}
}

func TestOverlapsClosed_BoundaryDayConflicts(t *testing.T) {
	t.Parallel()

	// An administrative block covering through the 10th intersects a period
	// starting on the 10th.
	if !OverlapsClosed(date(2024, 3, 10), date(2024, 3, 15), date(2024, 3, 5), date(2024, 3, 10)) {
		t.Fatal("expected touching closed ranges to overlap")
	}

	if OverlapsClosed(date(2024, 3, 11), date(2024, 3, 15), date(2024, 3, 5), date(2024, 3, 10)) {
		t.Fatal("expected disjoint closed ranges not to overlap")
	}
}

func TestCovers(t *testing.T) {
	t.Parallel()

	start := date(2024, 3, 5)
	end := date(2024, 3, 10)

	for _, day := range []time.Time{start, date(2024, 3, 7), end} {
		if !Covers(start, end, day) {
			t.Errorf("expected %s to be covered", day.Format(time.DateOnly))
		}
	}
	for _, day := range []time.Time{date(2024, 3, 4), date(2024, 3, 11)} {
		if Covers(start, end, day) {
			t.Errorf("expected %s not to be covered", day.Format(time.DateOnly))
		}
	}
}

func TestNights(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		want     int
	}{
		{"one night", date(2024, 3, 5), date(2024, 3, 6), 1},
		{"week", date(2024, 3, 5), date(2024, 3, 12), 7},
		{"same day", date(2024, 3, 5), date(2024, 3, 5), 0},
		{"inverted", date(2024, 3, 6), date(2024, 3, 5), 0},
		{"time of day ignored", date(2024, 3, 5).Add(14 * time.Hour), date(2024, 3, 6).Add(10 * time.Hour), 1},
	}

	for _, tc := range cases {
		if got := Nights(tc.checkIn, tc.checkOut); got != tc.want {
			t.Errorf("%s: Nights = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestStayDays(t *testing.T) {
	t.Parallel()

	days := StayDays(date(2024, 2, 27), date(2024, 3, 2))
	want := []time.Time{date(2024, 2, 27), date(2024, 2, 28), date(2024, 2, 29), date(2024, 3, 1)}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(days))
	}
	for i := range want {
		if !days[i].Equal(want[i]) {
			t.Errorf("day %d: got %s, want %s", i, days[i].Format(time.DateOnly), want[i].Format(time.DateOnly))
		}
	}

	if got := StayDays(date(2024, 3, 5), date(2024, 3, 5)); got != nil {
		t.Fatalf("expected nil days for same-day stay, got %v", got)
	}
}

func TestDaysInMonth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}

	for _, tc := range cases {
		if got := DaysInMonth(tc.year, tc.month); got != tc.want {
			t.Errorf("DaysInMonth(%d, %s) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestMonthDays_CoversWholeMonth(t *testing.T) {
	t.Parallel()

	days := MonthDays(2024, time.February)
	if len(days) != 29 {
		t.Fatalf("expected 29 days for Feb 2024, got %d", len(days))
	}
	if !days[0].Equal(date(2024, 2, 1)) {
		t.Errorf("first day = %s, want 2024-02-01", days[0].Format(time.DateOnly))
	}
	if !days[28].Equal(date(2024, 2, 29)) {
		t.Errorf("last day = %s, want 2024-02-29", days[28].Format(time.DateOnly))
	}
}
