// Package calendar provides the date-interval arithmetic shared by the
// availability and pricing engines: overlap predicates, day iteration and
// month materialization.
//
// Two overlap conventions coexist on purpose. Booking conflict detection is
// half-open ([checkIn, checkOut)): a checkout day never blocks a same-day
// checkin. Administrative overwrite deletion is closed ([start, end]): a
// blocked period covers its last day fully. Callers must not substitute one
// predicate for the other.
package calendar

import "time"

// DateOnly truncates t to midnight UTC, discarding the time-of-day component.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// OverlapsHalfOpen reports whether [aStart, aEnd) intersects [bStart, bEnd).
func OverlapsHalfOpen(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// OverlapsClosed reports whether [aStart, aEnd] intersects [bStart, bEnd].
func OverlapsClosed(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// Covers reports whether day falls inside [start, end], comparing dates only.
func Covers(start, end, day time.Time) bool {
	d := DateOnly(day)
	return !DateOnly(start).After(d) && !DateOnly(end).Before(d)
}

// Nights returns the number of calendar nights between checkIn and checkOut,
// i.e. the number of days in [checkIn, checkOut). A same-day or inverted
// range yields zero.
func Nights(checkIn, checkOut time.Time) int {
	start := DateOnly(checkIn)
	end := DateOnly(checkOut)
	if !start.Before(end) {
		return 0
	}
	return int(end.Sub(start) / (24 * time.Hour))
}

// StayDays returns every date in [checkIn, checkOut) in ascending order.
func StayDays(checkIn, checkOut time.Time) []time.Time {
	nights := Nights(checkIn, checkOut)
	if nights == 0 {
		return nil
	}
	days := make([]time.Time, 0, nights)
	for d := DateOnly(checkIn); len(days) < nights; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// MonthBounds returns the first and last day of the given month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// DaysInMonth returns the number of calendar days in the given month,
// accounting for leap years.
func DaysInMonth(year int, month time.Month) int {
	first, last := MonthBounds(year, month)
	return int(last.Sub(first)/(24*time.Hour)) + 1
}

// MonthDays returns every date of the given month in ascending order.
func MonthDays(year int, month time.Month) []time.Time {
	count := DaysInMonth(year, month)
	days := make([]time.Time, 0, count)
	first, _ := MonthBounds(year, month)
	for i := 0; i < count; i++ {
		days = append(days, first.AddDate(0, 0, i))
	}
	return days
}
