package scheduler

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether [a.Start, a.End) and [b.Start, b.End) intersect.
// Back-to-back intervals (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Booking is an existing claim that can collide with a candidate interval.
type Booking struct {
	ID       string
	Interval Interval
}

// DetectConflicts returns the bookings overlapping the candidate, preserving input order.
// Bookings whose ID appears in exclude are skipped.
func DetectConflicts(existing []Booking, candidate Interval, exclude ...string) []Booking {
	var conflicts []Booking
	for _, booking := range existing {
		if excluded(booking.ID, exclude) {
			continue
		}
		if Overlaps(booking.Interval, candidate) {
			conflicts = append(conflicts, booking)
		}
	}
	return conflicts
}

func excluded(id string, exclude []string) bool {
	for _, candidate := range exclude {
		if candidate == id {
			return true
		}
	}
	return false
}
