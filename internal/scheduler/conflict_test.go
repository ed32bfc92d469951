package scheduler

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2030, time.March, 12, hour, minute, 0, 0, time.UTC)
}

func span(startHour, startMinute, endHour, endMinute int) Interval {
	return Interval{Start: at(startHour, startMinute), End: at(endHour, endMinute)}
}

// overlapsByCases is the three-case decomposition: overlap at start,
// overlap at end, candidate enclosing the existing interval.
func overlapsByCases(existing, candidate Interval) bool {
	atStart := !existing.Start.After(candidate.Start) && existing.End.After(candidate.Start)
	atEnd := existing.Start.Before(candidate.End) && !existing.End.Before(candidate.End)
	enclosed := !existing.Start.Before(candidate.Start) && !existing.End.After(candidate.End)
	return atStart || atEnd || enclosed
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	existing := span(9, 0, 11, 0)
	cases := []struct {
		name      string
		candidate Interval
		want      bool
	}{
		{name: "overlap at start", candidate: span(10, 0, 12, 0), want: true},
		{name: "overlap at end", candidate: span(8, 0, 10, 0), want: true},
		{name: "encloses existing", candidate: span(8, 0, 12, 0), want: true},
		{name: "inside existing", candidate: span(9, 30, 10, 30), want: true},
		{name: "identical", candidate: span(9, 0, 11, 0), want: true},
		{name: "back to back after", candidate: span(11, 0, 12, 0), want: false},
		{name: "back to back before", candidate: span(8, 0, 9, 0), want: false},
		{name: "disjoint", candidate: span(13, 0, 14, 0), want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Overlaps(existing, tc.candidate); got != tc.want {
				t.Fatalf("Overlaps(existing, candidate) = %v, want %v", got, tc.want)
			}
			if got := Overlaps(tc.candidate, existing); got != tc.want {
				t.Fatalf("Overlaps(candidate, existing) = %v, want %v", got, tc.want)
			}
			if got := overlapsByCases(existing, tc.candidate); got != tc.want {
				t.Fatalf("three-case decomposition = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOverlapsMatchesCaseDecomposition(t *testing.T) {
	t.Parallel()

	// Every positive-length pair on a half-hour grid across a working day.
	var grid []Interval
	for start := 0; start < 24; start++ {
		for end := start + 1; end <= 24; end++ {
			base := at(8, 0)
			grid = append(grid, Interval{
				Start: base.Add(time.Duration(start) * 30 * time.Minute),
				End:   base.Add(time.Duration(end) * 30 * time.Minute),
			})
		}
	}

	for _, a := range grid {
		for _, b := range grid {
			if Overlaps(a, b) != overlapsByCases(a, b) {
				t.Fatalf("mismatch for existing %v-%v candidate %v-%v", a.Start, a.End, b.Start, b.End)
			}
		}
	}
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	existing := []Booking{
		{ID: "morning", Interval: span(9, 0, 11, 0)},
		{ID: "noon", Interval: span(11, 0, 13, 0)},
		{ID: "evening", Interval: span(17, 0, 18, 0)},
	}

	t.Run("reports every overlapping booking in order", func(t *testing.T) {
		t.Parallel()
		got := DetectConflicts(existing, span(10, 0, 12, 0))
		if len(got) != 2 || got[0].ID != "morning" || got[1].ID != "noon" {
			t.Fatalf("unexpected conflicts: %+v", got)
		}
	})

	t.Run("back to back yields nothing", func(t *testing.T) {
		t.Parallel()
		if got := DetectConflicts(existing, span(13, 0, 17, 0)); len(got) != 0 {
			t.Fatalf("expected no conflicts, got %+v", got)
		}
	})

	t.Run("excluded ids are skipped", func(t *testing.T) {
		t.Parallel()
		got := DetectConflicts(existing, span(10, 0, 12, 0), "morning")
		if len(got) != 1 || got[0].ID != "noon" {
			t.Fatalf("unexpected conflicts: %+v", got)
		}
	})
}
