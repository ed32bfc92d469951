package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// MinDuration is the shortest bookable interval.
	MinDuration = 30 * time.Minute
	// MaxDuration is the longest bookable interval.
	MaxDuration = 480 * time.Minute
)

// Reason is a machine readable rejection code.
type Reason string

const (
	ReasonPastStart    Reason = "PAST_START"
	ReasonInvalidRange Reason = "INVALID_RANGE"
	ReasonTooShort     Reason = "TOO_SHORT"
	ReasonTooLong      Reason = "TOO_LONG"
	ReasonMultiDay     Reason = "MULTI_DAY"
	ReasonOutsideHours Reason = "OUTSIDE_HOURS"
	ReasonInvalidHours Reason = "INVALID_HOURS"
)

// Violation describes why an interval or an hours pair was rejected.
type Violation struct {
	Reason  Reason
	Message string
}

// Error implements the error interface.
func (v *Violation) Error() string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", v.Reason, v.Message)
}

func violation(reason Reason, format string, args ...any) *Violation {
	return &Violation{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ValidateInterval checks a requested booking interval against the booking rules.
// Calendar-day comparison happens in loc; a nil loc means time.Local.
// Checks run in a fixed order and the first failure wins.
func ValidateInterval(now time.Time, interval Interval, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	if interval.Start.Before(now) {
		return violation(ReasonPastStart, "start time cannot be in the past")
	}
	if !interval.End.After(interval.Start) {
		return violation(ReasonInvalidRange, "end time must be after start time")
	}
	duration := interval.Duration()
	if duration < MinDuration {
		return violation(ReasonTooShort, "reservation must last at least %d minutes", int(MinDuration/time.Minute))
	}
	if duration > MaxDuration {
		return violation(ReasonTooLong, "reservation cannot exceed %d hours", int(MaxDuration/time.Hour))
	}
	if !sameDay(interval.Start.In(loc), interval.End.In(loc)) {
		return violation(ReasonMultiDay, "reservation must start and end on the same day")
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Clock is a time of day expressed in minutes after midnight.
type Clock int

var clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):([0-5][0-9])$`)

// ParseClock parses an HH:mm string such as "08:00" or "8:30".
func ParseClock(value string) (Clock, error) {
	matches := clockPattern.FindStringSubmatch(value)
	if matches == nil {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:mm", value)
	}
	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	return Clock(hours*60 + minutes), nil
}

// ClockOf returns the time of day of t in loc.
func ClockOf(t time.Time, loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	return Clock(local.Hour()*60 + local.Minute())
}

// String formats the clock as zero padded HH:mm.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Earliest and latest operating-hour bounds a space may declare.
const (
	EarliestOpen Clock = 6 * 60
	LatestClose  Clock = 23 * 60
)

// Hours is the daily operating window of a space.
type Hours struct {
	Open  Clock
	Close Clock
}

// ParseHours parses and validates an open/close pair.
func ParseHours(openTime, closeTime string) (Hours, error) {
	open, err := ParseClock(openTime)
	if err != nil {
		return Hours{}, violation(ReasonInvalidHours, "openTime must use the HH:mm format")
	}
	closing, err := ParseClock(closeTime)
	if err != nil {
		return Hours{}, violation(ReasonInvalidHours, "closeTime must use the HH:mm format")
	}
	hours := Hours{Open: open, Close: closing}
	if err := hours.Validate(); err != nil {
		return Hours{}, err
	}
	return hours, nil
}

// Validate checks that close is after open and both fall within the allowed day.
func (h Hours) Validate() error {
	if h.Close <= h.Open {
		return violation(ReasonInvalidHours, "closeTime must be after openTime")
	}
	if h.Open < EarliestOpen {
		return violation(ReasonInvalidHours, "spaces cannot open before %s", EarliestOpen)
	}
	if h.Close > LatestClose {
		return violation(ReasonInvalidHours, "spaces cannot close after %s", LatestClose)
	}
	return nil
}

// Contains rejects intervals whose clock times fall outside [Open, Close].
func (h Hours) Contains(interval Interval, loc *time.Location) error {
	start := ClockOf(interval.Start, loc)
	end := ClockOf(interval.End, loc)
	if start < h.Open || end > h.Close {
		return violation(ReasonOutsideHours, "space is open from %s to %s", h.Open, h.Close)
	}
	return nil
}

// WeekStart returns the most recent Sunday 00:00 in loc at or before now.
func WeekStart(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return midnight.AddDate(0, 0, -int(local.Weekday()))
}
