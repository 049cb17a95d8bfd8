package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Range is a half-open interval [Start, End) of UTC instants.
type Range struct {
	Start time.Time
	End   time.Time
}

// View identifies a calendar viewport preset.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// ParseView validates a viewport name.
func ParseView(value string) (View, bool) {
	switch View(strings.ToLower(strings.TrimSpace(value))) {
	case ViewDay:
		return ViewDay, true
	case ViewWeek:
		return ViewWeek, true
	case ViewMonth:
		return ViewMonth, true
	}
	return "", false
}

// RangeUTC converts a viewport given as local wall-clock strings into UTC
// bounds. Each boundary is resolved independently in loc, so a viewport that
// spans a daylight-saving transition gets the correct offset at each end.
func RangeUTC(localStart, localEnd string, loc *time.Location) (Range, error) {
	start, err := LocalToUTC(localStart, loc)
	if err != nil {
		return Range{}, err
	}
	end, err := LocalToUTC(localEnd, loc)
	if err != nil {
		return Range{}, err
	}
	if end.Before(start) {
		return Range{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, localStart, localEnd)
	}
	return Range{Start: start, End: end}, nil
}

// ViewBounds returns the UTC bounds of the day, Monday-start week or month
// containing the reference date in loc.
func ViewBounds(view View, reference time.Time, loc *time.Location) Range {
	if loc == nil {
		loc = time.UTC
	}
	local := reference.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var start, end time.Time
	switch view {
	case ViewWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start = time.Date(day.Year(), day.Month(), day.Day()-offset, 0, 0, 0, 0, loc)
		end = time.Date(start.Year(), start.Month(), start.Day()+7, 0, 0, 0, 0, loc)
	case ViewMonth:
		start = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
		end = time.Date(day.Year(), day.Month()+1, 1, 0, 0, 0, 0, loc)
	default:
		start = day
		end = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc)
	}
	return Range{Start: start.UTC(), End: end.UTC()}
}

// Widen extends both bounds by d. Used to over-fetch candidates whose
// effective interval depends on the display zone.
func (r Range) Widen(d time.Duration) Range {
	return Range{Start: r.Start.Add(-d), End: r.End.Add(d)}
}

// Intersects reports whether the closed event interval [start, end] overlaps
// the half-open range. Zero-length events count when they fall inside it.
func (r Range) Intersects(start, end time.Time) bool {
	if start.Equal(end) {
		return !start.Before(r.Start) && start.Before(r.End)
	}
	return start.Before(r.End) && end.After(r.Start)
}
