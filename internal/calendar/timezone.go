// Package calendar converts between the business timezone used by the admin
// calendar and the UTC instants persisted for events.
//
// Timed events are stored as UTC instants and displayed in the configured
// zone. All-day events are stored as UTC midnight of their calendar dates and
// are never shifted across a day boundary by zone conversion.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// LocalLayout is the wall-clock form used by calendar form inputs.
	LocalLayout = "2006-01-02T15:04"
	// DateLayout is the date-only form used by all-day events and viewports.
	DateLayout = "2006-01-02"
	// DefaultTimezone is the business timezone applied when none is configured.
	DefaultTimezone = "America/New_York"
)

var (
	// ErrInvalidLocalTime is returned when a wall-clock string cannot be parsed.
	ErrInvalidLocalTime = errors.New("calendar: invalid local time")
	// ErrInvalidRange is returned when a viewport ends before it starts.
	ErrInvalidRange = errors.New("calendar: range end precedes start")
)

// LoadLocation resolves an IANA zone name, falling back to DefaultTimezone
// when name is blank.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("calendar: load location %q: %w", name, err)
	}
	return loc, nil
}

// ParseLocal interprets a "YYYY-MM-DDTHH:mm" or "YYYY-MM-DD" string as wall
// clock time in loc.
func ParseLocal(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	for _, layout := range []string{LocalLayout, "2006-01-02T15:04:05", DateLayout} {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidLocalTime, value)
}

// LocalToUTC converts a local wall-clock string into a UTC instant.
func LocalToUTC(value string, loc *time.Location) (time.Time, error) {
	ts, err := ParseLocal(value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// LocalToUTCString converts a local wall-clock string into an RFC 3339 UTC
// timestamp suitable for persistence.
func LocalToUTCString(value string, loc *time.Location) (string, error) {
	ts, err := LocalToUTC(value, loc)
	if err != nil {
		return "", err
	}
	return ts.Format(time.RFC3339), nil
}

// UTCToLocalString renders a persisted RFC 3339 timestamp as the wall-clock
// form expected by calendar inputs.
func UTCToLocalString(value string, loc *time.Location) (string, error) {
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocalTime, value)
	}
	return UTCToLocal(ts, loc), nil
}

// UTCToLocal renders an instant as wall-clock time in loc.
func UTCToLocal(ts time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format(LocalLayout)
}

// AllDayDate truncates t to midnight UTC of the calendar date it carries in
// its own location. A value parsed from "2024-06-01" stays on June 1st
// regardless of the business timezone.
func AllDayDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AllDayInterval returns the instants an all-day event occupies in loc: from
// local midnight of its first date to local midnight after its last date.
func AllDayInterval(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	first := AllDayDate(start)
	last := AllDayDate(end)
	if last.Before(first) {
		last = first
	}
	from := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	to := time.Date(last.Year(), last.Month(), last.Day()+1, 0, 0, 0, 0, loc)
	return from.UTC(), to.UTC()
}
