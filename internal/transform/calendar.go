package transform

import (
	"time"

	"github.com/arkilian/songlake/pkg/types"
)

// Calendar derives date parts of event timestamps in a fixed timezone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar returns a calendar for loc. A nil loc means UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// Location returns the calendar's timezone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// StartTime converts an event timestamp in milliseconds to the start of its
// second in the calendar's timezone. Milliseconds are truncated.
func (c Calendar) StartTime(ts int64) time.Time {
	return time.Unix(ts/1000, 0).In(c.Location())
}

// TimeRow expands an event timestamp into a time dimension row.
// Weekday counts 1 = Sunday through 7 = Saturday; week is the ISO 8601 week.
func (c Calendar) TimeRow(ts int64) types.TimeRow {
	t := c.StartTime(ts)
	_, week := t.ISOWeek()
	return types.TimeRow{
		StartTime: t.UnixMilli(),
		Hour:      int32(t.Hour()),
		Day:       int32(t.Day()),
		Week:      int32(week),
		Month:     int32(t.Month()),
		Year:      int32(t.Year()),
		Weekday:   int32(t.Weekday()) + 1,
	}
}
