package expiry

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCutoverHour is the local hour at which an expiry day rolls to the following week.
const DefaultCutoverHour = 19

var indexWeekdays = map[string]time.Weekday{
	"NIFTY":  time.Tuesday,
	"SENSEX": time.Thursday,
}

// Resolver maps a moment in time to the applicable weekly expiry.
type Resolver struct {
	Location    *time.Location
	CutoverHour int
}

// NewResolver builds a Resolver, falling back to UTC and DefaultCutoverHour.
func NewResolver(loc *time.Location, cutoverHour int) Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if cutoverHour <= 0 || cutoverHour > 23 {
		cutoverHour = DefaultCutoverHour
	}
	return Resolver{Location: loc, CutoverHour: cutoverHour}
}

// Date returns the expiry date for the given weekday as seen from now.
func (r Resolver) Date(now time.Time, weekday time.Weekday) time.Time {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	daysAhead := (int(weekday) - int(local.Weekday()) + 7) % 7
	if daysAhead == 0 && local.Hour() >= r.cutover() {
		daysAhead = 7
	}
	return today.AddDate(0, 0, daysAhead)
}

// Code returns the short expiry code: two-digit year, month without padding, two-digit day.
func (r Resolver) Code(now time.Time, weekday time.Weekday) string {
	return Format(r.Date(now, weekday))
}

// Format encodes an expiry date, e.g. 2026-03-03 -> "26303", 2026-10-20 -> "261020".
func Format(d time.Time) string {
	return fmt.Sprintf("%02d%d%02d", d.Year()%100, int(d.Month()), d.Day())
}

func (r Resolver) cutover() int {
	if r.CutoverHour <= 0 {
		return DefaultCutoverHour
	}
	return r.CutoverHour
}

// WeekdayFor returns the built-in weekly expiry weekday of an index, or fallback.
func WeekdayFor(index string, fallback time.Weekday) time.Weekday {
	if wd, ok := indexWeekdays[strings.ToUpper(index)]; ok {
		return wd
	}
	return fallback
}

// ParseWeekday parses English weekday names ("tuesday", "Thu").
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
