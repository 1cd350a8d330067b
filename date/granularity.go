package date

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the period filter mode used by the board and the
// dashboard: a single day, a Monday-to-Sunday week, a calendar month, a
// calendar year, or no filtering at all.
type Granularity int

const (
	Day Granularity = iota
	Week
	Month
	Year
	All
)

func (g Granularity) String() string {
	switch g {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	case All:
		return "all"
	default:
		panic(fmt.Sprintf("unknown granularity %d", int(g)))
	}
}

// ParseGranularity parses a granularity name, case-insensitively.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(s) {
	case "day", "daily":
		return Day, nil
	case "week", "weekly":
		return Week, nil
	case "month", "monthly":
		return Month, nil
	case "year", "yearly":
		return Year, nil
	case "all", "":
		return All, nil
	default:
		return All, fmt.Errorf("unknown granularity %q", s)
	}
}

// StartOfWeek returns the Monday of the week containing d. A Sunday rolls
// back to the Monday six days earlier.
func StartOfWeek(d Date) Date {
	offset := int(d.Weekday() - time.Monday)
	for offset < 0 {
		offset += 7
	}
	return d.Add(-offset)
}

// EndOfWeek returns the Sunday of the week containing d, always
// StartOfWeek(d) plus six days.
func EndOfWeek(d Date) Date { return StartOfWeek(d).Add(6) }

// Shift moves d by one unit of the granularity in the given direction
// (+1 forward, -1 backward). Month and year steps use calendar arithmetic,
// so stepping a month from Jan 31 lands on the normalized rollover day.
// All leaves the date unchanged.
func Shift(d Date, g Granularity, dir int) Date {
	if dir > 0 {
		dir = 1
	} else if dir < 0 {
		dir = -1
	}
	switch g {
	case Day:
		return d.Add(dir)
	case Week:
		return d.Add(7 * dir)
	case Month:
		return d.AddMonths(dir)
	case Year:
		return d.AddYears(dir)
	default:
		return d
	}
}

// Label renders the human-readable heading for the period containing d.
func Label(d Date, g Granularity) string {
	switch g {
	case Day:
		return d.Layout("Monday, Jan 2 2006")
	case Week:
		from, to := StartOfWeek(d), EndOfWeek(d)
		return fmt.Sprintf("%s – %s, %d", from.Layout("Jan 2"), to.Layout("Jan 2"), to.Year())
	case Month:
		return d.Layout("January 2006")
	case Year:
		return d.Layout("2006")
	default:
		return "All time"
	}
}
