// Package date provides a day-granularity calendar date and the period
// arithmetic used by the task board and the portfolio dashboard.
package date

import (
	"encoding/json"
	"fmt"
	"time"
)

// Format is the wire representation of a date.
const Format = "2006-01-02"

// readFormat is permissive on read and accepts single-digit month/day.
const readFormat = "2006-1-2"

// Date represents a calendar date with no time component.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date for the given year, month and day.
// Out-of-range components roll over the way time.Date does, so
// New(2024, time.February, 31) is March 2nd.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Today returns the current date in local time.
func Today() Date { return New(time.Now().Date()) }

// FromTime truncates t to its local calendar day.
func FromTime(t time.Time) Date { return New(t.Date()) }

// time returns the canonical time.Time for the day (midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Year returns the year.
func (d Date) Year() int { return d.y }

// Month returns the month.
func (d Date) Month() time.Month { return d.time().Month() }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday { return d.time().Weekday() }

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// Add returns a new Date with the given number of days added.
func (d Date) Add(days int) Date { return New(d.y, d.m, d.d+days) }

// AddMonths returns a new Date the given number of calendar months away.
func (d Date) AddMonths(months int) Date { return New(d.y, d.m+time.Month(months), d.d) }

// AddYears returns a new Date the given number of calendar years away.
func (d Date) AddYears(years int) Date { return New(d.y+years, d.m, d.d) }

// Before reports whether d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// String formats the date as ISO-8601.
func (d Date) String() string { return d.time().Format(Format) }

// Layout formats the date according to the given time layout.
func (d Date) Layout(layout string) string { return d.time().Format(layout) }

// Parse parses a date. It is lenient and accepts "2024-6-1" as well as
// "2024-06-01".
func Parse(s string) (Date, error) {
	t, err := time.Parse(readFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, want format %q: %w", s, Format, err)
	}
	return New(t.Date()), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// MarshalJSON encodes the date as a JSON string.
func (d Date) MarshalJSON() ([]byte, error) {
	s := d.String()
	return json.Marshal(&s)
}

// UnmarshalJSON decodes a date from a JSON string. An empty string decodes
// to the zero Date.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	p, err := Parse(s)
	if err != nil {
		return err
	}
	*d = p
	return nil
}

var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)
