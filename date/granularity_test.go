package date

import (
	"testing"
	"time"
)

func TestStartEndOfWeek(t *testing.T) {
	tests := []struct {
		day   Date
		start Date
	}{
		{New(2024, time.June, 12), New(2024, time.June, 10)}, // Wednesday
		{New(2024, time.June, 10), New(2024, time.June, 10)}, // Monday
		{New(2024, time.June, 16), New(2024, time.June, 10)}, // Sunday rolls back
		{New(2024, time.January, 1), New(2024, time.January, 1)},
	}
	for _, tc := range tests {
		if got := StartOfWeek(tc.day); got != tc.start {
			t.Errorf("StartOfWeek(%s) = %s, want %s", tc.day, got, tc.start)
		}
		if got := EndOfWeek(tc.day); got != tc.start.Add(6) {
			t.Errorf("EndOfWeek(%s) = %s, want %s", tc.day, got, tc.start.Add(6))
		}
	}
}

func TestWeekBoundsContainDate(t *testing.T) {
	// StartOfWeek(d) <= d <= EndOfWeek(d) over a full year of days.
	d := New(2024, time.January, 1)
	for i := 0; i < 366; i++ {
		if StartOfWeek(d).After(d) || EndOfWeek(d).Before(d) {
			t.Fatalf("week bounds [%s, %s] do not contain %s", StartOfWeek(d), EndOfWeek(d), d)
		}
		if StartOfWeek(d).Weekday() != time.Monday {
			t.Fatalf("StartOfWeek(%s) is a %s", d, StartOfWeek(d).Weekday())
		}
		d = d.Add(1)
	}
}

func TestShift(t *testing.T) {
	ref := New(2024, time.June, 12)
	tests := []struct {
		g    Granularity
		dir  int
		want Date
	}{
		{Day, 1, New(2024, time.June, 13)},
		{Day, -1, New(2024, time.June, 11)},
		{Week, 1, New(2024, time.June, 19)},
		{Week, -1, New(2024, time.June, 5)},
		{Month, 1, New(2024, time.July, 12)},
		{Month, -1, New(2024, time.May, 12)},
		{Year, 1, New(2025, time.June, 12)},
		{Year, -1, New(2023, time.June, 12)},
		{All, 1, ref},
	}
	for _, tc := range tests {
		if got := Shift(ref, tc.g, tc.dir); got != tc.want {
			t.Errorf("Shift(%s, %s, %+d) = %s, want %s", ref, tc.g, tc.dir, got, tc.want)
		}
	}
}

func TestShiftMonthEndRollsOver(t *testing.T) {
	got := Shift(New(2024, time.January, 31), Month, 1)
	if got != New(2024, time.March, 2) {
		t.Errorf("Shift(Jan 31, month, +1) = %s, want 2024-03-02", got)
	}
}

func TestLabel(t *testing.T) {
	d := New(2024, time.June, 12)
	tests := []struct {
		g    Granularity
		want string
	}{
		{Day, "Wednesday, Jun 12 2024"},
		{Week, "Jun 10 – Jun 16, 2024"},
		{Month, "June 2024"},
		{Year, "2024"},
		{All, "All time"},
	}
	for _, tc := range tests {
		if got := Label(d, tc.g); got != tc.want {
			t.Errorf("Label(%s, %s) = %q, want %q", d, tc.g, got, tc.want)
		}
	}
}

func TestParseGranularity(t *testing.T) {
	for _, g := range []Granularity{Day, Week, Month, Year, All} {
		got, err := ParseGranularity(g.String())
		if err != nil || got != g {
			t.Errorf("ParseGranularity(%q) = %v, %v", g.String(), got, err)
		}
	}
	if _, err := ParseGranularity("fortnight"); err == nil {
		t.Error("expected error for unknown granularity")
	}
}
