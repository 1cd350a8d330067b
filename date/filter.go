package date

// FilterByPeriod returns the items whose date falls inside the period of
// the given granularity around ref. The input is never mutated and the
// relative order of items is preserved. Items whose accessor yields a zero
// Date are compared as if dated today.
func FilterByPeriod[T any](items []T, at func(T) Date, g Granularity, ref Date) []T {
	if g == All {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		d := at(it)
		if d.IsZero() {
			d = Today()
		}
		if inPeriod(d, g, ref) {
			out = append(out, it)
		}
	}
	return out
}

func inPeriod(d Date, g Granularity, ref Date) bool {
	switch g {
	case Day:
		return d == ref
	case Week:
		from, to := StartOfWeek(ref), EndOfWeek(ref)
		return !d.Before(from) && !d.After(to)
	case Month:
		return d.Year() == ref.Year() && d.Month() == ref.Month()
	case Year:
		return d.Year() == ref.Year()
	default:
		return true
	}
}
