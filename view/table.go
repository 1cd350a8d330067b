// Package view implements the table engine behind the options viewer and
// the list screens: free-text search, typed per-column filters, stable
// single-column sort and fixed-size pagination over small in-memory
// collections, plus CSV export.
package view

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultPageSize is the page size used by the board and portfolio tables.
const DefaultPageSize = 20

// Kind is the type of a table column.
type Kind int

const (
	Text Kind = iota
	Number
	Bool
)

// Column describes one typed column of a table over rows of type T. The
// set of columns for a table is closed and declared up front; there is no
// reflective field access.
type Column[T any] struct {
	Name   string
	Kind   Kind
	String func(T) string          // display, search and export form
	Number func(T) (float64, bool) // Number kind; ok=false means null
	Bool   func(T) bool            // Bool kind
}

// TextColumn declares a text column.
func TextColumn[T any](name string, f func(T) string) Column[T] {
	return Column[T]{Name: name, Kind: Text, String: f}
}

// NumberColumn declares a numeric column. A false ok from f marks the value
// as null: it never matches range filters and sorts last.
func NumberColumn[T any](name string, f func(T) (float64, bool)) Column[T] {
	return Column[T]{
		Name:   name,
		Kind:   Number,
		Number: f,
		String: func(row T) string {
			v, ok := f(row)
			if !ok {
				return ""
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		},
	}
}

// BoolColumn declares a boolean column.
func BoolColumn[T any](name string, f func(T) bool) Column[T] {
	return Column[T]{
		Name: name,
		Kind: Bool,
		Bool: f,
		String: func(row T) string {
			return strconv.FormatBool(f(row))
		},
	}
}

// Filter is one typed column filter. The populated value decides the
// filter's behavior: Text does a case-insensitive substring match, Min/Max
// an inclusive range check, Equals a boolean equality check. Filters are
// ANDed together.
type Filter struct {
	Column string   `json:"column"`
	Text   string   `json:"text,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Equals *bool    `json:"equals,omitempty"`
}

// Sort selects the sort column and direction.
type Sort struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// Toggle returns the sort spec after clicking column: the same column flips
// direction, a new column resets to ascending.
func Toggle(cur Sort, column string) Sort {
	if cur.Column == column {
		return Sort{Column: column, Desc: !cur.Desc}
	}
	return Sort{Column: column}
}

// Result is one page of a queried table.
type Result[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// Query applies search, filters, sort and pagination in that order. Page is
// 1-based; an out-of-range page yields an empty item list (clamping is the
// caller's job). The input slice is never mutated.
func Query[T any](cols []Column[T], rows []T, search string, filters []Filter, sortSpec Sort, page, pageSize int) Result[T] {
	matched := Apply(cols, rows, search, filters, sortSpec)

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(matched)
	pages := (total + pageSize - 1) / pageSize

	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return Result[T]{Items: matched[start:end], TotalCount: total, TotalPages: pages}
}

// Apply returns the filtered and sorted rows without pagination. The export
// path uses it so the CSV matches exactly what the table shows.
func Apply[T any](cols []Column[T], rows []T, search string, filters []Filter, sortSpec Sort) []T {
	matched := make([]T, 0, len(rows))
	for _, row := range rows {
		if matches(cols, row, search, filters) {
			matched = append(matched, row)
		}
	}
	sortRows(cols, matched, sortSpec)
	return matched
}

func matches[T any](cols []Column[T], row T, search string, filters []Filter) bool {
	if search != "" && !matchesSearch(cols, row, search) {
		return false
	}
	for _, f := range filters {
		col, ok := findColumn(cols, f.Column)
		if !ok {
			continue
		}
		if !matchesFilter(col, row, f) {
			return false
		}
	}
	return true
}

func matchesSearch[T any](cols []Column[T], row T, search string) bool {
	q := strings.ToLower(search)
	for _, col := range cols {
		if strings.Contains(strings.ToLower(col.String(row)), q) {
			return true
		}
	}
	return false
}

func matchesFilter[T any](col Column[T], row T, f Filter) bool {
	switch {
	case f.Min != nil || f.Max != nil:
		v, ok := col.Number(row)
		if !ok {
			// A null value never matches a range filter.
			return false
		}
		if f.Min != nil && v < *f.Min {
			return false
		}
		if f.Max != nil && v > *f.Max {
			return false
		}
		return true
	case f.Equals != nil:
		return col.Bool(row) == *f.Equals
	case f.Text != "":
		return strings.Contains(strings.ToLower(col.String(row)), strings.ToLower(f.Text))
	default:
		return true
	}
}

func findColumn[T any](cols []Column[T], name string) (Column[T], bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column[T]{}, false
}

// sortRows sorts in place, stably. Null values sort to the end regardless
// of direction; text uses locale-aware collation, numbers numeric order,
// booleans false before true.
func sortRows[T any](cols []Column[T], rows []T, spec Sort) {
	if spec.Column == "" {
		return
	}
	col, ok := findColumn(cols, spec.Column)
	if !ok {
		return
	}
	coll := collate.New(language.Und)
	sort.SliceStable(rows, func(i, j int) bool {
		cmp, iNull, jNull := compare(col, coll, rows[i], rows[j])
		if iNull || jNull {
			return !iNull && jNull
		}
		if spec.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compare[T any](col Column[T], coll *collate.Collator, a, b T) (cmp int, aNull, bNull bool) {
	switch col.Kind {
	case Number:
		av, aok := col.Number(a)
		bv, bok := col.Number(b)
		if !aok || !bok {
			return 0, !aok, !bok
		}
		switch {
		case av < bv:
			return -1, false, false
		case av > bv:
			return 1, false, false
		}
		return 0, false, false
	case Bool:
		av, bv := col.Bool(a), col.Bool(b)
		switch {
		case !av && bv:
			return -1, false, false
		case av && !bv:
			return 1, false, false
		}
		return 0, false, false
	default:
		return coll.CompareString(col.String(a), col.String(b)), false, false
	}
}
