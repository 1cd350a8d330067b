package domain

import "strings"

// Color is a column's palette tag.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
	ColorPurple Color = "purple"
	ColorGray   Color = "gray"
)

// Palette lists the valid column colors.
var Palette = []Color{ColorBlue, ColorGreen, ColorYellow, ColorRed, ColorPurple, ColorGray}

// Valid reports whether c is one of the palette colors.
func (c Color) Valid() bool {
	for _, k := range Palette {
		if c == k {
			return true
		}
	}
	return false
}

// Column is a named status bucket a task can occupy, analogous to a kanban
// lane. The ID is derived from the title and must be unique on the board.
type Column struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Color Color  `json:"color"`
}

// ColumnID derives a column identifier from its display title by
// uppercasing and replacing whitespace runs with underscores, so
// "In Review" becomes "IN_REVIEW".
func ColumnID(title string) string {
	return strings.Join(strings.Fields(strings.ToUpper(title)), "_")
}
