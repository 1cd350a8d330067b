package view

import (
	"encoding/csv"
	"strings"
)

// ExportCSV serializes rows to comma-separated text: a header row with the
// column names in declaration order, then one row per record with null
// values as empty strings. Quoting follows the usual CSV conventions
// (fields containing commas or quotes are wrapped in double quotes with
// inner quotes doubled), so the output opens cleanly in spreadsheet tools.
func ExportCSV[T any](cols []Column[T], rows []T) string {
	var b strings.Builder
	w := csv.NewWriter(&b)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	_ = w.Write(header)

	record := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			record[i] = c.String(row)
		}
		_ = w.Write(record)
	}
	w.Flush()
	return b.String()
}
