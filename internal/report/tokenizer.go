// Package report parses the point-of-sale "Invoice Detail Report" export:
// a comma-delimited text file that mixes header, detail, footer and noise
// rows in one stream. Parsing is single-pass and order-dependent because
// record boundaries are inferred from row content.
package report

import "strings"

// TokenizeLine splits one physical report line into fields. A double quote
// toggles quoted state; commas inside quotes belong to the field. Quotes
// themselves are not emitted and there is no escape sequence for a literal
// quote. Malformed quoting degrades to best-effort field boundaries; this
// function never fails.
func TokenizeLine(line string) []string {
	fields := make([]string, 0, 16)
	var field strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	fields = append(fields, field.String())

	return fields
}
