package report

import "strings"

// RowKind is the semantic type of one tokenized report row.
type RowKind int

const (
	// KindIgnore marks noise: report boilerplate, blank rows, anything
	// that matches no known shape.
	KindIgnore RowKind = iota
	// KindInvoiceStart marks a row carrying "Invoice #" header fields.
	KindInvoiceStart
	// KindLineItem marks an ordinary detail row with fields in the
	// standard column positions.
	KindLineItem
	// KindLineItemEmbedded marks a detail line whose fields sit at the
	// embedded column offset because the row also carries report
	// header or footer boilerplate.
	KindLineItemEmbedded
	// KindInvoiceEnd marks a "Totals for Invoice" boundary row with no
	// embedded item.
	KindInvoiceEnd
)

func (k RowKind) String() string {
	switch k {
	case KindInvoiceStart:
		return "invoice-start"
	case KindLineItem:
		return "line-item"
	case KindLineItemEmbedded:
		return "line-item-embedded"
	case KindInvoiceEnd:
		return "invoice-end"
	default:
		return "ignore"
	}
}

// RowClass is the classification result. A single physical row can be both
// a line-item source and an invoice terminator: the "Totals for Invoice"
// footer sometimes carries the invoice's final item in the embedded
// columns. EndsInvoice is tracked separately from Kind so the assembler
// extracts the item before closing the invoice; collapsing the two into one
// kind silently dropped trailing items in the past.
type RowClass struct {
	Kind        RowKind
	EndsInvoice bool
}

const (
	invoiceEndMarker    = "Totals for Invoice"
	invoiceStartMarker  = "Invoice #"
	sectionHeaderMarker = "Invoice Detail Report"
)

// noiseMarkers identify report boilerplate by the content of the first
// field. Matched by substring, checked before the section-header probe.
var noiseMarkers = []string{
	"Total #",
	"Average",
	"Selected Date Range",
	"Report Notes",
	"Printed:",
	"Product Code",
	"Totals for Report",
}

// labelFragments are substrings that mark a field as report labelling
// rather than line-item data. Used to reject false positives when probing
// the embedded item columns.
var labelFragments = []string{
	"Invoice #",
	"Customer Name",
	"Total",
	"Report",
	"Totals for",
	"Site#",
	"Page ",
}

// Classify decides the semantic type of a tokenized row. Classification is
// a pure function of content; position in the file plays no part. The
// precedence order of the rules matters: the invoice-end check runs first
// so that a footer row is never mistaken for an invoice start (the footer
// text contains "Invoice #" too).
func Classify(fields []string) RowClass {
	if len(fields) == 0 {
		return RowClass{Kind: KindIgnore}
	}

	if anyFieldContains(fields, invoiceEndMarker) {
		if hasEmbeddedItem(fields) {
			return RowClass{Kind: KindLineItemEmbedded, EndsInvoice: true}
		}
		return RowClass{Kind: KindInvoiceEnd, EndsInvoice: true}
	}

	if anyFieldContains(fields, invoiceStartMarker) {
		return RowClass{Kind: KindInvoiceStart}
	}

	first := fields[0]
	for _, marker := range noiseMarkers {
		if strings.Contains(first, marker) {
			return RowClass{Kind: KindIgnore}
		}
	}

	if strings.Contains(first, sectionHeaderMarker) {
		// Section-header rows occasionally smuggle a line item far to
		// the right of the boilerplate.
		if hasEmbeddedItem(fields) {
			return RowClass{Kind: KindLineItemEmbedded}
		}
		return RowClass{Kind: KindIgnore}
	}

	if first != "" && !strings.Contains(first, "Report") && !strings.Contains(first, "Total") {
		return RowClass{Kind: KindLineItem}
	}

	return RowClass{Kind: KindIgnore}
}

// hasEmbeddedItem probes the embedded product-code column for a value that
// is non-empty and does not look like more report labelling.
func hasEmbeddedItem(fields []string) bool {
	code := strings.TrimSpace(fieldAt(fields, embeddedProductCodeCol))
	if code == "" {
		return false
	}
	for _, fragment := range labelFragments {
		if strings.Contains(code, fragment) {
			return false
		}
	}
	return true
}

func anyFieldContains(fields []string, marker string) bool {
	for _, f := range fields {
		if strings.Contains(f, marker) {
			return true
		}
	}
	return false
}
