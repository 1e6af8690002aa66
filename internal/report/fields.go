package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// Standard line-item column positions. Detail rows place their fields at
// fixed offsets from column zero.
const (
	stdProductCodeCol = 0
	stdDescriptionCol = 1
	stdAdjustmentCol  = 2
	stdQuantityCol    = 3
	stdPartsCostCol   = 4
	stdLaborCostCol   = 5
	stdFETCol         = 6
	stdLineTotalCol   = 7
	stdCostCol        = 8
	stdMarginPctCol   = 9
	stdProfitCol      = 10
)

// Embedded line-item column positions. Same semantic order as the standard
// layout, shifted right because columns 0-26 hold report boilerplate when a
// detail line shares a physical row with a section header or footer.
const (
	embeddedProductCodeCol = 27
	embeddedDescriptionCol = 28
	embeddedAdjustmentCol  = 29
	embeddedQuantityCol    = 30
	embeddedPartsCostCol   = 31
	embeddedLaborCostCol   = 32
	embeddedFETCol         = 33
	embeddedLineTotalCol   = 34
	embeddedCostCol        = 35
	embeddedMarginPctCol   = 36
	embeddedProfitCol      = 37
)

// Header label substrings. A header row scatters labelled fields in no
// fixed order, so values are located by label rather than position.
const (
	labelInvoiceNumber = "Invoice #"
	labelCustomerName  = "Customer Name:"
	labelVehicle       = "Vehicle:"
	labelMileage       = "Mileage:"
	labelInvoiceDate   = "Invoice Date:"
	labelSalesperson   = "Salesperson:"
	labelTax           = "Tax:"
	labelTotal         = "Total:"
)

// invoiceDateLayouts are tried in order when parsing the locale-formatted
// invoice date.
var invoiceDateLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"1/2/2006 3:04:05 PM",
	"2006-01-02",
}

// DecodeStandardLineItem reads a detail row laid out at the standard column
// positions. Missing columns decode as empty; unparsable numbers decode
// as 0.
func DecodeStandardLineItem(fields []string) domain.LineItem {
	return decodeLineItemAt(fields, stdProductCodeCol)
}

// DecodeEmbeddedLineItem reads a detail row laid out at the embedded column
// offset.
func DecodeEmbeddedLineItem(fields []string) domain.LineItem {
	return decodeLineItemAt(fields, embeddedProductCodeCol)
}

// decodeLineItemAt decodes the eleven line-item columns starting at base.
// The two public decoders differ only in their base offset.
func decodeLineItemAt(fields []string, base int) domain.LineItem {
	return domain.LineItem{
		ProductCode: strings.TrimSpace(fieldAt(fields, base)),
		Description: strings.TrimSpace(fieldAt(fields, base+1)),
		Adjustment:  strings.TrimSpace(fieldAt(fields, base+2)),
		Quantity:    parseNumberOrZero(fieldAt(fields, base+3)),
		PartsCost:   parseCurrencyOrZero(fieldAt(fields, base+4)),
		LaborCost:   parseCurrencyOrZero(fieldAt(fields, base+5)),
		FETAmount:   parseCurrencyOrZero(fieldAt(fields, base+6)),
		LineTotal:   parseCurrencyOrZero(fieldAt(fields, base+7)),
		Cost:        parseCurrencyOrZero(fieldAt(fields, base+8)),
		MarginPct:   parseNumberOrZero(fieldAt(fields, base+9)),
		GrossProfit: parseCurrencyOrZero(fieldAt(fields, base+10)),
	}
}

// ExtractHeader scans a row for labelled header fields and returns the
// assembled header. The boolean reports whether an invoice number was
// recovered; without one the row cannot open an invoice.
func ExtractHeader(fields []string) (domain.InvoiceHeader, bool) {
	header := domain.InvoiceHeader{
		InvoiceNumber: extractLabeled(fields, labelInvoiceNumber),
		CustomerName:  extractLabeled(fields, labelCustomerName),
		Vehicle:       extractLabeled(fields, labelVehicle),
		Salesperson:   extractLabeled(fields, labelSalesperson),
		TaxAmount:     parseCurrencyOrZero(extractLabeled(fields, labelTax)),
		TotalAmount:   parseCurrencyOrZero(extractLabeled(fields, labelTotal)),
	}
	header.Mileage = int(parseNumberOrZero(extractLabeled(fields, labelMileage)))
	header.InvoiceDate = parseDateOrZero(extractLabeled(fields, labelInvoiceDate))

	return header, header.InvoiceNumber != ""
}

// extractLabeled finds the first field containing label and returns the
// remainder of that field after the label, trimmed. When the label sits
// alone in its field the value lives in the following field instead; the
// export uses both shapes.
func extractLabeled(fields []string, label string) string {
	for i, f := range fields {
		idx := strings.Index(f, label)
		if idx < 0 {
			continue
		}
		value := strings.TrimSpace(f[idx+len(label):])
		value = strings.TrimSpace(strings.TrimPrefix(value, ":"))
		if value == "" && i+1 < len(fields) {
			value = strings.TrimSpace(fields[i+1])
		}
		return value
	}
	return ""
}

// fieldAt returns fields[i], or "" when the row is too short. Report rows
// carry wildly inconsistent column counts, so every positional read goes
// through here.
func fieldAt(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// parseCurrencyOrZero parses a currency-formatted field ("$1,234.56"),
// defaulting to 0 on failure. The default-to-zero policy is deliberate:
// a bad number must never abort a row.
func parseCurrencyOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	return parseNumberOrZero(s)
}

// parseNumberOrZero parses a plain numeric field, defaulting to 0 on
// failure.
func parseNumberOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	// Negative amounts appear as "(12.34)" in some report variants.
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		inner, err := strconv.ParseFloat(strings.Trim(s, "()"), 64)
		if err != nil {
			return 0
		}
		return -inner
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseDateOrZero parses the locale-formatted invoice date, returning the
// zero time on failure.
func parseDateOrZero(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range invoiceDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
