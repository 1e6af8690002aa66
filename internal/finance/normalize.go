// Package finance derives and sanity-checks the arithmetic fields of
// parsed invoices. The report's own profit and margin columns are legacy
// data and are recomputed here rather than trusted.
package finance

import "github.com/treadline/invoice-ingest-service/internal/domain"

// Margin percentages are stored in a bounded decimal column; values outside
// this range are clamped, not rejected.
const (
	MarginPctMin = -999.99
	MarginPctMax = 999.99
)

// NormalizeLineItem recomputes the derived financial fields of one item
// from its line total, cost and quantity. Zero quantities and zero totals
// are valid input; the divide-by-zero policy is to yield 0.
func NormalizeLineItem(item *domain.LineItem) {
	item.GrossProfit = item.LineTotal - item.Cost

	if item.LineTotal != 0 {
		item.MarginPct = clampMargin(item.GrossProfit / item.LineTotal * 100)
	} else {
		item.MarginPct = 0
	}

	if item.Quantity != 0 {
		item.UnitCost = item.Cost / item.Quantity
	} else {
		item.UnitCost = 0
	}

	item.Category = ClassifyCategory(*item)
}

// NormalizeInvoice normalizes every item and repairs the invoice-level
// aggregates. The header total should equal the sum of the line totals;
// when it does not and the sum is non-zero, the line items win — header
// totals in this export are untrustworthy legacy data.
func NormalizeInvoice(inv *domain.Invoice) {
	for i := range inv.Items {
		NormalizeLineItem(&inv.Items[i])
	}

	itemTotal := inv.ItemTotal()
	if itemTotal != 0 && inv.Header.TotalAmount != itemTotal {
		inv.Header.TotalAmount = itemTotal
	}
}

func clampMargin(pct float64) float64 {
	if pct > MarginPctMax {
		return MarginPctMax
	}
	if pct < MarginPctMin {
		return MarginPctMin
	}
	return pct
}
