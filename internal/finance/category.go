package finance

import (
	"strings"

	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// Line-item categories. Inferred from content with priority-ordered rules,
// first match wins.
const (
	CategoryTire    = "tire"
	CategoryService = "service"
	CategoryParts   = "parts"
	CategoryOther   = "other"
)

// tireKeywords mark tire lines by description content. Checked before the
// service keywords so "tire rotation" parts-and-labor bundles stay tires
// only when the description leads with the product.
var tireKeywords = []string{"tire", "tyre"}

// serviceKeywords mark labor and service lines by description content.
var serviceKeywords = []string{"labor", "service", "install", "rotation", "alignment", "balance", "repair"}

// ClassifyCategory infers a category from the item's product code and
// description. This is a small rule chain, not a classifier: rules run in
// priority order and ties go to the first matching rule.
func ClassifyCategory(item domain.LineItem) string {
	desc := strings.ToLower(item.Description)

	for _, kw := range tireKeywords {
		if strings.Contains(desc, kw) {
			return CategoryTire
		}
	}

	for _, kw := range serviceKeywords {
		if strings.Contains(desc, kw) {
			return CategoryService
		}
	}
	// Pure-labor lines without a helpful description still classify as
	// service when labor is the only cost on the line.
	if item.LaborCost != 0 && item.PartsCost == 0 {
		return CategoryService
	}

	if item.ProductCode != "" && item.Quantity != 0 {
		return CategoryParts
	}

	return CategoryOther
}
