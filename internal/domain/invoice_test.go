package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddLineItemAssignsLineNumbers(t *testing.T) {
	inv := NewInvoice(InvoiceHeader{InvoiceNumber: "3-100"})
	inv.AddLineItem(LineItem{ProductCode: "A"})
	inv.AddLineItem(LineItem{ProductCode: "B"})

	assert.Equal(t, 1, inv.Items[0].LineNumber)
	assert.Equal(t, 2, inv.Items[1].LineNumber)
}

func TestNaturalKey(t *testing.T) {
	inv := NewInvoice(InvoiceHeader{InvoiceNumber: "3-327551"})
	inv.SiteCode = "3"
	assert.Equal(t, "3:3-327551", inv.NaturalKey())
	assert.Equal(t, "3:3-327551", ComposeNaturalKey("3", "3-327551"))
}

func TestInvoiceAggregates(t *testing.T) {
	inv := NewInvoice(InvoiceHeader{})
	inv.AddLineItem(LineItem{LineTotal: 40, GrossProfit: 10})
	inv.AddLineItem(LineItem{LineTotal: 60, GrossProfit: 20})

	assert.Equal(t, 100.0, inv.ItemTotal())
	assert.Equal(t, 30.0, inv.GrossProfit())
}

func TestSuspiciousProfit(t *testing.T) {
	tests := []struct {
		name     string
		record   InvoiceRecord
		expected bool
	}{
		{"profit equals total", InvoiceRecord{TotalAmount: 100, GrossProfit: 100}, true},
		{"within a cent", InvoiceRecord{TotalAmount: 100, GrossProfit: 99.995}, true},
		{"healthy margin", InvoiceRecord{TotalAmount: 100, GrossProfit: 40}, false},
		{"zero total", InvoiceRecord{TotalAmount: 0, GrossProfit: 0}, false},
		{"negative total", InvoiceRecord{TotalAmount: -10, GrossProfit: -10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.record.SuspiciousProfit())
		})
	}
}
