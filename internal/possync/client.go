// Package possync pulls invoices straight from the point-of-sale system
// and feeds them through the same normalize-and-reconcile path as file
// imports. It is the one genuinely concurrent stage of the engine.
package possync

import (
	"context"

	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// Order is one invoice as the POS system exposes it over its paged query
// API. The bridge serializes invoice dates as date-only strings.
type Order struct {
	SiteCode      string          `json:"site_code"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerCode  string          `json:"customer_code,omitempty"`
	Vehicle       string          `json:"vehicle,omitempty"`
	Mileage       int             `json:"mileage,omitempty"`
	InvoiceDate   domain.DateOnly `json:"invoice_date"`
	Salesperson   string          `json:"salesperson,omitempty"`
	TaxAmount     float64         `json:"tax_amount"`
	TotalAmount   float64         `json:"total_amount"`
	Lines         []OrderLine     `json:"lines"`
}

// OrderLine is one detail line of a POS order.
type OrderLine struct {
	ProductCode string  `json:"product_code"`
	Description string  `json:"description"`
	Adjustment  string  `json:"adjustment,omitempty"`
	Quantity    float64 `json:"quantity"`
	PartsCost   float64 `json:"parts_cost"`
	LaborCost   float64 `json:"labor_cost"`
	FETAmount   float64 `json:"fet_amount"`
	LineTotal   float64 `json:"line_total"`
	Cost        float64 `json:"cost"`
}

// Client is the upstream boundary: a paged query over POS orders. A fetch
// returning zero orders means the dataset is exhausted.
type Client interface {
	FetchOrders(ctx context.Context, offset, limit int) ([]Order, error)
}

// ToInvoice converts a POS order into the engine's invoice form. Line
// numbers are reassigned in order, same as the file path.
func (o Order) ToInvoice() *domain.Invoice {
	inv := domain.NewInvoice(domain.InvoiceHeader{
		InvoiceNumber: o.InvoiceNumber,
		CustomerName:  o.CustomerName,
		Vehicle:       o.Vehicle,
		Mileage:       o.Mileage,
		InvoiceDate:   o.InvoiceDate.Time,
		Salesperson:   o.Salesperson,
		TaxAmount:     o.TaxAmount,
		TotalAmount:   o.TotalAmount,
	})
	inv.SiteCode = o.SiteCode

	for _, line := range o.Lines {
		inv.AddLineItem(domain.LineItem{
			ProductCode: line.ProductCode,
			Description: line.Description,
			Adjustment:  line.Adjustment,
			Quantity:    line.Quantity,
			PartsCost:   line.PartsCost,
			LaborCost:   line.LaborCost,
			FETAmount:   line.FETAmount,
			LineTotal:   line.LineTotal,
			Cost:        line.Cost,
		})
	}

	return inv
}
