package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateOnly is a custom type for handling date-only strings from JSON
type DateOnly struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for date-only strings
func (d *DateOnly) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	// Handle null/empty dates
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON implements custom marshaling for date-only strings
func (d DateOnly) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format("2006-01-02"))
}

// InvoiceHeader holds the identifying fields of one invoice as extracted
// from a report's "Invoice #" row. Optional fields stay zero-valued when
// the source row does not carry them.
type InvoiceHeader struct {
	InvoiceNumber string    `json:"invoice_number"`
	CustomerName  string    `json:"customer_name"`
	Vehicle       string    `json:"vehicle,omitempty"`
	Mileage       int       `json:"mileage,omitempty"`
	InvoiceDate   time.Time `json:"invoice_date,omitzero"`
	Salesperson   string    `json:"salesperson,omitempty"`
	TaxAmount     float64   `json:"tax_amount"`
	TotalAmount   float64   `json:"total_amount"`
}

// LineItem represents a single detail line of an invoice. LineNumber is
// assigned by the assembler in emission order, never taken from the source.
type LineItem struct {
	LineNumber  int     `json:"line_number"`
	ProductCode string  `json:"product_code"`
	Description string  `json:"description"`
	Adjustment  string  `json:"adjustment,omitempty"`
	Quantity    float64 `json:"quantity"`
	PartsCost   float64 `json:"parts_cost"`
	LaborCost   float64 `json:"labor_cost"`
	FETAmount   float64 `json:"fet_amount"`
	LineTotal   float64 `json:"line_total"`
	Cost        float64 `json:"cost"`
	UnitCost    float64 `json:"unit_cost"`
	MarginPct   float64 `json:"margin_pct"`
	GrossProfit float64 `json:"gross_profit"`
	Category    string  `json:"category,omitempty"`
}

// Invoice is one assembled invoice: a header plus its detail lines in
// source order.
type Invoice struct {
	SiteCode string        `json:"site_code"`
	Header   InvoiceHeader `json:"header"`
	Items    []LineItem    `json:"items"`
}

// NewInvoice creates an invoice for the given header with an empty item list.
func NewInvoice(header InvoiceHeader) *Invoice {
	return &Invoice{
		Header: header,
		Items:  make([]LineItem, 0),
	}
}

// AddLineItem appends an item and assigns it the next 1-based line number.
func (i *Invoice) AddLineItem(item LineItem) {
	item.LineNumber = len(i.Items) + 1
	i.Items = append(i.Items, item)
}

// ItemTotal sums the line totals of all items.
func (i *Invoice) ItemTotal() float64 {
	var total float64
	for _, item := range i.Items {
		total += item.LineTotal
	}
	return total
}

// GrossProfit sums the gross profit of all items.
func (i *Invoice) GrossProfit() float64 {
	var profit float64
	for _, item := range i.Items {
		profit += item.GrossProfit
	}
	return profit
}

// NaturalKey composes the cross-import dedup key. Invoice numbers are reused
// across sites, so the site code is part of the identity.
func (i *Invoice) NaturalKey() string {
	return ComposeNaturalKey(i.SiteCode, i.Header.InvoiceNumber)
}

// ComposeNaturalKey builds the composite key used to deduplicate invoices
// written by the file-import and live-sync paths.
func ComposeNaturalKey(siteCode, invoiceNumber string) string {
	return fmt.Sprintf("%s:%s", siteCode, invoiceNumber)
}

// InvoiceRecord is the reconciled, persisted form of an invoice.
type InvoiceRecord struct {
	ID            string     `json:"id"`
	SiteCode      string     `json:"site_code"`
	InvoiceNumber string     `json:"invoice_number"`
	NaturalKey    string     `json:"natural_key"`
	CustomerID    string     `json:"customer_id,omitempty"`
	CustomerName  string     `json:"customer_name"`
	Vehicle       string     `json:"vehicle,omitempty"`
	Mileage       int        `json:"mileage,omitempty"`
	InvoiceDate   time.Time  `json:"invoice_date,omitzero"`
	Salesperson   string     `json:"salesperson,omitempty"`
	TaxAmount     float64    `json:"tax_amount"`
	TotalAmount   float64    `json:"total_amount"`
	GrossProfit   float64    `json:"gross_profit"`
	ImportBatchID string     `json:"import_batch_id,omitempty"`
	Items         []LineItem `json:"items,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SuspiciousProfit reports whether the stored financials look like cost data
// never arrived: gross profit equal to revenue, within a cent, on a positive
// total. Such records are eligible for forced re-sync.
func (r *InvoiceRecord) SuspiciousProfit() bool {
	if r.TotalAmount <= 0 {
		return false
	}
	diff := r.GrossProfit - r.TotalAmount
	if diff < 0 {
		diff = -diff
	}
	return diff <= 0.01
}
