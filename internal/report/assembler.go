package report

import (
	"log"
	"strings"

	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// AssemblerStats counts what the assembler saw during one pass. The dropped
// header count surfaces classification gaps that would otherwise vanish
// silently.
type AssemblerStats struct {
	RowsConsumed   int
	InvoicesClosed int
	ItemsAppended  int
	OrphanItems    int
	DroppedHeaders int
}

// Assembler is a single-pass state machine that consumes classified rows in
// file order and emits complete invoices. It has two states: no open
// invoice, or one open invoice accumulating items. Row order encodes record
// boundaries, so one assembler must see one file's rows sequentially.
type Assembler struct {
	open     *domain.Invoice
	invoices []*domain.Invoice
	stats    AssemblerStats
}

// NewAssembler returns an assembler in the no-open-invoice state.
func NewAssembler() *Assembler {
	return &Assembler{
		invoices: make([]*domain.Invoice, 0),
	}
}

// Consume feeds one tokenized row through the state machine.
func (a *Assembler) Consume(fields []string) {
	a.stats.RowsConsumed++
	class := Classify(fields)

	switch class.Kind {
	case KindInvoiceStart:
		a.consumeStart(fields)
	case KindLineItem:
		a.appendItem(DecodeStandardLineItem(fields))
	case KindLineItemEmbedded:
		// Extraction must happen before the boundary is honored: when a
		// footer row carries the invoice's final item, closing first
		// would drop it.
		a.appendItem(DecodeEmbeddedLineItem(fields))
	case KindInvoiceEnd, KindIgnore:
		// No data to extract.
	}

	if class.EndsInvoice {
		a.closeOpen()
	}
}

// Finish closes any invoice still open at end of input and returns the
// emitted invoices in file order. Some exports omit the final "Totals for
// Invoice" row, so an implicit close is required.
func (a *Assembler) Finish() []*domain.Invoice {
	a.closeOpen()
	return a.invoices
}

// Stats returns the counters accumulated so far.
func (a *Assembler) Stats() AssemblerStats {
	return a.stats
}

func (a *Assembler) consumeStart(fields []string) {
	header, ok := ExtractHeader(fields)
	if !ok {
		// A start row without a recoverable invoice number cannot open
		// an invoice. The current open invoice, if any, stays open; its
		// remaining items may still arrive.
		a.stats.DroppedHeaders++
		log.Printf("report: invoice start row without invoice number, skipping (row %d)", a.stats.RowsConsumed)
		return
	}
	a.closeOpen()
	a.open = domain.NewInvoice(header)
	a.open.SiteCode = siteCodeFromInvoiceNumber(header.InvoiceNumber)
}

func (a *Assembler) appendItem(item domain.LineItem) {
	if a.open == nil {
		a.stats.OrphanItems++
		return
	}
	a.open.AddLineItem(item)
	a.stats.ItemsAppended++
}

func (a *Assembler) closeOpen() {
	if a.open == nil {
		return
	}
	a.invoices = append(a.invoices, a.open)
	a.open = nil
	a.stats.InvoicesClosed++
}

// siteCodeFromInvoiceNumber recovers the site code from the invoice number
// prefix ("3-327551" was written at site "3"). The export carries no
// separate site column on the invoice header row.
func siteCodeFromInvoiceNumber(invoiceNumber string) string {
	if idx := strings.Index(invoiceNumber, "-"); idx > 0 {
		return invoiceNumber[:idx]
	}
	return ""
}
