package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoicePosted    InvoiceStatus = "posted"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// InvoiceLine is one billable row on an invoice. LineAmount and TaxAmount
// are derived values; the calculator recomputes them and rejects lines
// whose caller-supplied figures disagree.
type InvoiceLine struct {
	LineNumber  int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	LineAmount  decimal.Decimal
	TaxCode     string
	TaxRate     decimal.Decimal // percent, e.g. 10 for 10%
	TaxAmount   decimal.Decimal
	AccountID   int // revenue or expense account the line posts to
}

// Invoice is a commercial document that posting turns into a Journal.
type Invoice struct {
	ID           int
	Number       string
	PartyID      int
	Date         time.Time
	Currency     string
	ExchangeRate decimal.Decimal
	Lines        []InvoiceLine
	Status       InvoiceStatus
	Subtotal     decimal.Decimal
	TaxTotal     decimal.Decimal
	GrandTotal   decimal.Decimal
	JournalID    int // 0 until posted
}
