package invoice

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// Header is the CSV header for invoice intake files. One row per invoice
// line; consecutive rows with the same invoice number form one invoice.
const Header = "invoice_number,party_id,date,currency,line_number,description,quantity,unit_price,tax_code,account_id"

const (
	numFields  = 10
	dateFormat = "2006-01-02"
	colNumber  = 0
	colParty   = 1
	colDate    = 2
	colCcy     = 3
	colLineNum = 4
	colDesc    = 5
	colQty     = 6
	colPrice   = 7
	colTaxCode = 8
	colAcctID  = 9
)

// ReadInvoices reads draft invoices from an intake CSV. Amount and tax
// fields are intentionally absent from the format: the calculator derives
// them, so an intake file can never smuggle in pre-computed totals.
func ReadInvoices(r io.Reader) ([]model.Invoice, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading invoice CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var invoices []model.Invoice
	byNumber := make(map[string]int)
	for i, rec := range records[1:] {
		rowNum := i + 2

		line, err := unmarshalLine(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		number := rec[colNumber]
		if idx, ok := byNumber[number]; ok {
			invoices[idx].Lines = append(invoices[idx].Lines, line)
			continue
		}

		partyID, err := strconv.Atoi(rec[colParty])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing party_id %q: %w", rowNum, rec[colParty], err)
		}
		date, err := time.Parse(dateFormat, rec[colDate])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", rowNum, rec[colDate], err)
		}

		byNumber[number] = len(invoices)
		invoices = append(invoices, model.Invoice{
			Number:   number,
			PartyID:  partyID,
			Date:     date,
			Currency: rec[colCcy],
			Status:   model.InvoiceDraft,
			Lines:    []model.InvoiceLine{line},
		})
	}
	return invoices, nil
}

func unmarshalLine(rec []string) (model.InvoiceLine, error) {
	lineNumber, err := strconv.Atoi(rec[colLineNum])
	if err != nil {
		return model.InvoiceLine{}, fmt.Errorf("parsing line_number %q: %w", rec[colLineNum], err)
	}
	quantity, err := decimal.NewFromString(rec[colQty])
	if err != nil {
		return model.InvoiceLine{}, fmt.Errorf("parsing quantity %q: %w", rec[colQty], err)
	}
	unitPrice, err := decimal.NewFromString(rec[colPrice])
	if err != nil {
		return model.InvoiceLine{}, fmt.Errorf("parsing unit_price %q: %w", rec[colPrice], err)
	}
	accountID, err := strconv.Atoi(rec[colAcctID])
	if err != nil {
		return model.InvoiceLine{}, fmt.Errorf("parsing account_id %q: %w", rec[colAcctID], err)
	}

	return model.InvoiceLine{
		LineNumber:  lineNumber,
		Description: rec[colDesc],
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TaxCode:     rec[colTaxCode],
		AccountID:   accountID,
	}, nil
}
