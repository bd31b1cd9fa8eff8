package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// JournalHeader is the CSV header for journal exports.
const JournalHeader = "journal_number,date,account_id,description,debit,credit,currency,status,reference"

const (
	journalFields = 9
	dateFormat    = "2006-01-02"
	colJrnNumber  = 0
	colJrnDate    = 1
	colJrnAcct    = 2
	colJrnDesc    = 3
	colJrnDebit   = 4
	colJrnCredit  = 5
	colJrnCcy     = 6
	colJrnStatus  = 7
	colJrnRef     = 8
)

// WriteJournals renders journals one CSV row per line, header included.
func WriteJournals(w io.Writer, journals []model.Journal) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(JournalHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, j := range journals {
		for _, l := range j.Lines {
			if err := cw.Write(marshalJournalLine(j, l)); err != nil {
				return fmt.Errorf("writing journal %s: %w", j.Number, err)
			}
		}
	}
	return cw.Error()
}

func marshalJournalLine(j model.Journal, l model.JournalLine) []string {
	row := make([]string, journalFields)
	row[colJrnNumber] = j.Number
	row[colJrnDate] = j.Date.Format(dateFormat)
	row[colJrnAcct] = strconv.Itoa(l.AccountID)
	row[colJrnDesc] = l.Description
	if !l.Debit.IsZero() {
		row[colJrnDebit] = l.Debit.StringFixed(2)
	}
	if !l.Credit.IsZero() {
		row[colJrnCredit] = l.Credit.StringFixed(2)
	}
	row[colJrnCcy] = j.Currency
	row[colJrnStatus] = string(j.Status)
	row[colJrnRef] = j.Reference
	return row
}

// ReadJournalLines reads an exported journal CSV back into lines grouped
// by journal number, preserving file order.
func ReadJournalLines(r io.Reader) ([]model.Journal, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = journalFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var journals []model.Journal
	byNumber := make(map[string]int)
	for i, rec := range records[1:] {
		rowNum := i + 2

		date, err := time.Parse(dateFormat, rec[colJrnDate])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", rowNum, rec[colJrnDate], err)
		}
		accountID, err := strconv.Atoi(rec[colJrnAcct])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing account_id %q: %w", rowNum, rec[colJrnAcct], err)
		}

		var debit, credit decimal.Decimal
		if rec[colJrnDebit] != "" {
			debit, err = decimal.NewFromString(rec[colJrnDebit])
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing debit %q: %w", rowNum, rec[colJrnDebit], err)
			}
		}
		if rec[colJrnCredit] != "" {
			credit, err = decimal.NewFromString(rec[colJrnCredit])
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing credit %q: %w", rowNum, rec[colJrnCredit], err)
			}
		}

		line := model.JournalLine{
			AccountID:   accountID,
			Debit:       debit,
			Credit:      credit,
			Description: rec[colJrnDesc],
		}

		number := rec[colJrnNumber]
		if idx, ok := byNumber[number]; ok {
			j := &journals[idx]
			j.Lines = append(j.Lines, line)
			j.TotalDebit = j.TotalDebit.Add(debit)
			j.TotalCredit = j.TotalCredit.Add(credit)
			continue
		}
		byNumber[number] = len(journals)
		journals = append(journals, model.Journal{
			Number:      number,
			Date:        date,
			Currency:    rec[colJrnCcy],
			Lines:       []model.JournalLine{line},
			TotalDebit:  debit,
			TotalCredit: credit,
			Status:      model.JournalStatus(rec[colJrnStatus]),
			Reference:   rec[colJrnRef],
		})
	}
	return journals, nil
}
