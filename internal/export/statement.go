// Package export renders financial statements and journals to CSV. The
// row layout is fixed so exported files diff cleanly between periods and
// round-trip back through ParseStatement.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/report"
)

// StatementHeader is the CSV header for statement exports.
const StatementHeader = "row_type,section,code,name,amount"

const (
	stmtFields = 5
	colRowType = 0
	colSection = 1
	colCode    = 2
	colName    = 3
	colAmount  = 4
)

// Row types. Ratio rows carry an empty amount when the ratio is
// undefined; "n/a" is a rendering concern left to consumers.
const (
	RowLine         = "line"
	RowSectionTotal = "section_total"
	RowTotal        = "total"
	RowRatio        = "ratio"
)

// WriteBalanceSheet renders a balance sheet: asset sections first, then
// liabilities, then equity, then grand totals and ratios.
func WriteBalanceSheet(w io.Writer, bs *report.BalanceSheet) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(StatementHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, s := range bs.Sections {
		if err := writeSection(cw, s); err != nil {
			return err
		}
	}

	totals := []struct {
		name   string
		amount decimal.Decimal
	}{
		{"total_assets", bs.TotalAssets},
		{"total_liabilities", bs.TotalLiabilities},
		{"total_equity", bs.TotalEquity},
		{"total_liabilities_and_equity", bs.TotalLiabilitiesAndEquity},
	}
	for _, t := range totals {
		if err := cw.Write(totalRow(t.name, t.amount)); err != nil {
			return fmt.Errorf("writing total %s: %w", t.name, err)
		}
	}

	ratios := []struct {
		name  string
		value *decimal.Decimal
	}{
		{"current_ratio", bs.Ratios.Current},
		{"quick_ratio", bs.Ratios.Quick},
		{"debt_to_equity", bs.Ratios.DebtToEquity},
		{"debt_to_assets", bs.Ratios.DebtToAssets},
		{"cash_ratio", bs.Ratios.CashRatio},
	}
	for _, r := range ratios {
		if err := cw.Write(ratioRow(r.name, r.value)); err != nil {
			return fmt.Errorf("writing ratio %s: %w", r.name, err)
		}
	}
	wc := bs.Ratios.WorkingCapital
	if err := cw.Write(ratioRow("working_capital", &wc)); err != nil {
		return fmt.Errorf("writing ratio working_capital: %w", err)
	}
	return cw.Error()
}

// WriteProfitLoss renders a P&L: income sections, cost of goods sold,
// expense sections, then totals and margins.
func WriteProfitLoss(w io.Writer, pl *report.ProfitLoss) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(StatementHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, s := range pl.Sections {
		if err := writeSection(cw, s); err != nil {
			return err
		}
	}

	totals := []struct {
		name   string
		amount decimal.Decimal
	}{
		{"total_income", pl.TotalIncome},
		{"total_expenses", pl.TotalExpenses},
		{"gross_profit", pl.GrossProfit},
		{"net_profit", pl.NetProfit},
	}
	for _, t := range totals {
		if err := cw.Write(totalRow(t.name, t.amount)); err != nil {
			return fmt.Errorf("writing total %s: %w", t.name, err)
		}
	}

	gm, nm := pl.GrossMargin, pl.NetMargin
	if err := cw.Write(ratioRow("gross_margin", &gm)); err != nil {
		return fmt.Errorf("writing ratio gross_margin: %w", err)
	}
	if err := cw.Write(ratioRow("net_margin", &nm)); err != nil {
		return fmt.Errorf("writing ratio net_margin: %w", err)
	}
	return cw.Error()
}

func writeSection(cw *csv.Writer, s report.Section) error {
	for _, l := range s.Lines {
		row := make([]string, stmtFields)
		row[colRowType] = RowLine
		row[colSection] = string(s.Bucket)
		row[colCode] = l.Code
		row[colName] = l.Name
		row[colAmount] = l.Amount.StringFixed(2)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing line %s: %w", l.Code, err)
		}
	}
	row := make([]string, stmtFields)
	row[colRowType] = RowSectionTotal
	row[colSection] = string(s.Bucket)
	row[colAmount] = s.Total.StringFixed(2)
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("writing section total %s: %w", s.Bucket, err)
	}
	return nil
}

func totalRow(name string, amount decimal.Decimal) []string {
	row := make([]string, stmtFields)
	row[colRowType] = RowTotal
	row[colName] = name
	row[colAmount] = amount.StringFixed(2)
	return row
}

func ratioRow(name string, value *decimal.Decimal) []string {
	row := make([]string, stmtFields)
	row[colRowType] = RowRatio
	row[colName] = name
	if value != nil {
		row[colAmount] = value.String()
	}
	return row
}

// Statement is the structured form recovered from an exported CSV.
type Statement struct {
	SectionTotals map[model.Bucket]decimal.Decimal
	Totals        map[string]decimal.Decimal
	// Ratios maps ratio name to value; nil means the ratio was undefined
	// at export time.
	Ratios map[string]*decimal.Decimal
	Lines  []model.ReportLine
}

// ParseStatement reads an exported statement CSV back into structured
// totals. Rendering then parsing recovers every section and grand total
// exactly.
func ParseStatement(r io.Reader) (*Statement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = stmtFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("statement CSV is empty")
	}

	st := &Statement{
		SectionTotals: make(map[model.Bucket]decimal.Decimal),
		Totals:        make(map[string]decimal.Decimal),
		Ratios:        make(map[string]*decimal.Decimal),
	}

	for i, rec := range records[1:] {
		rowNum := i + 2
		switch rec[colRowType] {
		case RowLine:
			amount, err := decimal.NewFromString(rec[colAmount])
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing amount %q: %w", rowNum, rec[colAmount], err)
			}
			st.Lines = append(st.Lines, model.ReportLine{
				Code:   rec[colCode],
				Name:   rec[colName],
				Bucket: model.Bucket(rec[colSection]),
				Amount: amount,
			})
		case RowSectionTotal:
			amount, err := decimal.NewFromString(rec[colAmount])
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing section total %q: %w", rowNum, rec[colAmount], err)
			}
			st.SectionTotals[model.Bucket(rec[colSection])] = amount
		case RowTotal:
			amount, err := decimal.NewFromString(rec[colAmount])
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing total %q: %w", rowNum, rec[colAmount], err)
			}
			st.Totals[rec[colName]] = amount
		case RowRatio:
			if rec[colAmount] == "" {
				st.Ratios[rec[colName]] = nil
				continue
			}
			value, err := decimal.NewFromString(rec[colAmount])
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing ratio %q: %w", rowNum, rec[colAmount], err)
			}
			st.Ratios[rec[colName]] = &value
		default:
			return nil, fmt.Errorf("row %d: unknown row type %q", rowNum, rec[colRowType])
		}
	}
	return st, nil
}
