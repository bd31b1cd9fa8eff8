package coa

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

const (
	numFields  = 9
	colID      = 0
	colCode    = 1
	colName    = 2
	colType    = 3
	colParent  = 4
	colIsGroup = 5
	colLeft    = 6
	colRight   = 7
	colCcy     = 8
)

// ReadAccounts reads chart-of-accounts.csv.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes chart-of-accounts.csv.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"account_id", "code", "name", "type", "parent_id", "is_group", "left_index", "right_index", "currency"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colID] = strconv.Itoa(acct.ID)
	row[colCode] = acct.Code
	row[colName] = acct.Name
	row[colType] = string(acct.Type)
	if acct.ParentID != 0 {
		row[colParent] = strconv.Itoa(acct.ParentID)
	}
	if acct.IsGroup {
		row[colIsGroup] = "true"
	}
	if acct.LeftIndex != 0 {
		row[colLeft] = strconv.Itoa(acct.LeftIndex)
	}
	if acct.RightIndex != 0 {
		row[colRight] = strconv.Itoa(acct.RightIndex)
	}
	row[colCcy] = acct.Currency
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	id, err := strconv.Atoi(record[colID])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing account_id %q: %w", record[colID], err)
	}

	acctType := model.AccountType(record[colType])
	if !acctType.Valid() {
		return model.Account{}, fmt.Errorf("unknown account type %q", record[colType])
	}

	acct := model.Account{
		ID:       id,
		Code:     record[colCode],
		Name:     record[colName],
		Type:     acctType,
		IsGroup:  record[colIsGroup] == "true",
		Currency: record[colCcy],
	}

	if record[colParent] != "" {
		acct.ParentID, err = strconv.Atoi(record[colParent])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing parent_id %q: %w", record[colParent], err)
		}
	}
	if record[colLeft] != "" {
		acct.LeftIndex, err = strconv.Atoi(record[colLeft])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing left_index %q: %w", record[colLeft], err)
		}
	}
	if record[colRight] != "" {
		acct.RightIndex, err = strconv.Atoi(record[colRight])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing right_index %q: %w", record[colRight], err)
		}
	}

	return acct, nil
}
