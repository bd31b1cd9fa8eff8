// Package id formats and parses document numbers and derives request
// fingerprints.
package id

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const journalPrefix = "JRN"

// requestSpace namespaces posting-request fingerprints.
var requestSpace = uuid.MustParse("4b1f6a9e-3d2c-48b7-8f50-c6a91e07d4b2")

// FormatJournalNumber returns a journal number like "JRN-2025-0001".
func FormatJournalNumber(year, seq int) string {
	return fmt.Sprintf("%s-%04d-%04d", journalPrefix, year, seq)
}

// ParseJournalNumber parses "JRN-2025-0001" into year and sequence.
func ParseJournalNumber(number string) (year, seq int, err error) {
	parts := strings.SplitN(number, "-", 3)
	if len(parts) != 3 || parts[0] != journalPrefix {
		return 0, 0, fmt.Errorf("invalid journal number format: %q", number)
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year in journal number %q: %w", number, err)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sequence in journal number %q: %w", number, err)
	}

	return year, seq, nil
}

// RequestFingerprint derives a stable fingerprint from the fields that
// define a posting request. The same invoice and key always hash to the
// same value, so an idempotency store can detect key reuse across
// different request bodies.
func RequestFingerprint(invoiceID int, invoiceNumber, grandTotal, currency string) string {
	canonical := fmt.Sprintf("%d|%s|%s|%s", invoiceID, invoiceNumber, grandTotal, currency)
	return uuid.NewSHA1(requestSpace, []byte(canonical)).String()
}
