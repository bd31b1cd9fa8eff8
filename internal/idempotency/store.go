// Package idempotency guarantees at-most-one journal per posting request.
// The store's Reserve call is the atomic check-then-act step: it either
// claims the key for this request, returns the completed prior outcome,
// or reports a conflict. Posting never builds a journal without holding a
// fresh reservation.
package idempotency

import (
	"context"
	"errors"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// ErrFingerprintMismatch means the key was reused for a different request
// body, which is a caller bug rather than a retry.
var ErrFingerprintMismatch = errors.New("idempotency key reused with a different request")

// ErrInFlight means another request holds the key and has not completed.
var ErrInFlight = errors.New("request with this idempotency key is in flight")

// Reservation is the outcome of Reserve. When Fresh is true the caller
// owns the key and must call Complete or Release. When false, Record
// holds the prior outcome to return verbatim.
type Reservation struct {
	Fresh  bool
	Record model.IdempotencyRecord
}

// Store serializes posting requests per idempotency key.
type Store interface {
	// Reserve atomically claims key for a request with the given
	// fingerprint. Implementations must serialize concurrent calls with
	// the same key.
	Reserve(ctx context.Context, key, fingerprint string) (Reservation, error)
	// Complete records the journal created under a fresh reservation and
	// releases the key for readers.
	Complete(ctx context.Context, key string, journalID int) error
	// Release abandons a fresh reservation after a failure so a retry can
	// run the operation again.
	Release(ctx context.Context, key string) error
}
