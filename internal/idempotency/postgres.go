package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// uniqueViolation is the Postgres error code for a unique-constraint hit.
const uniqueViolation = "23505"

// Postgres implements Store with a unique-constraint insert as the
// reserve step, so the mutual exclusion holds across processes.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres idempotency store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Reserve implements Store. The insert either claims the key or collides
// with the row of a prior request; a collided row with no journal id yet
// means the other request is still running.
func (p *Postgres) Reserve(ctx context.Context, key, fingerprint string) (Reservation, error) {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, fingerprint, created_at)
		VALUES ($1, $2, now())`,
		key, fingerprint)
	if err == nil {
		return Reservation{Fresh: true}, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return Reservation{}, fmt.Errorf("reserving idempotency key: %w", err)
	}

	var rec model.IdempotencyRecord
	var journalID *int
	err = p.pool.QueryRow(ctx, `
		SELECT key, fingerprint, journal_id, created_at
		FROM idempotency_keys WHERE key = $1`,
		key).Scan(&rec.Key, &rec.RequestFingerprint, &journalID, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// The prior holder released between our insert and select.
		return Reservation{}, fmt.Errorf("key %q: %w", key, ErrInFlight)
	}
	if err != nil {
		return Reservation{}, fmt.Errorf("reading idempotency key: %w", err)
	}

	if rec.RequestFingerprint != fingerprint {
		return Reservation{}, fmt.Errorf("key %q: %w", key, ErrFingerprintMismatch)
	}
	if journalID == nil {
		return Reservation{}, fmt.Errorf("key %q: %w", key, ErrInFlight)
	}
	rec.JournalID = *journalID
	return Reservation{Record: rec}, nil
}

// Complete implements Store.
func (p *Postgres) Complete(ctx context.Context, key string, journalID int) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE idempotency_keys SET journal_id = $2 WHERE key = $1`,
		key, journalID)
	if err != nil {
		return fmt.Errorf("completing idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete: no reservation for key %q", key)
	}
	return nil
}

// Release implements Store. Only unfinished reservations are removed.
func (p *Postgres) Release(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `
		DELETE FROM idempotency_keys WHERE key = $1 AND journal_id IS NULL`,
		key)
	if err != nil {
		return fmt.Errorf("releasing idempotency key: %w", err)
	}
	return nil
}
