package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// Memory is an in-process Store. Each key owns a one-slot semaphore, so a
// concurrent duplicate blocks until the first request completes or
// releases, then sees its outcome.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	now     func() time.Time
}

type memEntry struct {
	sem         chan struct{} // one-slot, held between Reserve and Complete/Release
	fingerprint string
	journalID   int
	done        bool
	createdAt   time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{entries: make(map[string]*memEntry), now: now}
}

// Reserve implements Store.
func (m *Memory) Reserve(ctx context.Context, key, fingerprint string) (Reservation, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &memEntry{sem: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	m.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return Reservation{}, ctx.Err()
	}

	if e.done {
		// Prior request finished; hand back its outcome.
		<-e.sem
		if e.fingerprint != fingerprint {
			return Reservation{}, fmt.Errorf("key %q: %w", key, ErrFingerprintMismatch)
		}
		return Reservation{Record: model.IdempotencyRecord{
			Key:                key,
			RequestFingerprint: e.fingerprint,
			JournalID:          e.journalID,
			CreatedAt:          e.createdAt,
		}}, nil
	}

	e.fingerprint = fingerprint
	e.createdAt = m.now()
	return Reservation{Fresh: true}, nil
}

// Complete implements Store.
func (m *Memory) Complete(_ context.Context, key string, journalID int) error {
	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("complete: no reservation for key %q", key)
	}
	e.journalID = journalID
	e.done = true
	<-e.sem
	return nil
}

// Release implements Store.
func (m *Memory) Release(_ context.Context, key string) error {
	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("release: no reservation for key %q", key)
	}
	e.fingerprint = ""
	<-e.sem
	return nil
}
