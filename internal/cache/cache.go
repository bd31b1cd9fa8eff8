// Package cache memoizes report results by filter fingerprint. Caching is
// an optimization, never a correctness dependency: a miss or a backend
// error always falls through to full computation.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cache stores serialized report payloads under fingerprint keys.
type Cache interface {
	// Get returns the cached payload and whether it was found. Backend
	// errors are reported so the caller can log them, but callers must
	// treat any error as a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a payload best-effort.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// fingerprintSpace namespaces report fingerprints so the same filter
// string can never collide with unrelated uuid.NewSHA1 uses.
var fingerprintSpace = uuid.MustParse("9f2c1b44-7a5e-4c0d-9a3b-1d8e6f0a2c71")

// Fingerprint derives a deterministic cache key from every filter field
// of a report request. Field order is fixed; two requests differing in
// any field get different keys.
func Fingerprint(kind string, parts ...string) string {
	canonical := kind + "|" + strings.Join(parts, "|")
	return "report:" + uuid.NewSHA1(fingerprintSpace, []byte(canonical)).String()
}

// Noop is the fallback cache used when no backend is configured.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set discards the value.
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Memory is a TTL map cache for tests and single-process runs.
type Memory struct {
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{entries: make(map[string]memoryEntry), now: now}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.entries[key]
	if !ok || m.now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	return nil
}
