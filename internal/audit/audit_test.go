package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFireSwallowsSinkFailure(t *testing.T) {
	sink := &Memory{Err: errors.New("sink down")}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Must not panic or propagate.
	Fire(context.Background(), sink, log, Event{Action: "post_invoice"})
	assert.Empty(t, sink.Events)
}

func TestFireNilSink(t *testing.T) {
	Fire(context.Background(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Event{Action: "noop"})
}

func TestCSVLogAppendAndRead(t *testing.T) {
	dir := t.TempDir()
	c := NewCSVLog(dir)
	ctx := context.Background()

	e1 := Event{
		Timestamp: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Actor:     "system",
		Action:    "report_generation",
		Details:   "balance sheet as of 2025-05-31",
		Reference: "report:abc",
	}
	e2 := Event{
		Timestamp: time.Date(2025, 6, 1, 9, 5, 0, 0, time.UTC),
		Actor:     "system",
		Action:    "post_invoice",
		Details:   "invoice INV-001",
		Reference: "JRN-2025-0001",
	}
	require.NoError(t, c.Record(ctx, e1))
	require.NoError(t, c.Record(ctx, e2))

	events, err := c.Read()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, e1, events[0])
	assert.Equal(t, e2, events[1])
}

func TestCSVLogReadMissingFile(t *testing.T) {
	c := NewCSVLog(t.TempDir())
	events, err := c.Read()
	require.NoError(t, err)
	assert.Nil(t, events)
}
