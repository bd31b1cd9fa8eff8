// Package audit emits fire-and-forget audit events. A failing sink must
// never fail the operation being audited: callers go through Fire, which
// warns and continues.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event is one audit record.
type Event struct {
	Timestamp time.Time
	Actor     string
	Action    string // e.g. "post_invoice", "report_generation"
	Details   string
	Reference string // journal number, report fingerprint, etc.
}

// Sink records audit events.
type Sink interface {
	Record(ctx context.Context, e Event) error
}

// Fire records an event and swallows any sink failure with a warning.
func Fire(ctx context.Context, sink Sink, log *slog.Logger, e Event) {
	if sink == nil {
		return
	}
	if err := sink.Record(ctx, e); err != nil {
		log.Warn("audit sink failed", "action", e.Action, "error", err)
	}
}

// SlogSink writes audit events to a structured logger.
type SlogSink struct {
	Log *slog.Logger
}

// Record implements Sink.
func (s SlogSink) Record(_ context.Context, e Event) error {
	s.Log.Info("audit",
		"timestamp", e.Timestamp.Format(time.RFC3339),
		"actor", e.Actor,
		"action", e.Action,
		"details", e.Details,
		"reference", e.Reference,
	)
	return nil
}

// Memory collects events for tests.
type Memory struct {
	Events []Event
	Err    error // injected failure
}

// Record implements Sink.
func (m *Memory) Record(_ context.Context, e Event) error {
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, e)
	return nil
}
