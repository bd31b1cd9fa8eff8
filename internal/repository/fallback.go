package repository

import (
	"context"
	"fmt"
	"log/slog"
)

// Strategy is one attempt in an ordered fallback chain.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// TryInOrder runs strategies sequentially and returns the first success.
// A strategy is only attempted after the previous one errored; empty
// results are successes and stop the chain. When every strategy fails the
// last error is wrapped in ErrDataUnavailable. Context cancellation stops
// the chain immediately so a deadline never burns through all fallbacks.
func TryInOrder[T any](ctx context.Context, log *slog.Logger, strategies []Strategy[T]) (T, error) {
	var zero T
	var lastErr error

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := s.Run(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Debug("fallback strategy failed", "strategy", s.Name, "error", err)
	}

	return zero, fmt.Errorf("%w: %w", ErrDataUnavailable, lastErr)
}
