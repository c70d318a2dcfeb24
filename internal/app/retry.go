package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/gendbuntu/internal/core/record"
)

// DefaultMaxAttempts bounds identifier allocation retries when none is configured.
const DefaultMaxAttempts = 3

// retryIdentifierConflicts runs fn until it stops failing with a retryable
// conflict. Each attempt allocates a fresh identifier. When attempts run out
// the caller gets a retryable conflict so it can resubmit later.
func retryIdentifierConflicts(ctx context.Context, logger *slog.Logger, kind record.Kind, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if !record.IsRetryableConflict(err) {
			return err
		}
		logger.Warn("identifier conflict",
			"kind", kind,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return &record.ConflictError{
		Reason:    fmt.Sprintf("could not allocate a unique %s identifier after %d attempts", kind, attempts),
		Retryable: true,
	}
}
