package cli

import (
	"errors"
	"fmt"

	"github.com/example/gendbuntu/internal/core/record"
)

// describeError adds an operator hint to the error classes callers can act on.
func describeError(err error) error {
	if err == nil {
		return nil
	}

	var conflict *record.ConflictError
	switch {
	case record.IsValidation(err):
		return fmt.Errorf("%w (check the --field values)", err)
	case errors.As(err, &conflict) && conflict.Retryable:
		return fmt.Errorf("%w (run the command again)", err)
	case errors.Is(err, record.ErrNotFound):
		return fmt.Errorf("%w (use 'gendbuntu record list <kind>' to find it)", err)
	}
	return err
}
