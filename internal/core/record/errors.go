package record

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is matched by every ConflictError.
var ErrConflict = errors.New("record conflict")

// ValidationError reports missing or malformed input. No write is attempted.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed (%s): %s", strings.Join(e.Fields, ", "), e.Reason)
}

// ConflictError reports a uniqueness violation.
// Retryable conflicts come from identifier races and may succeed when resubmitted.
type ConflictError struct {
	Reason    string
	Retryable bool
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// Is makes errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NotFoundError builds an error matching ErrNotFound for the given record.
func NotFoundError(kind Kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsRetryableConflict reports whether err is a conflict worth resubmitting.
func IsRetryableConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c) && c.Retryable
}

// SideEffectFailure describes a rendering, notification or linking step that failed
// after the primary record was persisted. It is recorded, never returned by create.
type SideEffectFailure struct {
	Effect   string
	Kind     Kind
	RecordID string
	Err      error
}

func (f *SideEffectFailure) Error() string {
	return fmt.Sprintf("%s failed for %s %s: %v", f.Effect, f.Kind, f.RecordID, f.Err)
}

func (f *SideEffectFailure) Unwrap() error { return f.Err }
