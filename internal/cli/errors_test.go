package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/example/gendbuntu/internal/core/record"
)

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHint string
	}{
		{"validation", &record.ValidationError{Fields: []string{"type"}, Reason: "required"}, "--field"},
		{"retryable conflict", fmt.Errorf("failed to create: %w", &record.ConflictError{Reason: "busy", Retryable: true}), "again"},
		{"not found", record.NotFoundError(record.KindIntervention, "x"), "record list"},
		{"internal", errors.New("disk full"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeError(tt.err)
			if !errors.Is(got, tt.err) {
				t.Errorf("expected %v to wrap %v", got, tt.err)
			}
			if tt.wantHint == "" {
				if got.Error() != tt.err.Error() {
					t.Errorf("expected unchanged error, got %q", got)
				}
				return
			}
			if !strings.Contains(got.Error(), tt.wantHint) {
				t.Errorf("expected hint %q in %q", tt.wantHint, got)
			}
		})
	}

	if describeError(nil) != nil {
		t.Error("expected nil for nil")
	}
}

func TestDescribeError_PermanentConflictHasNoHint(t *testing.T) {
	err := &record.ConflictError{Reason: "legal PV already linked"}
	if got := describeError(err); got.Error() != err.Error() {
		t.Errorf("expected unchanged error, got %q", got)
	}
}
