package ctxutil

import (
	"context"
	"testing"
)

func TestResolveActor(t *testing.T) {
	base := WithActor(context.Background(), "agent.martin")

	tests := []struct {
		name     string
		ctx      context.Context
		explicit string
		want     string
	}{
		{"explicit wins", base, "agent.dupont", "agent.dupont"},
		{"falls back to context", base, "", "agent.martin"},
		{"nobody", context.Background(), "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, got := ResolveActor(tt.ctx, tt.explicit)
			if got != tt.want {
				t.Errorf("expected actor %q, got %q", tt.want, got)
			}
			if ActorFromContext(ctx) != tt.want {
				t.Errorf("expected context to carry %q, got %q", tt.want, ActorFromContext(ctx))
			}
		})
	}
}
