// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

type actorKey struct{}

// WithActor returns a context carrying the acting user.
// The actor is opaque here: the authentication layer that calls in decides its format.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor from context, or empty string if not set.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// ResolveActor prefers an explicit actor and falls back to the context.
// The returned context always carries the resolved actor.
func ResolveActor(ctx context.Context, explicit string) (context.Context, string) {
	if explicit == "" {
		return ctx, ActorFromContext(ctx)
	}
	return WithActor(ctx, explicit), explicit
}
