package auth

import (
	"context"

	"github.com/prn-tf/aurelius-catalogue/internal/policy"
)

// actorContextKey is the context key for the authenticated actor.
type actorContextKey struct{}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored in the context. Requests that
// passed the middleware without credentials carry the anonymous actor.
func ActorFromContext(ctx context.Context) policy.Actor {
	if actor, ok := ctx.Value(actorContextKey{}).(policy.Actor); ok {
		return actor
	}
	return policy.Anonymous()
}
