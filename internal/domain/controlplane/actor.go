package controlplane

import (
	"context"
	"os/user"
)

type actorKey struct{}

// WithActor attributes operations run with ctx to name
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

// ActorFrom returns the actor attached to ctx, if any
func ActorFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(actorKey{}).(string)
	return name, ok && name != ""
}

func (p *Plane) actor(ctx context.Context) string {
	if name, ok := ActorFrom(ctx); ok {
		return name
	}
	return p.defaultActor
}

func defaultActor(configured string) string {
	if configured != "" {
		return configured
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}
