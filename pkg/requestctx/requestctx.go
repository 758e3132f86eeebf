// Package requestctx carries per-request metadata from the HTTP layer to the
// services through context.Context.
package requestctx

import "context"

type Meta struct {
	RequestID string
	ClientIP  string
}

type metaKey struct{}

func With(ctx context.Context, m Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

// From returns the metadata stored in ctx, or the zero Meta.
func From(ctx context.Context) Meta {
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}
