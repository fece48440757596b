package handlers

import "context"

type ctxKey int

const (
	ctxActorID ctxKey = iota
	ctxTenantID
)

// WithActorID stores the authenticated actor's id on the context.
func WithActorID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, ctxActorID, id)
}

// ActorIDFromContext returns the acting user's id, or false when the request
// carries none.
func ActorIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(ctxActorID).(uint)
	return id, ok && id != 0
}

// WithTenantID stores the resolved tenant on the context.
func WithTenantID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, ctxTenantID, id)
}

// TenantIDFromContext returns the request's tenant scope, or false when the
// request carries none.
func TenantIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(ctxTenantID).(uint)
	return id, ok && id != 0
}
