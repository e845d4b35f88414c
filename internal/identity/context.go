package identity

import "context"

type ctxKey struct{}

// WithUserID returns a context carrying an already resolved user id.
func WithUserID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// UserIDFromContext returns the id stored by WithUserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Resolve prefers an id carried by ctx and falls back to the provider.
func (p *Provider) Resolve(ctx context.Context) (string, error) {
	if id, ok := UserIDFromContext(ctx); ok {
		return id, nil
	}
	return p.GetUserID(ctx)
}
