package audit

import "context"

type contextKey struct{}

// Meta carries request-level attribution that belongs on audit entries but
// not in service signatures.
type Meta struct {
	IPAddress string
	UserAgent string
}

// WithMeta attaches request metadata for downstream audit records.
func WithMeta(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, contextKey{}, meta)
}

// MetaFromContext returns the attached metadata, or a zero Meta.
func MetaFromContext(ctx context.Context) Meta {
	if meta, ok := ctx.Value(contextKey{}).(Meta); ok {
		return meta
	}
	return Meta{}
}
