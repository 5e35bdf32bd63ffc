package audit

import "context"

type requestIDKey struct{}

// WithRequestID stores the request id handlers stamp on incoming
// requests so downstream validation can tie audit records back to
// access logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the stored request id, or empty when
// the call did not originate from a request.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
