package service

import "context"

type requestIDKey struct{}

// WithRequestID attaches the transport request id to ctx so log lines emitted
// after the request returns can still be correlated.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
