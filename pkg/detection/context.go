package detection

import "context"

type matchContextKey struct{}

func SetMatchToContext(ctx context.Context, m *Match) context.Context {
	return context.WithValue(ctx, matchContextKey{}, m)
}

// GetMatchFromContext returns the match stored by Middleware, or nil.
func GetMatchFromContext(ctx context.Context) *Match {
	m, _ := ctx.Value(matchContextKey{}).(*Match)
	return m
}
