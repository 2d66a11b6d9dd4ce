package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// GetActor returns the caller identity recorded on ledger entries. Requests
// without one are attributed to the system reconciler by the ledger.
func GetActor(ctx context.Context) string {
	if val, ok := ctx.Value(actorKey{}).(string); ok {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get("x-user-id"); len(val) > 0 && val[0] != "unknown" {
			return val[0]
		}
	}
	return ""
}

type actorKey struct{}

// WithActor attaches actor to ctx for in-process callers.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}
