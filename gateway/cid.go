package gateway

import (
	"context"

	"github.com/rs/xid"
)

type cidKey struct{}

// NewCID mints a correlation id for one incoming request.
func NewCID() string {
	return xid.New().String()
}

// WithCID returns a context carrying the correlation id.
func WithCID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, cidKey{}, cid)
}

// CIDFromContext returns the correlation id carried by ctx, or "" when none
// was set.
func CIDFromContext(ctx context.Context) string {
	cid, _ := ctx.Value(cidKey{}).(string)
	return cid
}
