package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "client"

// ClientInfo identifies who sent a request. It is recorded in the
// conversion history next to the batch metadata.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// ContextWithClient attaches info to ctx.
func ContextWithClient(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, ctxKeyClient, info)
}

// ClientFromContext extracts the ClientInfo stored by ContextWithClient.
func ClientFromContext(ctx context.Context) ClientInfo {
	if v, ok := ctx.Value(ctxKeyClient).(ClientInfo); ok {
		return v
	}
	return ClientInfo{}
}
