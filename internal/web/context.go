package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/csvxlsx/internal/core"
	"github.com/JonMunkholm/csvxlsx/internal/web/middleware"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx for the
// conversion history.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, core.ClientInfo{
		IPAddress: middleware.ClientIP(r), // already resolved by TrustedRealIP
		UserAgent: r.UserAgent(),
	})
}
