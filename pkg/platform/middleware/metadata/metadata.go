// Package metadata captures request-scoped metadata into the context so
// services can read it through pkg/requestcontext.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"leadgate/pkg/requestcontext"
)

// Capture stamps each request with a request id, the request time, and client
// IP / User-Agent. Runs after chi's RequestID and RealIP middlewares and
// prefers their values when present.
func Capture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		reqID := middleware.GetReqID(ctx)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, reqID)
		ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
		ctx = requestcontext.WithClientMetadata(ctx, clientIP(r), r.UserAgent())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP resolves the originating client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
