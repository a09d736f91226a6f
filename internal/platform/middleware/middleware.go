// Package middleware holds the HTTP middleware chain: request identity and
// admin surface protection.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	dErrors "enrollgate/pkg/domain-errors"
	"enrollgate/pkg/platform/httputil"
	"enrollgate/pkg/requestcontext"
)

// RequestIDHeader carries the caller-supplied correlation ID. One is
// generated when absent so every attempt is traceable end to end.
const RequestIDHeader = "X-Request-ID"

// RequestID stamps each request with an ID and a request-scoped timestamp,
// and echoes the ID back to the caller.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdminToken guards the admin surface with a static bearer token.
func RequireAdminToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := bearerToken(r)
			if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				if logger != nil {
					logger.WarnContext(r.Context(), "admin request rejected",
						"request_id", requestcontext.RequestID(r.Context()),
						"path", r.URL.Path,
					)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
