package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "huanbo/pkg/domain-errors"
	"huanbo/pkg/platform/httputil"
	"huanbo/pkg/requestcontext"
)

// Authenticator verifies an admin bearer credential and returns the subject it
// belongs to. Implementations live in internal/auth.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

const bearerPrefix = "Bearer "

// RequireAdmin rejects requests whose Authorization header does not carry a
// bearer token accepted by auth.
func RequireAdmin(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := BearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "admin request without bearer token",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				writeUnauthorized(w)
				return
			}

			subject, err := auth.Authenticate(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "admin token rejected",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
					"error", err,
				)
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithSubject(ctx, subject)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
}
