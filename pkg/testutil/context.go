package testutil

import (
	"net/http"
	"time"

	"huanbo/pkg/requestcontext"
)

// WithClient adds the client IP and User-Agent to the request context, as the
// metadata middleware would.
func WithClient(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}

// WithRequestTime pins the request time used by services.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
