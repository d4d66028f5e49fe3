// Package reqid tags each request with a correlation id. The id rides in
// the request context for logger.WithCtx and goes back to the caller in
// X-Request-ID.
package reqid

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const Header = "X-Request-ID"

type key struct{}

var (
	// Printable ASCII, bounded so a caller cannot bloat every log line.
	wellFormed = regexp.MustCompile(`^[\x21-\x7e]{1,128}$`)
	// version-traceid-parentid-flags, per W3C Trace Context.
	traceparent = regexp.MustCompile(`^[0-9a-f]{2}-([0-9a-f]{32})-[0-9a-f]{16}-[0-9a-f]{2}$`)
)

// FromCtx is the id stored by Middleware, or "".
func FromCtx(ctx context.Context) string {
	id, _ := ctx.Value(key{}).(string)
	return id
}

// Middleware picks the id from X-Request-ID, then from the trace id of a
// traceparent header, and otherwise mints a time-ordered UUID.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := pick(r.Header)
			w.Header().Set(Header, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key{}, id)))
		})
	}
}

func pick(h http.Header) string {
	if id := h.Get(Header); wellFormed.MatchString(id) {
		return id
	}
	if m := traceparent.FindStringSubmatch(h.Get("traceparent")); m != nil {
		return m[1]
	}
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
