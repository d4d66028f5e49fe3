package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/shashiranjanraj/orderly/pkg/logger"
	"github.com/shashiranjanraj/orderly/pkg/metrics"
	"github.com/shashiranjanraj/orderly/pkg/response"
)

// Recovery answers a panicking handler with the opaque 500 problem. The
// panic value and stack only reach the log. http.ErrAbortHandler is
// re-raised so net/http can drop the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			switch v {
			case nil:
				return
			case http.ErrAbortHandler:
				panic(v)
			}
			route := metrics.Route(r)
			metrics.Panics.WithLabelValues(route).Inc()
			logger.WithCtx(r.Context()).Error("handler panicked",
				slog.Any("panic", v),
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.String("stack", string(debug.Stack())),
			)
			response.InternalError(w, r)
		}()
		next.ServeHTTP(w, r)
	})
}
