package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shashiranjanraj/orderly/pkg/cache"
	"github.com/shashiranjanraj/orderly/pkg/logger"
	"github.com/shashiranjanraj/orderly/pkg/metrics"
	"github.com/shashiranjanraj/orderly/pkg/response"
)

const (
	// IdempotencyHeader carries the client-chosen retry key.
	IdempotencyHeader = "Idempotency-Key"
	// ReplayedHeader marks a response served from the idempotency store.
	ReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKey = 255

	// reservationTTL bounds how long a crashed request can hold its key.
	reservationTTL = time.Minute
)

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Location    string `json:"location,omitempty"`
	Body        []byte `json:"body"`
	Pending     bool   `json:"pending,omitempty"`
}

// captureWriter tees the downstream response into a buffer.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Unwrap() http.ResponseWriter { return cw.ResponseWriter }

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	cw.body.Write(b)
	return cw.ResponseWriter.Write(b)
}

// Idempotent replays the stored response when a request repeats an
// Idempotency-Key already answered successfully on the same route. The key is
// reserved before the handler runs, so a concurrent request carrying the same
// key gets a 409 instead of executing twice. Only 2xx responses are stored; any
// other outcome releases the reservation so the request may be retried.
// Requests without the header, or a nil store, pass straight through.
func Idempotent(store cache.Store, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if store == nil || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKey {
				response.ValidationError(w, r, "One or more validation errors occurred.",
					map[string][]string{IdempotencyHeader: {"Idempotency-Key must not exceed 255 characters."}})
				return
			}

			ctx := r.Context()
			ck := cache.Key("idempotency", r.Method, r.URL.Path, key)

			hold := reservationTTL
			if ttl > 0 && ttl < hold {
				hold = ttl
			}
			reserved, err := store.SetNX(ctx, ck, pendingMarker, hold)
			if err != nil {
				logger.WithCtx(ctx).Warn("idempotency: reserve failed", "key", key, "error", err)
			}
			if err == nil && !reserved {
				if s, ok := lookupStored(ctx, store, ck); ok {
					metrics.IdempotentReplays.Inc()
					replay(w, s)
					return
				}
				response.Conflict(w, r, "A request with this Idempotency-Key is already being processed.")
				return
			}

			kept := false
			defer func() {
				if reserved && !kept {
					if err := store.Delete(context.WithoutCancel(ctx), ck); err != nil {
						logger.WithCtx(ctx).Warn("idempotency: release failed", "key", key, "error", err)
					}
				}
			}()

			cw := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)
			if cw.status < 200 || cw.status > 299 {
				return
			}

			raw, err := json.Marshal(storedResponse{
				Status:      cw.status,
				ContentType: cw.Header().Get("Content-Type"),
				Location:    cw.Header().Get("Location"),
				Body:        cw.body.Bytes(),
			})
			if err == nil {
				err = store.Set(context.WithoutCancel(ctx), ck, raw, ttl)
			}
			if err != nil {
				logger.WithCtx(ctx).Warn("idempotency: store failed", "key", key, "error", err)
				return
			}
			kept = true
		})
	}
}

// pendingMarker holds a key while its first request is still running.
var pendingMarker = []byte(`{"pending":true}`)

// lookupStored returns the finished response under ck. A pending
// reservation, a miss or an unreadable entry all report false.
func lookupStored(ctx context.Context, store cache.Store, ck string) (storedResponse, bool) {
	raw, err := store.Get(ctx, ck)
	if err != nil {
		return storedResponse{}, false
	}
	var s storedResponse
	if err := json.Unmarshal(raw, &s); err != nil || s.Pending {
		return storedResponse{}, false
	}
	return s, true
}

func replay(w http.ResponseWriter, s storedResponse) {
	h := w.Header()
	if s.ContentType != "" {
		h.Set("Content-Type", s.ContentType)
	}
	if s.Location != "" {
		h.Set("Location", s.Location)
	}
	h.Set(ReplayedHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}
