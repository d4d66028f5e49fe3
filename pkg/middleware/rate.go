// Package middleware provides the HTTP middleware wired by the kernel.
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/shashiranjanraj/orderly/pkg/response"
)

// maxTrackedClients bounds limiter memory; the least recently seen client
// is forgotten first.
const maxTrackedClients = 10000

// bucket tracks a fixed-window request count for one client.
type bucket struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

func (b *bucket) allow(max int, window time.Duration, now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.After(b.resetAt) {
		b.count = 0
		b.resetAt = now.Add(window)
	}

	b.count++
	return b.count <= max, b.resetAt.Sub(now)
}

// RateLimit limits each client IP to max requests per window. A max of zero
// or less disables limiting.
func RateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	buckets, _ := lru.New[string, *bucket](maxTrackedClients)
	var mu sync.Mutex

	get := func(ip string) *bucket {
		mu.Lock()
		defer mu.Unlock()
		if b, ok := buckets.Get(ip); ok {
			return b
		}
		b := &bucket{}
		buckets.Add(ip, b)
		return b
	}

	return func(next http.Handler) http.Handler {
		if max <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := get(clientIP(r)).allow(max, window, time.Now())
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
				response.JSON(w, http.StatusTooManyRequests, response.Problem{
					Status:   http.StatusTooManyRequests,
					Title:    "Too Many Requests",
					Detail:   "Rate limit exceeded; retry later.",
					Instance: r.URL.Path,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
