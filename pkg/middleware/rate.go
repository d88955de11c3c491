// Package middleware holds the HTTP middleware chain.
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmsi/orderdesk/pkg/response"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window per-IP request counter.
type Limiter struct {
	max    int
	period time.Duration

	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewLimiter(max int, period time.Duration) *Limiter {
	return &Limiter{max: max, period: period, windows: map[string]*window{}, now: time.Now}
}

// Allow counts one hit for key and reports whether it is within the limit.
// Expired windows are swept on the way.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.windows) > 1024 {
		for k, w := range l.windows {
			if now.After(w.resetAt) {
				delete(l.windows, k)
			}
		}
	}

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.max, w.resetAt.Sub(now)
}

// RateLimit allows max requests per IP per period.
func RateLimit(max int, period time.Duration) func(http.Handler) http.Handler {
	l := NewLimiter(max, period)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := l.Allow(clientIP(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
