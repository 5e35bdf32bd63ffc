package server

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/chatguard/chatguard/internal/audit"
)

// auditContext copies the router-assigned request id into the audit
// context so validation records carry it.
func auditContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(audit.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeaders marks every response as non-embeddable, non-sniffable
// JSON. The API serves widget backends, not browsers, so the strictest
// settings cost nothing.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'")
		next.ServeHTTP(w, r)
	})
}

// requestLogger emits one structured line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", clientIP(r),
			)
		})
	}
}

// bodyLimit caps request bodies at n bytes. Reads past the cap fail
// with *http.MaxBytesError, which the JSON decode paths surface as a
// malformed request.
func bodyLimit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// throttle applies a per-client transport rate limit in front of the
// handlers. It guards the listener against request floods; the
// per-identity message limiter inside the engine is a separate,
// stricter control and is unaffected by this one.
type throttle struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	clients map[string]*throttleEntry
}

type throttleEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// newThrottle returns nil when rps is non-positive, which disables the
// transport throttle entirely.
func newThrottle(rps float64, burst int) *throttle {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(rps) + 1
	}
	return &throttle{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*throttleEntry),
	}
}

func (t *throttle) handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.allow(clientIP(r), time.Now()) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *throttle) allow(ip string, now time.Time) bool {
	t.mu.Lock()
	entry, ok := t.clients[ip]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.clients[ip] = entry
	}
	entry.seen = now
	t.mu.Unlock()

	return entry.limiter.Allow()
}

// sweep drops clients idle longer than maxIdle and returns how many
// were removed.
func (t *throttle) sweep(now time.Time, maxIdle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for ip, entry := range t.clients {
		if now.Sub(entry.seen) > maxIdle {
			delete(t.clients, ip)
			removed++
		}
	}
	return removed
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
