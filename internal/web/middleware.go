package web

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/time/rate"

	"hesapkit.com/internal/logging"
)

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// requestLogging logs every request and puts the logger in the request
// context for handlers.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r = r.WithContext(logging.WithLogger(r.Context(), logger))

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logging.LogHTTPRequest(logger,
				r.Method,
				r.URL.Path,
				wrapped.statusCode,
				float64(time.Since(start).Nanoseconds())/1e6,
				slog.String("user_agent", r.Header.Get("User-Agent")),
				slog.String("component", "http_server"))
		})
	}
}

const gtm = "https://www.googletagmanager.com"

// contentSecurityPolicy allows the site's own assets plus Google Tag
// Manager and the GA4 collection endpoints.
var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' " + gtm,
	"connect-src 'self' https://*.google-analytics.com https://*.analytics.google.com " + gtm,
	"img-src 'self' data: https://*.google-analytics.com " + gtm,
	"style-src 'self'",
	"frame-ancestors 'none'",
	"base-uri 'self'",
	"form-action 'self'",
}, "; ")

func securityHeaders(hsts bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Content-Security-Policy", contentSecurityPolicy)
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CompressionConfig holds gzip settings.
type CompressionConfig struct {
	// MinSize is the smallest response worth compressing, in bytes.
	MinSize int
	Level   int
}

func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{MinSize: 1024, Level: 6}
}

func compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapper, err := gzhttp.NewWrapper(
			gzhttp.MinSize(config.MinSize),
			gzhttp.CompressionLevel(config.Level),
		)
		if err != nil {
			return gzhttp.GzipHandler(next)
		}
		return wrapper(next)
	}
}

type visitorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter limits API requests per client IP. Page requests pass
// through untouched.
type rateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*visitorLimiter
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	// trusted holds the proxies allowed to set X-Forwarded-For.
	trusted []netip.Prefix
}

// newRateLimiter allows perSecond requests per second per IP with an equal
// burst. Zero or less disables limiting.
func newRateLimiter(perSecond int, trusted []netip.Prefix) *rateLimiter {
	rl := &rateLimiter{
		limiters: make(map[string]*visitorLimiter),
		limit:    rate.Inf,
		burst:    perSecond,
		idle:     10 * time.Minute,
		now:      time.Now,
		trusted:  trusted,
	}
	if perSecond > 0 {
		rl.limit = rate.Limit(perSecond)
	}
	return rl
}

func (rl *rateLimiter) get(ip string) *rate.Limiter {
	rl.mu.RLock()
	v, ok := rl.limiters[ip]
	rl.mu.RUnlock()
	if ok {
		rl.mu.Lock()
		v.lastSeen = rl.now()
		rl.mu.Unlock()
		return v.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.limiters[ip]; ok {
		return v.limiter
	}
	v = &visitorLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst), lastSeen: rl.now()}
	rl.limiters[ip] = v
	return v.limiter
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limit == rate.Inf || !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.get(clientIP(r, rl.trusted)).Allow() {
			retryAfter := int(math.Ceil(1 / float64(rl.limit)))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sweep drops limiters idle for longer than rl.idle.
func (rl *rateLimiter) sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idle)
	removed := 0
	for ip, v := range rl.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(rl.limiters, ip)
			removed++
		}
	}
	return removed
}

// run sweeps every interval until ctx is done.
func (rl *rateLimiter) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// clientIP returns the peer address unless the peer is a trusted proxy.
// Then X-Forwarded-For is read from the right, skipping trusted hops.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := remoteHost(r.RemoteAddr)
	if len(trusted) == 0 || !isTrusted(peer, trusted) {
		return peer
	}
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			// Written by an untrusted party.
			break
		}
		if !isTrusted(addr.Unmap().String(), trusted) {
			return addr.Unmap().String()
		}
	}
	return peer
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
