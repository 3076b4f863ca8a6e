package web

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesapkit.com/internal/appconf"
)

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	s := newTestServer(t, func(c *appconf.Config) { c.RateLimit = 2 })

	call := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":1234"
		return serve(t, s, req)
	}

	assert.Equal(t, http.StatusOK, call("/api/calculators", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, call("/api/calculators", "10.0.0.1").Code)

	limited := call("/api/calculators", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.Equal(t, "2", limited.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", limited.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, call("/api/calculators", "10.0.0.2").Code, "other clients keep their budget")
	assert.Equal(t, http.StatusOK, call("/en", "10.0.0.1").Code, "pages are not limited")
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(5, nil)
	rl.now = func() time.Time { return now }

	rl.get("10.0.0.1")
	now = now.Add(5 * time.Minute)
	rl.get("10.0.0.2")
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, rl.sweep())
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.NotContains(t, rl.limiters, "10.0.0.1")
	assert.Contains(t, rl.limiters, "10.0.0.2")
}

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		trusted    []netip.Prefix
		want       string
	}{
		{"remote address", "192.0.2.1:5555", "", trusted, "192.0.2.1"},
		{"no port", "192.0.2.9", "", trusted, "192.0.2.9"},
		{"no trusted proxies", "10.0.0.1:5555", "203.0.113.7", nil, "10.0.0.1"},
		{"untrusted peer", "192.0.2.1:5555", "203.0.113.7", trusted, "192.0.2.1"},
		{"trusted peer", "10.0.0.1:5555", "203.0.113.7", trusted, "203.0.113.7"},
		{"spoofed leftmost hop", "10.0.0.1:5555", "198.51.100.1, 203.0.113.7", trusted, "203.0.113.7"},
		{"chained proxies", "10.0.0.1:5555", "203.0.113.7, 10.0.0.2", trusted, "203.0.113.7"},
		{"blank forwarded header", "10.0.0.1:5555", " ", trusted, "10.0.0.1"},
		{"garbled hop", "10.0.0.1:5555", "203.0.113.7, junk", trusted, "10.0.0.1"},
		{"only proxies", "10.0.0.1:5555", "10.0.0.2", trusted, "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, clientIP(req, tt.trusted))
		})
	}
}

func TestForwardedForCannotDodgeTheLimit(t *testing.T) {
	call := func(s *Server, peer, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/calculators", nil)
		req.RemoteAddr = peer + ":1234"
		req.Header.Set("X-Forwarded-For", forwarded)
		return serve(t, s, req).Code
	}

	t.Run("untrusted peer", func(t *testing.T) {
		s := newTestServer(t, func(c *appconf.Config) { c.RateLimit = 1 })
		assert.Equal(t, http.StatusOK, call(s, "192.0.2.1", "203.0.113.1"))
		assert.Equal(t, http.StatusTooManyRequests, call(s, "192.0.2.1", "203.0.113.2"))
		assert.Equal(t, http.StatusTooManyRequests, call(s, "192.0.2.1", "203.0.113.3"))
		assert.Len(t, s.limiter.limiters, 1)
	})

	t.Run("behind a trusted proxy", func(t *testing.T) {
		s := newTestServer(t, func(c *appconf.Config) {
			c.RateLimit = 1
			c.TrustedProxies = []string{"10.0.0.1"}
		})
		assert.Equal(t, http.StatusOK, call(s, "10.0.0.1", "203.0.113.1"))
		assert.Equal(t, http.StatusTooManyRequests, call(s, "10.0.0.1", "198.51.100.9, 203.0.113.1"))
		assert.Equal(t, http.StatusOK, call(s, "10.0.0.1", "203.0.113.2"))
	})
}

func TestCompression(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/en/loan-calculator", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := serve(t, s, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rr.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(body)), "<!DOCTYPE html>"))

	small := get(t, s, "/healthz")
	assert.Empty(t, small.Header().Get("Content-Encoding"))
}

func TestSecurityHeaders(t *testing.T) {
	dev := newTestServer(t)
	rr := get(t, dev, "/en")
	h := rr.Header()
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Contains(t, h.Get("Content-Security-Policy"), "script-src 'self' https://www.googletagmanager.com")
	assert.Contains(t, h.Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Empty(t, h.Get("Strict-Transport-Security"))

	prod := newTestServer(t, func(c *appconf.Config) {
		c.Env = appconf.Production
		c.BaseURL = "https://hesapkit.com"
	})
	rr = get(t, prod, "/en")
	assert.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}

func TestPanicsBecomeServerErrors(t *testing.T) {
	s := newTestServer(t)
	router := s.routes()
	router.GET("/boom", func(http.ResponseWriter, *http.Request, httprouter.Params) { panic("boom") })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}
