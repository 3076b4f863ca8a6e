package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesapkit.com/internal/app"
	"hesapkit.com/internal/appconf"
	"hesapkit.com/internal/cache"
	"hesapkit.com/internal/engagement"
	"hesapkit.com/internal/indexing"
	"hesapkit.com/internal/logging"
	"hesapkit.com/internal/web"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hesapkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCalcCommand(t *testing.T) {
	t.Run("lists calculators", func(t *testing.T) {
		out, err := run(t, "calc")
		require.NoError(t, err)
		assert.Contains(t, strings.Fields(out), "loan")
		assert.Contains(t, strings.Fields(out), "bmi")
	})

	t.Run("evaluates", func(t *testing.T) {
		out, err := run(t, "calc", "loan", "principal=10000", "rate=12", "months=24")
		require.NoError(t, err)

		var ev struct {
			Calculator string `json:"calculator"`
			Outputs    []struct {
				Key   string  `json:"key"`
				Value float64 `json:"value"`
			} `json:"outputs"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &ev))
		assert.Equal(t, "loan", ev.Calculator)
		assert.InDelta(t, 470.73, ev.Outputs[0].Value, 0.001)
	})

	t.Run("repeated rows", func(t *testing.T) {
		out, err := run(t, "calc", "gpa", "grade=A", "credit=3", "grade=B", "credit=3")
		require.NoError(t, err)
		assert.Contains(t, out, `"gpa"`)
	})

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown calculator", []string{"calc", "nope"}, "unknown calculator"},
		{"bad assignment", []string{"calc", "loan", "principal"}, "expected name=value"},
		{"invalid input", []string{"calc", "loan", "principal=abc", "rate=1", "months=1"}, "principal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSitemapCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, "base_url: https://hesapkit.com\n")

	out, err := run(t, "sitemap", "--config", cfg, "--out", dir)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), 6)

	for _, name := range []string{"sitemap.xml", "sitemap-index.xml", "image-sitemap.xml", "feed.xml", "tr/feed.xml", "robots.txt"} {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}

	index, err := os.ReadFile(filepath.Join(dir, "sitemap-index.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<loc>https://hesapkit.com/sitemap.xml</loc>")
}

func TestNotifyCommand(t *testing.T) {
	var submitted atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URLList []string `json:"urlList"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		submitted.Add(int32(len(body.URLList)))
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := writeConfig(t, strings.Join([]string{
		"base_url: https://hesapkit.com",
		"indexing:",
		"  indexnow_key: 0123456789abcdef",
		"  indexnow_endpoints:",
		"    - " + upstream.URL,
	}, "\n")+"\n")

	t.Run("explicit urls", func(t *testing.T) {
		submitted.Store(0)
		out, err := run(t, "notify", "--config", cfg, "--target", "indexnow",
			"https://hesapkit.com/en/loan-calculator", "https://hesapkit.com/tr/kredi-hesaplama")
		require.NoError(t, err)

		var report indexing.Report
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, 1, report.Succeeded)
		assert.Equal(t, int32(2), submitted.Load())
	})

	t.Run("every sitemap url", func(t *testing.T) {
		submitted.Store(0)
		_, err := run(t, "notify", "--config", cfg)
		require.NoError(t, err)
		assert.Greater(t, submitted.Load(), int32(20))
	})

	t.Run("foreign url", func(t *testing.T) {
		_, err := run(t, "notify", "--config", cfg, "https://example.com/en")
		assert.Error(t, err)
	})

	t.Run("google not configured", func(t *testing.T) {
		_, err := run(t, "notify", "--config", cfg, "--target", "google")
		assert.ErrorContains(t, err, "google indexing is not configured")
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := run(t, "notify", "--config", cfg, "--target", "bing")
		assert.ErrorContains(t, err, "unknown target")
	})
}

func TestInvalidConfigIsRejected(t *testing.T) {
	cfg := writeConfig(t, "base_url: http://hesapkit.com\nenv: production\n")
	_, err := run(t, "sitemap", "--config", cfg, "--out", t.TempDir())
	assert.ErrorContains(t, err, "must use https in production")
}

func TestServeShutsDownWhenContextEnds(t *testing.T) {
	cfg := appconf.Default()
	cfg.Env = appconf.Test
	a, err := app.New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	srv, err := web.New(a)
	require.NoError(t, err)
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: srv.Handler()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, a.Logger, httpServer, srv, cache.NewMemory(), engagement.NewMemory()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}
