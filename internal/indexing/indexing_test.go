package indexing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hesapkit.com/internal/validate"
)

const base = "https://hesapkit.com"

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name      string
		presented string
		secret    string
		wantErr   bool
	}{
		{"matching secret", "s3cret", "s3cret", false},
		{"wrong secret", "nope", "s3cret", true},
		{"missing header", "", "s3cret", true},
		{"no secret configured", "", "", true},
		{"any value with no secret configured", "x", "", true},
		{"prefix of secret", "s3c", "s3cret", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.presented, tt.secret)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthorized)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckURLs(t *testing.T) {
	t.Run("accepts own urls and drops duplicates", func(t *testing.T) {
		urls, err := CheckURLs(base, []string{
			base + "/en/loan-calculator",
			base + "/tr/kredi-hesaplama",
			base + "/en/loan-calculator",
			base,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{base + "/en/loan-calculator", base + "/tr/kredi-hesaplama", base}, urls)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := CheckURLs(base, nil)
		var verrs *validate.Errors
		require.ErrorAs(t, err, &verrs)
		assert.True(t, verrs.Has("urls"))
	})

	t.Run("too many urls", func(t *testing.T) {
		urls := make([]string, MaxURLs+1)
		for i := range urls {
			urls[i] = fmt.Sprintf("%s/en/%d", base, i)
		}
		_, err := CheckURLs(base, urls)
		var verrs *validate.Errors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, validate.CodeTooLarge, verrs.Issues("urls")[0].Code)
	})

	t.Run("foreign urls are reported by index", func(t *testing.T) {
		_, err := CheckURLs(base, []string{
			base + "/en",
			"https://example.com/en",
			"http://hesapkit.com/en",
			"not a url\x7f",
		})
		var verrs *validate.Errors
		require.ErrorAs(t, err, &verrs)
		assert.False(t, verrs.Has("urls.0"))
		assert.True(t, verrs.Has("urls.1"))
		assert.True(t, verrs.Has("urls.2"))
		assert.True(t, verrs.Has("urls.3"))
	})

	t.Run("base with a path prefix", func(t *testing.T) {
		_, err := CheckURLs(base+"/site", []string{base + "/other/page"})
		assert.Error(t, err)
		urls, err := CheckURLs(base+"/site/", []string{base + "/site/en"})
		require.NoError(t, err)
		assert.Len(t, urls, 1)
	})

	t.Run("invalid base url", func(t *testing.T) {
		_, err := CheckURLs("::", []string{base})
		assert.Error(t, err)
	})
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	tr := &http.Transport{}
	t.Cleanup(tr.CloseIdleConnections)
	return &http.Client{Transport: tr}
}

func fastNotifier() *Notifier {
	return NewNotifier(nil,
		WithRetryDelays(time.Millisecond, time.Millisecond),
		WithAttemptTimeout(time.Second),
		WithConcurrency(4))
}

func TestIndexNowNotify(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	var received []indexNowRequest
	var flaky atomic.Int32

	mux := http.NewServeMux()
	record := func(r *http.Request) {
		var body indexNowRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		received = append(received, body)
		mu.Unlock()
	}
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/accepted", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if flaky.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/rejects", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		http.Error(w, "key not valid", http.StatusUnprocessableEntity)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	in := &IndexNow{
		Host:        "hesapkit.com",
		Key:         "abc123",
		KeyLocation: base + KeyFilePath("abc123"),
		Endpoints:   []string{srv.URL + "/ok", srv.URL + "/accepted", srv.URL + "/flaky", srv.URL + "/rejects"},
		Client:      newClient(t),
	}
	urls := []string{base + "/en/loan-calculator", base + "/tr/kredi-hesaplama"}

	report := fastNotifier().Notify(context.Background(), in.Jobs(urls))

	require.Len(t, report.Results, 4)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, report.AnySucceeded())

	byTarget := map[string]Result{}
	for _, r := range report.Results {
		byTarget[r.Target] = r
	}
	assert.Equal(t, Result{Target: srv.URL + "/ok", URLs: 2, Status: 200, OK: true, Attempts: 1}, byTarget[srv.URL+"/ok"])
	assert.Equal(t, 202, byTarget[srv.URL+"/accepted"].Status)

	flakyRes := byTarget[srv.URL+"/flaky"]
	assert.True(t, flakyRes.OK)
	assert.Equal(t, 3, flakyRes.Attempts)

	rejected := byTarget[srv.URL+"/rejects"]
	assert.False(t, rejected.OK)
	assert.Equal(t, 1, rejected.Attempts, "4xx responses are not retried")
	assert.Equal(t, http.StatusUnprocessableEntity, rejected.Status)
	assert.Contains(t, rejected.Error, "key not valid")

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, received)
	assert.Equal(t, indexNowRequest{
		Host:        "hesapkit.com",
		Key:         "abc123",
		KeyLocation: base + "/abc123.txt",
		URLList:     urls,
	}, received[0])
}

func TestIndexNowDefaultEndpoints(t *testing.T) {
	jobs := (&IndexNow{}).Jobs([]string{base})
	require.Len(t, jobs, len(DefaultIndexNowEndpoints))
	assert.Equal(t, DefaultIndexNowEndpoints[0], jobs[0].Target)
}

func TestGoogleNotify(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	got := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n googleNotification
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		got[n.URL] = n.Type
		mu.Unlock()
		if n.URL == base+"/en/missing" {
			http.Error(w, `{"error":{"code":403}}`, http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"urlNotificationMetadata":{}}`))
	}))
	defer srv.Close()

	g := &Google{Endpoint: srv.URL, Client: newClient(t)}
	urls := []string{base + "/en/bmi-calculator", base + "/en/missing", base + "/tr/vki-hesaplama"}

	t.Run("updates settle independently", func(t *testing.T) {
		report := fastNotifier().Notify(context.Background(), g.Jobs(urls, false))
		require.Len(t, report.Results, 3)
		assert.Equal(t, 2, report.Succeeded)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, urls[1], report.Results[1].Target)
		assert.Equal(t, http.StatusForbidden, report.Results[1].Status)
		assert.Equal(t, 1, report.Results[1].Attempts)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, NotificationURLUpdated, got[urls[0]])
	})

	t.Run("deletions", func(t *testing.T) {
		report := fastNotifier().Notify(context.Background(), g.Jobs(urls[:1], true))
		assert.Equal(t, 1, report.Succeeded)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, NotificationURLDeleted, got[urls[0]])
	})
}

func TestNotifierRetries(t *testing.T) {
	t.Run("network errors are retried until attempts run out", func(t *testing.T) {
		var calls atomic.Int32
		job := Job{Target: "down", Do: func(context.Context) (int, error) {
			calls.Add(1)
			return 0, fmt.Errorf("dial tcp: connection refused")
		}}
		report := fastNotifier().Notify(context.Background(), []Job{job})
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, 3, report.Results[0].Attempts)
		assert.Contains(t, report.Results[0].Error, "connection refused")
		assert.False(t, report.AnySucceeded())
	})

	t.Run("rate limiting is transient", func(t *testing.T) {
		var calls atomic.Int32
		job := Job{Target: "busy", Do: func(context.Context) (int, error) {
			if calls.Add(1) == 1 {
				return 429, &StatusError{Code: 429}
			}
			return 200, nil
		}}
		report := fastNotifier().Notify(context.Background(), []Job{job})
		assert.True(t, report.Results[0].OK)
		assert.Equal(t, 2, report.Results[0].Attempts)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		job := Job{Target: "slow", Do: func(ctx context.Context) (int, error) {
			cancel()
			<-ctx.Done()
			return 0, ctx.Err()
		}}
		report := NewNotifier(nil, WithRetryDelays(time.Second, time.Second)).Notify(ctx, []Job{job})
		assert.False(t, report.Results[0].OK)
		assert.Equal(t, 1, report.Results[0].Attempts)
	})

	t.Run("no jobs", func(t *testing.T) {
		report := fastNotifier().Notify(context.Background(), nil)
		assert.Empty(t, report.Results)
		assert.False(t, report.AnySucceeded())
	})
}

func TestStatusError(t *testing.T) {
	assert.True(t, (&StatusError{Code: 503}).Transient())
	assert.True(t, (&StatusError{Code: 429}).Transient())
	assert.False(t, (&StatusError{Code: 400}).Transient())
	assert.Equal(t, "unexpected status 400", (&StatusError{Code: 400}).Error())
	assert.Equal(t, "unexpected status 403: denied", (&StatusError{Code: 403, Body: "denied"}).Error())
}

func TestNewGoogleHTTPClientRejectsBadCredentials(t *testing.T) {
	_, err := NewGoogleHTTPClient(context.Background(), []byte(`{"type":"nonsense"`))
	assert.Error(t, err)

	_, err = NewGoogleHTTPClientFromFile(context.Background(), t.TempDir()+"/missing.json")
	assert.Error(t, err)
}
