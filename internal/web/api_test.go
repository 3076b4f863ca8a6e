package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesapkit.com/internal/appconf"
	"hesapkit.com/internal/engagement"
	"hesapkit.com/internal/indexing"
	"hesapkit.com/internal/logging"
)

func TestCalcAPI(t *testing.T) {
	s := newTestServer(t)

	t.Run("query string", func(t *testing.T) {
		rr := get(t, s, "/api/calc/loan?principal=10000&rate=12&months=24&lang=tr")
		require.Equal(t, http.StatusOK, rr.Code)

		var body struct {
			Calculator string `json:"calculator"`
			Locale     string `json:"locale"`
			Outputs    []struct {
				Key   string  `json:"key"`
				Value float64 `json:"value"`
			} `json:"outputs"`
			Formatted []Metric `json:"formatted"`
			Permalink string   `json:"permalink"`
		}
		decodeBody(t, rr.Body, &body)
		assert.Equal(t, "loan", body.Calculator)
		assert.Equal(t, "tr", body.Locale)
		require.NotEmpty(t, body.Outputs)
		assert.Equal(t, "monthlyPayment", body.Outputs[0].Key)
		assert.InDelta(t, 470.73, body.Outputs[0].Value, 0.001)
		assert.Equal(t, Metric{Key: "monthlyPayment", Label: "Aylık taksit", Value: "₺470,73"}, body.Formatted[0])
		assert.Equal(t, "http://localhost:4000/tr/kredi-hesaplama?months=24&principal=10000&rate=12", body.Permalink)
	})

	t.Run("json body with repeated values", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/calc/gpa",
			strings.NewReader(`{"grade":["A","B"],"credit":[3,3]}`))
		req.Header.Set("Content-Type", "application/json")
		rr := serve(t, s, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var body struct {
			Outputs []struct {
				Key   string  `json:"key"`
				Value float64 `json:"value"`
			} `json:"outputs"`
		}
		decodeBody(t, rr.Body, &body)
		assert.Equal(t, "gpa", body.Outputs[0].Key)
		assert.InDelta(t, 3.5, body.Outputs[0].Value, 0.001)
	})

	t.Run("form body", func(t *testing.T) {
		form := url.Values{"weight": {"70"}, "height": {"175"}}
		req := httptest.NewRequest(http.MethodPost, "/api/calc/bmi", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := serve(t, s, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("validation errors are localized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/calc/loan?principal=abc&rate=12&months=24", nil)
		req.Header.Set("Accept-Language", "tr-TR")
		rr := serve(t, s, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var body fieldErrorsBody
		decodeBody(t, rr.Body, &body)
		assert.Equal(t, map[string][]string{"principal": {"sayı olmalıdır"}}, body.FieldErrors)
	})

	t.Run("unknown calculator", func(t *testing.T) {
		rr := get(t, s, "/api/calc/nope")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/calc/loan", strings.NewReader(`{"principal":`))
		req.Header.Set("Content-Type", "application/json")
		rr := serve(t, s, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestListCalculators(t *testing.T) {
	s := newTestServer(t)
	rr := get(t, s, "/api/calculators?lang=tr")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Calculators []struct {
			ID     string            `json:"id"`
			Title  string            `json:"title"`
			URL    string            `json:"url"`
			Inputs []json.RawMessage `json:"inputs"`
		} `json:"calculators"`
	}
	decodeBody(t, rr.Body, &body)
	assert.Len(t, body.Calculators, len(s.app.Engine.IDs()))
	for _, c := range body.Calculators {
		assert.NotEmpty(t, c.Inputs, c.ID)
		if c.ID == "loan" {
			assert.Equal(t, "Kredi Hesaplama", c.Title)
			assert.Equal(t, "http://localhost:4000/tr/kredi-hesaplama", c.URL)
		}
	}
}

func TestHistoryAPI(t *testing.T) {
	s := newTestServer(t)

	rr := get(t, s, "/api/history")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = get(t, s, "/api/history", consentAll)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"entries":[]}`, rr.Body.String())

	rr = get(t, s, "/api/calc/tip?bill=100&tip=10&people=2", consentAll)
	require.Equal(t, http.StatusOK, rr.Code)
	vid := findCookie(rr, visitorCookie)
	require.NotNil(t, vid)

	rr = get(t, s, "/api/history", consentAll, vid)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Entries []engagement.Entry `json:"entries"`
	}
	decodeBody(t, rr.Body, &body)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "tip", body.Entries[0].Calculator)

	req := httptest.NewRequest(http.MethodDelete, "/api/history", nil)
	req.AddCookie(consentAll)
	req.AddCookie(vid)
	rr = serve(t, s, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = get(t, s, "/api/history", consentAll, vid)
	assert.JSONEq(t, `{"entries":[]}`, rr.Body.String())
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func postRating(t *testing.T, s *Server, calculator, score string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ratings/"+calculator,
		strings.NewReader(`{"score":`+score+`}`))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return serve(t, s, req)
}

func TestRatingsAPI(t *testing.T) {
	s := newTestServer(t)

	t.Run("requires functional consent", func(t *testing.T) {
		rr := postRating(t, s, "loan", "5")
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unknown calculator", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, postRating(t, s, "nope", "5", consentAll).Code)
		assert.Equal(t, http.StatusNotFound, get(t, s, "/api/ratings/nope").Code)
	})

	t.Run("score out of range", func(t *testing.T) {
		rr := postRating(t, s, "loan", "6", consentAll)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"fieldErrors":{"score":["must be between 1 and 5"]}}`, rr.Body.String())
	})

	t.Run("re-rating replaces the earlier score", func(t *testing.T) {
		rr := postRating(t, s, "bmi", "2", consentAll)
		require.Equal(t, http.StatusOK, rr.Code)
		vid := findCookie(rr, visitorCookie)
		require.NotNil(t, vid)

		rr = postRating(t, s, "bmi", "4", consentAll, vid)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"calculator":"bmi","count":1,"average":4}`, rr.Body.String())

		rr = postRating(t, s, "bmi", "5", consentAll)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"calculator":"bmi","count":2,"average":4.5}`, rr.Body.String())

		rr = get(t, s, "/api/ratings/bmi")
		assert.JSONEq(t, `{"calculator":"bmi","count":2,"average":4.5}`, rr.Body.String())
	})

	t.Run("form post redirects back", func(t *testing.T) {
		form := url.Values{"score": {"5"}, "return": {"/en/tip-calculator"}}
		req := httptest.NewRequest(http.MethodPost, "/api/ratings/tip", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(consentAll)
		rr := serve(t, s, req)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/en/tip-calculator?rated=1#rating", rr.Header().Get("Location"))
	})

	t.Run("form post ignores foreign return targets", func(t *testing.T) {
		for _, target := range []string{"https://evil.example/", "/\t/evil.example/x", "/\n/evil.example"} {
			form := url.Values{"score": {"5"}, "return": {target}}
			req := httptest.NewRequest(http.MethodPost, "/api/ratings/tip", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(consentAll)
			rr := serve(t, s, req)
			assert.Equal(t, http.StatusSeeOther, rr.Code)
			assert.Equal(t, "/en?rated=1#rating", rr.Header().Get("Location"), target)
		}
	})
}

const testSecret = "indexing-secret"

func indexingServer(t *testing.T, handler http.HandlerFunc) (*Server, *httptest.Server) {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	s := newTestServer(t, func(c *appconf.Config) {
		c.Indexing.Secret = testSecret
		c.Indexing.IndexNowKey = "0123456789abcdef"
	})
	s.app.IndexNow.Endpoints = []string{upstream.URL + "/indexnow"}
	s.app.IndexNow.Client = upstream.Client()
	s.app.Notifier = indexing.NewNotifier(logging.Discard(),
		indexing.WithRetryDelays(time.Millisecond),
		indexing.WithAttemptTimeout(time.Second))
	return s, upstream
}

func postIndexing(t *testing.T, s *Server, path, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(indexing.SecretHeader, secret)
	}
	return serve(t, s, req)
}

func TestIndexNowHandler(t *testing.T) {
	var hits atomic.Int32
	s, _ := indexingServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var body struct {
			Host    string   `json:"host"`
			Key     string   `json:"key"`
			URLList []string `json:"urlList"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Key != "0123456789abcdef" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	tests := []struct {
		name   string
		secret string
		body   string
		status int
	}{
		{"missing secret", "", `{"urls":["http://localhost:4000/en"]}`, http.StatusUnauthorized},
		{"wrong secret", "nope", `{"urls":["http://localhost:4000/en"]}`, http.StatusUnauthorized},
		{"empty list", testSecret, `{"urls":[]}`, http.StatusBadRequest},
		{"foreign host", testSecret, `{"urls":["https://evil.example/en"]}`, http.StatusBadRequest},
		{"bad type", testSecret, `{"urls":["http://localhost:4000/en"],"type":"purge"}`, http.StatusBadRequest},
		{"malformed", testSecret, `{"urls":`, http.StatusBadRequest},
		{"accepted", testSecret, `{"urls":["http://localhost:4000/en","http://localhost:4000/tr"]}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postIndexing(t, s, "/api/indexnow", tt.secret, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
	assert.Equal(t, int32(1), hits.Load(), "only the accepted request reaches the upstream")
}

func TestIndexNowHandlerUpstreamFailure(t *testing.T) {
	s, _ := indexingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	rr := postIndexing(t, s, "/api/indexnow", testSecret, `{"urls":["http://localhost:4000/en"]}`)
	require.Equal(t, http.StatusBadGateway, rr.Code)

	var report indexing.Report
	decodeBody(t, rr.Body, &report)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 1)
	assert.Equal(t, http.StatusForbidden, report.Results[0].Status)
}

func TestIndexingHandlersNotConfigured(t *testing.T) {
	s := newTestServer(t, func(c *appconf.Config) { c.Indexing.Secret = testSecret })

	rr := postIndexing(t, s, "/api/indexnow", testSecret, `{"urls":["http://localhost:4000/en"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = postIndexing(t, s, "/api/google-indexing", testSecret, `{"urls":["http://localhost:4000/en"],"type":"deleted"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = postIndexing(t, s, "/api/google-indexing", "", `{"urls":["http://localhost:4000/en"]}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGoogleIndexingHandler(t *testing.T) {
	var (
		mu    sync.Mutex
		types []string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL  string `json:"url"`
			Type string `json:"type"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		types = append(types, body.Type)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	s := newTestServer(t, func(c *appconf.Config) { c.Indexing.Secret = testSecret })
	s.app.Google = &indexing.Google{Endpoint: upstream.URL, Client: upstream.Client(), Logger: logging.Discard()}
	s.app.Notifier = indexing.NewNotifier(logging.Discard(), indexing.WithConcurrency(1))

	rr := postIndexing(t, s, "/api/google-indexing", testSecret, `{"urls":["http://localhost:4000/en"],"type":"deleted"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{indexing.NotificationURLDeleted}, types)
}
