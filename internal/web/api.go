package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"

	"hesapkit.com/internal/calc"
	"hesapkit.com/internal/catalog"
	"hesapkit.com/internal/engagement"
	"hesapkit.com/internal/i18n"
	"hesapkit.com/internal/indexing"
	"hesapkit.com/internal/logging"
	"hesapkit.com/internal/validate"
)

const maxBodyBytes = 1 << 20

// apiLocale picks the message locale of an API response: ?lang= first,
// then Accept-Language.
func apiLocale(r *http.Request) string {
	if l := r.URL.Query().Get("lang"); i18n.Supported(l) {
		return l
	}
	return i18n.Negotiate(r.Header.Get("Accept-Language"))
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("decoding request body: unexpected data after JSON object")
	}
	return nil
}

// jsonScalar flattens a JSON value into a form value.
func jsonScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return lo.Ternary(t, "1", "0")
	default:
		return fmt.Sprint(t)
	}
}

// calcParams reads calculator input from the query string, a form body or
// a JSON object. JSON arrays become repeated values.
func calcParams(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	if r.Method != http.MethodPost {
		return r.URL.Query(), nil
	}
	if isJSON(r) {
		var raw map[string]any
		if err := decodeJSON(r, w, &raw); err != nil {
			return nil, err
		}
		params := url.Values{}
		for k, v := range raw {
			if list, ok := v.([]any); ok {
				for _, item := range list {
					params.Add(k, jsonScalar(item))
				}
				continue
			}
			params.Set(k, jsonScalar(v))
		}
		return params, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return r.PostForm, nil
}

type calcResponse struct {
	*calc.Evaluation
	Locale    string   `json:"locale"`
	Formatted []Metric `json:"formatted"`
	Permalink string   `json:"permalink"`
}

func (s *Server) calcAPI(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	inputs, err := s.app.Engine.Inputs(id)
	if err != nil {
		notFoundJSON(w)
		return
	}
	params, err := calcParams(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	ev, err := s.app.Engine.Evaluate(id, params, validate.PlainNumbers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	locale := apiLocale(r)
	query := canonicalQuery(inputs, params)
	if readConsent(r).Functional {
		s.recordHistory(w, r, locale, ev, query)
	}
	path := s.app.Catalog.URL(catalog.RouteKey(catalog.KindCalculator, id), locale)
	writeJSON(w, http.StatusOK, calcResponse{
		Evaluation: ev,
		Locale:     locale,
		Formatted:  s.metrics(locale, ev),
		Permalink:  s.app.Site.Absolute(path + "?" + query),
	})
}

type calculatorInfo struct {
	ID       string       `json:"id"`
	Category string       `json:"category"`
	Title    string       `json:"title"`
	Summary  string       `json:"summary"`
	URL      string       `json:"url"`
	Inputs   []calc.Input `json:"inputs"`
}

func (s *Server) listCalculators(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	locale := apiLocale(r)
	out := make([]calculatorInfo, 0, len(s.app.Catalog.Calculators))
	for i := range s.app.Catalog.Calculators {
		c := &s.app.Catalog.Calculators[i]
		inputs, err := s.app.Engine.Inputs(c.ID)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		t := c.Text(locale)
		out = append(out, calculatorInfo{
			ID:       c.ID,
			Category: c.Category,
			Title:    t.Title,
			Summary:  t.Summary,
			URL:      s.app.Site.Absolute(s.app.Catalog.URL(catalog.RouteKey(catalog.KindCalculator, c.ID), locale)),
			Inputs:   inputs,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"calculators": out})
}

func (s *Server) consentRequired(w http.ResponseWriter, r *http.Request, key string) {
	writeJSON(w, http.StatusForbidden, errorBody{Error: s.app.Messages.T(apiLocale(r), key)})
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if !readConsent(r).Functional {
		s.consentRequired(w, r, "history.consent_required")
		return
	}
	entries := []engagement.Entry{}
	if vid, ok := s.visitor(w, r, false); ok {
		var err error
		if entries, err = s.app.Store.History(r.Context(), vid, 0); err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) clearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if vid, ok := s.visitor(w, r, false); ok {
		if err := s.app.Store.ClearHistory(r.Context(), vid); err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ratingHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if !s.app.Engine.Has(id) {
		notFoundJSON(w)
		return
	}
	rating, err := s.app.Store.Rating(r.Context(), id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

// rateHandler records a score. Form posts from the calculator page are
// redirected back to it; JSON callers get the updated summary.
func (s *Server) rateHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if !s.app.Engine.Has(id) {
		notFoundJSON(w)
		return
	}
	if !readConsent(r).Functional {
		s.consentRequired(w, r, "rating.consent_required")
		return
	}

	var raw, ret string
	fromForm := !isJSON(r)
	if fromForm {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		raw, ret = r.PostForm.Get("score"), r.PostForm.Get("return")
	} else {
		var body struct {
			Score json.Number `json:"score"`
		}
		if err := decodeJSON(r, w, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		raw = body.Score.String()
	}

	score, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || score < engagement.MinScore || score > engagement.MaxScore {
		errs := validate.New()
		errs.Add("score", validate.CodeOutOfRange, engagement.MinScore, engagement.MaxScore)
		s.validationError(w, r, errs)
		return
	}

	vid, _ := s.visitor(w, r, true)
	if err := s.app.Store.Rate(r.Context(), vid, id, score); err != nil {
		s.serverError(w, r, err)
		return
	}

	if fromForm {
		http.Redirect(w, r, withQuery(safeReturn(ret, r), "rated", "1")+"#rating", http.StatusSeeOther)
		return
	}
	rating, err := s.app.Store.Rating(r.Context(), id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

func withQuery(target, key, value string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

type indexingRequest struct {
	URLs []string `json:"urls"`
	Type string   `json:"type"`
}

// readIndexingRequest authorizes and decodes an indexing submission. It
// writes the error response itself and returns ok=false on failure.
func (s *Server) readIndexingRequest(w http.ResponseWriter, r *http.Request) (urls []string, deleted, ok bool) {
	if s.app.RequestHasInvalidIndexingSecret(r) {
		unauthorizedJSON(w)
		return nil, false, false
	}
	var req indexingRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return nil, false, false
	}
	switch strings.ToLower(req.Type) {
	case "", "updated", strings.ToLower(indexing.NotificationURLUpdated):
	case "deleted", strings.ToLower(indexing.NotificationURLDeleted):
		deleted = true
	default:
		errs := validate.New()
		errs.Add("type", validate.CodeInvalidChoice, "updated, deleted")
		s.validationError(w, r, errs)
		return nil, false, false
	}
	urls, err := indexing.CheckURLs(s.app.Config.BaseURL, req.URLs)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false, false
	}
	return urls, deleted, true
}

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, target string, report indexing.Report) {
	logging.LogOperation(logging.FromContext(r.Context()), "indexing_request_handled",
		slog.String("target", target),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.String("component", "indexing"))
	status := http.StatusOK
	if !report.AnySucceeded() {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, report)
}

func (s *Server) indexNowHandler(w http.ResponseWriter, r *http.Request) {
	urls, _, ok := s.readIndexingRequest(w, r)
	if !ok {
		return
	}
	if s.app.IndexNow == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "indexnow is not configured"})
		return
	}
	s.writeReport(w, r, "indexnow", s.app.Notifier.Notify(r.Context(), s.app.IndexNow.Jobs(urls)))
}

func (s *Server) googleIndexingHandler(w http.ResponseWriter, r *http.Request) {
	urls, deleted, ok := s.readIndexingRequest(w, r)
	if !ok {
		return
	}
	if s.app.Google == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "google indexing is not configured"})
		return
	}
	s.writeReport(w, r, "google", s.app.Notifier.Notify(r.Context(), s.app.Google.Jobs(urls, deleted)))
}
