package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hesapkit.com/internal/logging"
	"hesapkit.com/internal/validate"
)

type errorBody struct {
	Error string `json:"error"`
}

type fieldErrorsBody struct {
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.LogError(slog.Default(), "failed to encode json response", err,
			slog.String("component", "http_server"))
	}
}

// serverError logs err and answers 500 without exposing it.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "request failed", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("component", "http_server"))
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// validationError answers 400 with field errors in the request's locale.
func (s *Server) validationError(w http.ResponseWriter, r *http.Request, errs *validate.Errors) {
	writeJSON(w, http.StatusBadRequest, fieldErrorsBody{FieldErrors: s.localizeErrors(apiLocale(r), errs)})
}

// writeError maps validation errors to 400 and everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs *validate.Errors
	if errors.As(err, &verrs) {
		s.validationError(w, r, verrs)
		return
	}
	s.serverError(w, r, err)
}

// fieldErrors localizes err when it carries field issues.
func (s *Server) fieldErrors(locale string, err error) (map[string][]string, bool) {
	var verrs *validate.Errors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	return s.localizeErrors(locale, verrs), true
}

func (s *Server) localizeErrors(locale string, errs *validate.Errors) map[string][]string {
	return errs.Localize(func(i validate.Issue) string {
		return s.app.Messages.T(locale, "validation."+i.Code, i.Args...)
	})
}

func notFoundJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
}

func unauthorizedJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "permission denied"})
}
