package web

import (
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"hesapkit.com/internal/engagement"
	"hesapkit.com/internal/i18n"
)

const (
	consentCookie = "hk_consent"
	visitorCookie = "hk_vid"

	consentMaxAge = 180 * 24 * time.Hour
	visitorMaxAge = 365 * 24 * time.Hour
)

// Consent is the visitor's cookie choice. Recorded is false until the
// visitor has answered the banner.
type Consent struct {
	Analytics  bool `json:"analytics"`
	Functional bool `json:"functional"`
	Recorded   bool `json:"recorded"`
}

// encode renders the cookie value: "analytics=1&functional=0".
func (c Consent) encode() string {
	v := url.Values{}
	v.Set("analytics", flag(c.Analytics))
	v.Set("functional", flag(c.Functional))
	return v.Encode()
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseConsent(raw string) Consent {
	v, err := url.ParseQuery(raw)
	if err != nil || (!v.Has("analytics") && !v.Has("functional")) {
		return Consent{}
	}
	return Consent{
		Analytics:  v.Get("analytics") == "1",
		Functional: v.Get("functional") == "1",
		Recorded:   true,
	}
}

func readConsent(r *http.Request) Consent {
	c, err := r.Cookie(consentCookie)
	if err != nil {
		return Consent{}
	}
	return parseConsent(c.Value)
}

func (s *Server) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   strings.HasPrefix(s.app.Config.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	c := s.cookie(name, "", 0)
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// visitor returns the visitor ID from the cookie, minting one when create is
// set and none is present.
func (s *Server) visitor(w http.ResponseWriter, r *http.Request, create bool) (string, bool) {
	if c, err := r.Cookie(visitorCookie); err == nil && engagement.ValidVisitor(c.Value) {
		return c.Value, true
	}
	if !create {
		return "", false
	}
	id := engagement.NewVisitorID()
	http.SetCookie(w, s.cookie(visitorCookie, id, visitorMaxAge))
	return id, true
}

// consentHandler stores the banner choice and sends the visitor back.
func (s *Server) consentHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	var c Consent
	switch r.PostForm.Get("action") {
	case "accept":
		c = Consent{Analytics: true, Functional: true}
	case "reject":
		c = Consent{}
	default:
		c = Consent{
			Analytics:  r.PostForm.Get("analytics") != "",
			Functional: r.PostForm.Get("functional") != "",
		}
	}
	c.Recorded = true
	http.SetCookie(w, s.cookie(consentCookie, c.encode(), consentMaxAge))

	if !c.Functional {
		if id, ok := s.visitor(w, r, false); ok {
			if err := s.app.Store.ClearHistory(r.Context(), id); err != nil {
				s.serverError(w, r, err)
				return
			}
		}
		s.clearCookie(w, visitorCookie)
	}

	http.Redirect(w, r, safeReturn(r.PostForm.Get("return"), r), http.StatusSeeOther)
}

func (s *Server) consentStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, readConsent(r))
}

// safeReturn accepts only same-site paths, falling back to the locale home.
func safeReturn(target string, r *http.Request) string {
	if isLocalPath(target) {
		return target
	}
	return i18n.Path(i18n.Negotiate(r.Header.Get("Accept-Language")), "")
}

// isLocalPath reports whether target is an absolute path on this host that
// browsers cannot reinterpret as another origin.
func isLocalPath(target string) bool {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return false
	}
	if strings.IndexFunc(target, func(c rune) bool { return c < 0x20 || c == 0x7f }) >= 0 {
		return false
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return false
	}
	return !strings.HasPrefix(path.Clean(u.Path), "//")
}
