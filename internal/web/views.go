package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"hesapkit.com/internal/catalog"
	"hesapkit.com/internal/i18n"
	"hesapkit.com/internal/seo"
	"hesapkit.com/internal/sitemap"
)

//go:embed templates
var templateFS embed.FS

var pageTemplates = []string{"home", "category", "calculator", "guides", "guide", "page", "search", "notfound"}

// views holds one template set per page, each built from the shared
// layout and partials plus that page's content block.
type views struct {
	sets map[string]*template.Template
}

func loadViews() (*views, error) {
	funcs := template.FuncMap{
		"searchAction": searchPath,
		"feedURL":      sitemap.FeedURL,
	}
	v := &views{sets: make(map[string]*template.Template, len(pageTemplates))}
	for _, name := range pageTemplates {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials/*.html",
			"templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		v.sets[name] = t
	}
	return v, nil
}

// render executes into a buffer first so a template error still yields a
// clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, v *View) {
	t, ok := s.views.sets[name]
	if !ok {
		s.serverError(w, r, fmt.Errorf("unknown template %q", name))
		return
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		s.serverError(w, r, fmt.Errorf("rendering %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", v.Locale)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Link is a titled URL for lists and navigation.
type Link struct {
	URL     string
	Title   string
	Summary string
}

// View is the data every page template receives.
type View struct {
	Locale      string
	Meta        seo.Metadata
	JSONLD      template.HTML
	Consent     Consent
	AnalyticsID string
	SwitchURL   string
	CurrentPath string
	Categories  []Link
	Footer      []Link
	Year        int
	Page        any

	s *Server
}

// T looks up a message in the view's locale.
func (v *View) T(key string, args ...any) string {
	return v.s.app.Messages.T(v.Locale, key, args...)
}

// URL resolves a route key such as "calc:loan" in the view's locale.
func (v *View) URL(key string) string {
	return v.s.app.Catalog.URL(key, v.Locale)
}

func (v *View) Date(t time.Time) string {
	return i18n.Date(v.Locale, t)
}

func (v *View) ISODate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func (s *Server) newView(r *http.Request, locale string, meta seo.Metadata, page any) *View {
	rt := s.app.Catalog.Routes()
	other := i18n.Turkish
	if locale == i18n.Turkish {
		other = i18n.English
	}

	v := &View{
		Locale:      locale,
		Meta:        meta,
		Consent:     readConsent(r),
		AnalyticsID: s.app.Config.Analytics.MeasurementID,
		SwitchURL:   rt.Alternate(r.URL.Path, other),
		CurrentPath: r.URL.RequestURI(),
		Year:        s.now().Year(),
		Page:        page,
		s:           s,
	}
	for i := range s.app.Catalog.Categories {
		c := &s.app.Catalog.Categories[i]
		v.Categories = append(v.Categories, Link{
			URL:   s.app.Catalog.URL(catalog.RouteKey(catalog.KindCategory, c.ID), locale),
			Title: c.Text(locale).Title,
		})
	}
	for i := range s.app.Catalog.Pages {
		p := &s.app.Catalog.Pages[i]
		v.Footer = append(v.Footer, Link{
			URL:   s.app.Catalog.URL(catalog.RouteKey(catalog.KindPage, p.ID), locale),
			Title: p.Text(locale).Title,
		})
	}
	return v
}

// meta builds page metadata with hreflang alternates taken from the route
// table.
func (s *Server) meta(locale, key string, p seo.Page) seo.Metadata {
	p.Locale = locale
	if key != "" {
		p.Path = s.app.Catalog.URL(key, locale)
		p.Alternates = s.app.Catalog.Routes().Alternates(p.Path)
	}
	return s.app.Site.Build(p)
}

func (s *Server) jsonLD(values ...any) (template.HTML, error) {
	return seo.ScriptTag(values...)
}

// organization is the publisher of every page.
func (s *Server) organization() seo.Organization {
	site := s.app.Catalog.Site
	return seo.NewOrganization(s.app.Site.Name, s.app.Site.BaseURL,
		s.app.Site.Absolute(site.Logo), site.Email, site.Founded, site.SameAs)
}

func (s *Server) crumbs(locale string, trail ...seo.Crumb) seo.BreadcrumbList {
	home := seo.Crumb{
		Name: s.app.Messages.T(locale, "nav.home"),
		URL:  s.app.Site.Absolute(i18n.Path(locale, "")),
	}
	return seo.NewBreadcrumbList(append([]seo.Crumb{home}, trail...)...)
}
