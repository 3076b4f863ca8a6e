// Package web serves the localized pages, the calculator API, sitemaps and
// the indexing endpoints.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"hesapkit.com/internal/app"
	"hesapkit.com/internal/i18n"
	"hesapkit.com/internal/indexing"
	"hesapkit.com/internal/webui"
)

//go:embed static
var staticFS embed.FS

type Server struct {
	app     *app.Application
	views   *views
	limiter *rateLimiter
	now     func() time.Time
}

func New(a *app.Application) (*Server, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	proxies, err := a.Config.ProxyPrefixes()
	if err != nil {
		return nil, err
	}
	return &Server{
		app:     a,
		views:   v,
		limiter: newRateLimiter(a.Config.RateLimit, proxies),
		now:     time.Now,
	}, nil
}

// Run keeps background housekeeping going until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.limiter.run(ctx, time.Minute)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.routes()
	h = s.limiter.middleware(h)
	h = compression(DefaultCompressionConfig())(h)
	h = securityHeaders(s.app.Config.IsProduction())(h)
	h = requestLogging(s.app.Logger)(h)
	return h
}

func (s *Server) routes() *httprouter.Router {
	router := httprouter.New()
	router.RedirectTrailingSlash = true
	router.NotFound = http.HandlerFunc(s.notFound)
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		s.serverError(w, r, panicError{v})
	}

	router.GET("/", s.rootRedirect)
	router.GET("/healthz", s.healthz)
	for _, l := range i18n.Locales {
		router.GET("/"+l, s.page)
		router.GET("/"+l+"/*path", s.page)
	}

	static, _ := fs.Sub(staticFS, "static")
	router.ServeFiles("/static/*filepath", http.FS(static))

	router.GET("/sitemap.xml", s.sitemapXML)
	router.GET("/sitemap-index.xml", s.sitemapIndex)
	router.GET("/image-sitemap.xml", s.imageSitemap)
	router.GET("/feed.xml", s.defaultFeed)
	router.GET("/robots.txt", s.robots)
	if key := s.app.Config.Indexing.IndexNowKey; key != "" {
		router.GET(indexing.KeyFilePath(key), s.indexNowKey)
	}

	router.POST("/consent", wrap(s.consentHandler))
	router.GET("/api/consent", wrap(s.consentStatusHandler))
	router.GET("/api/calculators", s.listCalculators)
	router.GET("/api/calc/:id", s.calcAPI)
	router.POST("/api/calc/:id", s.calcAPI)
	router.GET("/api/history", wrap(s.historyHandler))
	router.DELETE("/api/history", wrap(s.clearHistoryHandler))
	router.GET("/api/ratings/:id", s.ratingHandler)
	router.POST("/api/ratings/:id", s.rateHandler)
	router.POST("/api/indexnow", wrap(s.indexNowHandler))
	router.POST("/api/google-indexing", wrap(s.googleIndexingHandler))

	if !s.app.Config.IsProduction() {
		webui.New(s.app).SetRoutes(router)
	}
	return router
}

func wrap(h http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h(w, r)
	}
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("panic: %v", p.v) }

func (s *Server) healthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// rootRedirect sends "/" to the visitor's preferred locale.
func (s *Server) rootRedirect(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	locale := i18n.Negotiate(r.Header.Get("Accept-Language"))
	w.Header().Add("Vary", "Accept-Language")
	http.Redirect(w, r, i18n.Path(locale, ""), http.StatusFound)
}
