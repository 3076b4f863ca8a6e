package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"hesapkit.com/internal/cache"
	"hesapkit.com/internal/i18n"
	"hesapkit.com/internal/logging"
)

const (
	xmlType   = "application/xml; charset=utf-8"
	rssType   = "application/rss+xml; charset=utf-8"
	plainType = "text/plain; charset=utf-8"
)

// document serves a generated file through the document cache. A broken
// cache backend is logged and the freshly built body is still served.
func (s *Server) document(w http.ResponseWriter, r *http.Request, key, contentType string, build func() ([]byte, error)) {
	body, err := s.app.Documents.Get(r.Context(), key, func(context.Context) ([]byte, error) {
		return build()
	})
	var backend *cache.BackendError
	if errors.As(err, &backend) && body != nil {
		logging.LogError(logging.Component(logging.FromContext(r.Context()), "documents"),
			"document cache unavailable", err)
		err = nil
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(body)
}

func (s *Server) sitemapXML(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.document(w, r, "sitemap.xml", xmlType, s.app.Sitemaps.Sitemap)
}

func (s *Server) sitemapIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.document(w, r, "sitemap-index.xml", xmlType, s.app.Sitemaps.Index)
}

func (s *Server) imageSitemap(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.document(w, r, "image-sitemap.xml", xmlType, s.app.Sitemaps.Images)
}

func (s *Server) defaultFeed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.feed(w, r, i18n.Default)
}

func (s *Server) feed(w http.ResponseWriter, r *http.Request, locale string) {
	s.document(w, r, "feed-"+locale+".xml", rssType, func() ([]byte, error) {
		return s.app.Sitemaps.Feed(locale)
	})
}

func (s *Server) robots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.document(w, r, "robots.txt", plainType, func() ([]byte, error) {
		return s.app.Sitemaps.Robots(), nil
	})
}

// indexNowKey serves the ownership proof IndexNow fetches from
// /<key>.txt.
func (s *Server) indexNowKey(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", plainType)
	_, _ = w.Write([]byte(s.app.Config.Indexing.IndexNowKey))
}
