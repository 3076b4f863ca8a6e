// Package app wires configuration, content and stores into the
// Application shared by the HTTP layer and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"hesapkit.com/internal/appconf"
	"hesapkit.com/internal/cache"
	"hesapkit.com/internal/calc"
	"hesapkit.com/internal/catalog"
	"hesapkit.com/internal/engagement"
	"hesapkit.com/internal/i18n"
	"hesapkit.com/internal/indexing"
	"hesapkit.com/internal/logging"
	"hesapkit.com/internal/rates"
	"hesapkit.com/internal/seo"
	"hesapkit.com/internal/sitemap"
)

// Application holds the dependencies of handlers and commands.
type Application struct {
	Config   *appconf.Config
	Logger   *slog.Logger
	Messages *i18n.Bundle
	Catalog  *catalog.Catalog
	Engine   *calc.Engine
	Site     seo.Site
	Sitemaps *sitemap.Generator

	Store     engagement.Store
	Cache     cache.Cache
	Documents *cache.Group

	Notifier *indexing.Notifier
	IndexNow *indexing.IndexNow
	// Google is nil unless service-account credentials are configured.
	Google *indexing.Google

	closers []func() error
}

// New builds an Application from cfg. Close releases what it opened.
func New(ctx context.Context, cfg *appconf.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &Application{Config: cfg, Logger: logger}

	var err error
	if a.Messages, err = i18n.LoadBundle(); err != nil {
		return nil, err
	}
	if a.Catalog, err = catalog.Load(); err != nil {
		return nil, err
	}
	a.Engine = calc.NewEngine(rates.Default())

	a.Site = seo.Site{
		BaseURL:      cfg.BaseURL,
		Name:         cfg.SiteName,
		TwitterSite:  cfg.Twitter,
		DefaultImage: "/static/img/og-default.png",
	}
	feeds := make(map[string]sitemap.FeedText, len(i18n.Locales))
	for _, l := range i18n.Locales {
		feeds[l] = sitemap.FeedText{
			Title:       a.Messages.T(l, "feed.title"),
			Description: a.Messages.T(l, "feed.description"),
		}
	}
	a.Sitemaps = sitemap.New(a.Catalog, a.Site, feeds)

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if err := a.openCache(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.setupIndexing(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) openStore(ctx context.Context) error {
	switch a.Config.Engagement.Store {
	case appconf.StoreSQLite:
		s, err := engagement.OpenSQLite(ctx, a.Config.Engagement.Path, logging.Component(a.Logger, "engagement"))
		if err != nil {
			return err
		}
		a.Store = s
	default:
		a.Store = engagement.NewMemory()
	}
	a.closers = append(a.closers, a.Store.Close)
	return nil
}

func (a *Application) openCache(ctx context.Context) error {
	rc := a.Config.Redis
	if rc.Addr == "" {
		mem := cache.NewMemory()
		a.Cache = mem
		a.Documents = cache.NewGroup(mem, a.Config.CacheDuration())
		return nil
	}

	r := cache.NewRedis(rc.Addr, rc.Password, rc.DB, rc.Prefix)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		logging.SafeCloseWithLogging(r, a.Logger, "close redis after failed ping")
		return fmt.Errorf("connecting to redis at %s: %w", rc.Addr, err)
	}
	a.Cache = r
	a.Documents = cache.NewGroup(r, a.Config.CacheDuration())
	a.closers = append(a.closers, r.Close)
	return nil
}

func (a *Application) setupIndexing(ctx context.Context) error {
	ic := a.Config.Indexing
	logger := logging.Component(a.Logger, "indexing")
	client := &http.Client{Timeout: 30 * time.Second}

	a.Notifier = indexing.NewNotifier(logger, indexing.WithConcurrency(ic.Concurrency))
	if ic.IndexNowKey != "" {
		a.IndexNow = &indexing.IndexNow{
			Host:        a.Config.Host(),
			Key:         ic.IndexNowKey,
			KeyLocation: a.Site.Absolute(indexing.KeyFilePath(ic.IndexNowKey)),
			Endpoints:   ic.IndexNowEndpoints,
			Client:      client,
			Logger:      logger,
		}
	}
	if ic.GoogleCredentials != "" {
		gc, err := indexing.NewGoogleHTTPClientFromFile(ctx, ic.GoogleCredentials)
		if err != nil {
			return err
		}
		gc.Timeout = 30 * time.Second
		a.Google = &indexing.Google{Client: gc, Logger: logger}
	}
	return nil
}

// RequestHasInvalidIndexingSecret checks the shared-secret header of an
// indexing request.
func (a *Application) RequestHasInvalidIndexingSecret(r *http.Request) bool {
	return a.IsInvalidIndexingSecret(r.Header.Get(indexing.SecretHeader))
}

func (a *Application) IsInvalidIndexingSecret(secret string) bool {
	return indexing.Authorize(secret, a.Config.Indexing.Secret) != nil
}

// Close releases stores and cache connections in reverse order of opening.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
