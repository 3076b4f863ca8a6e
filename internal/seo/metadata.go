// Package seo builds page metadata and schema.org structured data.
package seo

import (
	"net/url"
	"sort"
	"strings"

	"hesapkit.com/internal/i18n"
)

// XDefault is the hreflang value for the fallback alternate.
const XDefault = "x-default"

// Site carries the site-wide values every page's metadata needs.
type Site struct {
	BaseURL      string
	Name         string
	TwitterSite  string
	DefaultImage string
}

// Absolute resolves a site path against BaseURL. Absolute URLs pass through.
func (s Site) Absolute(path string) string {
	if path == "" {
		return ""
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

type Alternate struct {
	HrefLang string
	Href     string
}

type OpenGraph struct {
	Type             string
	Title            string
	Description      string
	URL              string
	Image            string
	SiteName         string
	Locale           string
	AlternateLocales []string
}

type Twitter struct {
	Card        string
	Site        string
	Title       string
	Description string
	Image       string
}

// Metadata is everything rendered into a page's <head>.
type Metadata struct {
	Lang        string
	Title       string
	Description string
	Keywords    []string
	Canonical   string
	Robots      string
	Alternates  []Alternate
	OpenGraph   OpenGraph
	Twitter     Twitter
}

// KeywordList joins keywords for the meta tag.
func (m Metadata) KeywordList() string {
	return strings.Join(m.Keywords, ", ")
}

// Page describes one page for Build. Paths are site-relative.
type Page struct {
	Locale      string
	Path        string
	Title       string
	Description string
	Keywords    []string
	Image       string
	// Alternates maps locale to the path of each translation, including
	// this page's own locale.
	Alternates map[string]string
	Article    bool
	NoIndex    bool
}

// Build assembles the metadata of a page. The title gets the site name as
// suffix unless it already is the site name.
func (s Site) Build(p Page) Metadata {
	title := p.Title
	if title == "" {
		title = s.Name
	} else if title != s.Name {
		title = title + " | " + s.Name
	}

	canonical := s.Absolute(p.Path)
	image := p.Image
	if image == "" {
		image = s.DefaultImage
	}
	image = s.Absolute(image)

	robots := "index, follow, max-image-preview:large"
	if p.NoIndex {
		robots = "noindex, follow"
	}

	ogType := "website"
	if p.Article {
		ogType = "article"
	}

	m := Metadata{
		Lang:        i18n.HTMLLang(p.Locale),
		Title:       title,
		Description: p.Description,
		Keywords:    p.Keywords,
		Canonical:   canonical,
		Robots:      robots,
		Alternates:  s.alternates(p.Alternates),
		OpenGraph: OpenGraph{
			Type:        ogType,
			Title:       title,
			Description: p.Description,
			URL:         canonical,
			Image:       image,
			SiteName:    s.Name,
			Locale:      i18n.OGLocale(p.Locale),
		},
		Twitter: Twitter{
			Card:        "summary_large_image",
			Site:        s.TwitterSite,
			Title:       title,
			Description: p.Description,
			Image:       image,
		},
	}
	for _, l := range i18n.Locales {
		if _, ok := p.Alternates[l]; ok && l != p.Locale {
			m.OpenGraph.AlternateLocales = append(m.OpenGraph.AlternateLocales, i18n.OGLocale(l))
		}
	}
	return m
}

// alternates renders hreflang links in locale order, followed by x-default
// pointing at the default locale.
func (s Site) alternates(paths map[string]string) []Alternate {
	if len(paths) == 0 {
		return nil
	}
	locales := make([]string, 0, len(paths))
	for l := range paths {
		locales = append(locales, l)
	}
	sort.Strings(locales)

	out := make([]Alternate, 0, len(paths)+1)
	for _, l := range locales {
		out = append(out, Alternate{HrefLang: i18n.HTMLLang(l), Href: s.Absolute(paths[l])})
	}
	if def, ok := paths[i18n.Default]; ok {
		out = append(out, Alternate{HrefLang: XDefault, Href: s.Absolute(def)})
	}
	return out
}
