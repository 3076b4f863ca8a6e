// Package sitemap renders the crawler-facing documents: XML sitemaps, the
// sitemap index, the image sitemap, RSS feeds and robots.txt.
package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hesapkit.com/internal/catalog"
	"hesapkit.com/internal/i18n"
	"hesapkit.com/internal/seo"
)

// Document paths.
const (
	SitemapPath      = "/sitemap.xml"
	IndexPath        = "/sitemap-index.xml"
	ImageSitemapPath = "/image-sitemap.xml"
	FeedPath         = "/feed.xml"
	RobotsPath       = "/robots.txt"
)

const (
	sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"
	xhtmlNS   = "http://www.w3.org/1999/xhtml"
	imageNS   = "http://www.google.com/schemas/sitemap-image/1.1"
	atomNS    = "http://www.w3.org/2005/Atom"
)

type Link struct {
	Rel      string `xml:"rel,attr"`
	HrefLang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

type URL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq,omitempty"`
	Priority   string  `xml:"priority,omitempty"`
	Links      []Link  `xml:"xhtml:link"`
	Images     []Image `xml:"image:image"`
}

type Image struct {
	Loc     string `xml:"image:loc"`
	Title   string `xml:"image:title,omitempty"`
	Caption string `xml:"image:caption,omitempty"`
}

type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	XHTML   string   `xml:"xmlns:xhtml,attr,omitempty"`
	ImageNS string   `xml:"xmlns:image,attr,omitempty"`
	URLs    []URL    `xml:"url"`
}

type Sitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type Index struct {
	XMLName  xml.Name  `xml:"sitemapindex"`
	XMLNS    string    `xml:"xmlns,attr"`
	Sitemaps []Sitemap `xml:"sitemap"`
}

// Generator renders documents from the catalog. It holds no mutable state.
type Generator struct {
	catalog *catalog.Catalog
	site    seo.Site
	titles  map[string]string
	descs   map[string]string
}

// FeedText sets the per-locale channel title and description of the feeds.
type FeedText struct {
	Title       string
	Description string
}

func New(c *catalog.Catalog, site seo.Site, feed map[string]FeedText) *Generator {
	g := &Generator{catalog: c, site: site, titles: map[string]string{}, descs: map[string]string{}}
	for l, t := range feed {
		g.titles[l] = t.Title
		g.descs[l] = t.Description
	}
	return g
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Sitemap lists every localized page with hreflang alternates. Each
// translation is its own <url> and repeats the full alternate set.
func (g *Generator) Sitemap() ([]byte, error) {
	set := URLSet{XMLNS: sitemapNS, XHTML: xhtmlNS}
	for _, e := range g.catalog.Entries() {
		links := g.links(e.Key)
		for _, l := range i18n.Locales {
			set.URLs = append(set.URLs, URL{
				Loc:        g.site.Absolute(g.catalog.URL(e.Key, l)),
				LastMod:    date(e.LastMod),
				ChangeFreq: e.ChangeFreq,
				Priority:   strconv.FormatFloat(e.Priority, 'f', 1, 64),
				Links:      links,
			})
		}
	}
	return encode(set)
}

func (g *Generator) links(key string) []Link {
	links := make([]Link, 0, len(i18n.Locales)+1)
	for _, l := range i18n.Locales {
		links = append(links, Link{Rel: "alternate", HrefLang: i18n.HTMLLang(l), Href: g.site.Absolute(g.catalog.URL(key, l))})
	}
	links = append(links, Link{Rel: "alternate", HrefLang: seo.XDefault, Href: g.site.Absolute(g.catalog.URL(key, i18n.Default))})
	return links
}

// Images lists the pages that carry an image, one <url> per locale.
func (g *Generator) Images() ([]byte, error) {
	set := URLSet{XMLNS: sitemapNS, ImageNS: imageNS}
	for _, e := range g.catalog.Entries() {
		if e.Image == "" {
			continue
		}
		for _, l := range i18n.Locales {
			set.URLs = append(set.URLs, URL{
				Loc: g.site.Absolute(g.catalog.URL(e.Key, l)),
				Images: []Image{{
					Loc:     g.site.Absolute(e.Image),
					Title:   e.Titles[l],
					Caption: e.Captions[l],
				}},
			})
		}
	}
	return encode(set)
}

// Index points at the page and image sitemaps.
func (g *Generator) Index() ([]byte, error) {
	mod := date(g.catalog.LastModified())
	return encode(Index{
		XMLNS: sitemapNS,
		Sitemaps: []Sitemap{
			{Loc: g.site.Absolute(SitemapPath), LastMod: mod},
			{Loc: g.site.Absolute(ImageSitemapPath), LastMod: mod},
		},
	})
}

// URLs returns the absolute URL of every localized page, in sitemap order.
func (g *Generator) URLs() []string {
	var urls []string
	for _, e := range g.catalog.Entries() {
		for _, l := range i18n.Locales {
			urls = append(urls, g.site.Absolute(g.catalog.URL(e.Key, l)))
		}
	}
	return urls
}

// Robots renders robots.txt. API endpoints are not crawlable.
func (g *Generator) Robots() []byte {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /api/\n\n")
	fmt.Fprintf(&b, "Sitemap: %s\n", g.site.Absolute(IndexPath))
	return []byte(b.String())
}
