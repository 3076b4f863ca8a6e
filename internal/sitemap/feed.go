package sitemap

import (
	"encoding/xml"
	"time"

	"hesapkit.com/internal/catalog"
	"hesapkit.com/internal/i18n"
)

type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Atom    string   `xml:"xmlns:atom,attr"`
	Channel Channel  `xml:"channel"`
}

type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type Channel struct {
	Title         string   `xml:"title"`
	Link          string   `xml:"link"`
	Description   string   `xml:"description"`
	Language      string   `xml:"language"`
	LastBuildDate string   `xml:"lastBuildDate,omitempty"`
	AtomLink      AtomLink `xml:"atom:link"`
	Items         []Item   `xml:"item"`
}

type GUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type Item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        GUID   `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// FeedURL is the path of a locale's feed. The default locale's feed lives
// at the root.
func FeedURL(locale string) string {
	if locale == i18n.Default {
		return FeedPath
	}
	return "/" + locale + FeedPath
}

// Feed renders the RSS 2.0 feed of guides for locale, newest first.
func (g *Generator) Feed(locale string) ([]byte, error) {
	guides := g.catalog.Guides
	ch := Channel{
		Title:       g.titles[locale],
		Link:        g.site.Absolute(g.catalog.URL(catalog.KindGuides, locale)),
		Description: g.descs[locale],
		Language:    i18n.HTMLLang(locale),
		AtomLink: AtomLink{
			Href: g.site.Absolute(FeedURL(locale)),
			Rel:  "self",
			Type: "application/rss+xml",
		},
	}
	if len(guides) > 0 {
		ch.LastBuildDate = guides[0].LastModified().Format(time.RFC1123Z)
	}
	for i := range guides {
		guide := &guides[i]
		text := guide.Text(locale)
		link := g.site.Absolute(g.catalog.URL(catalog.RouteKey(catalog.KindGuide, guide.ID), locale))
		ch.Items = append(ch.Items, Item{
			Title:       text.Title,
			Link:        link,
			GUID:        GUID{IsPermaLink: true, Value: link},
			Description: text.Summary,
			PubDate:     guide.Published.Format(time.RFC1123Z),
		})
	}
	return encode(RSS{Version: "2.0", Atom: atomNS, Channel: ch})
}
