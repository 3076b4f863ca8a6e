package sitemap

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesapkit.com/internal/catalog"
	"hesapkit.com/internal/i18n"
	"hesapkit.com/internal/seo"
)

func newGenerator(t *testing.T) (*Generator, *catalog.Catalog) {
	t.Helper()
	c, err := catalog.Load()
	require.NoError(t, err)
	site := seo.Site{BaseURL: "https://hesapkit.com", Name: "HesapKit"}
	return New(c, site, map[string]FeedText{
		i18n.English: {Title: "HesapKit guides", Description: "New guides"},
		i18n.Turkish: {Title: "HesapKit rehberleri", Description: "Yeni rehberler"},
	}), c
}

// Decoding namespaced names back needs local names only.
type parsedURLSet struct {
	URLs []struct {
		Loc        string `xml:"loc"`
		LastMod    string `xml:"lastmod"`
		ChangeFreq string `xml:"changefreq"`
		Priority   string `xml:"priority"`
		Links      []struct {
			HrefLang string `xml:"hreflang,attr"`
			Href     string `xml:"href,attr"`
		} `xml:"link"`
		Images []struct {
			Loc   string `xml:"loc"`
			Title string `xml:"title"`
		} `xml:"image"`
	} `xml:"url"`
}

func TestSitemap(t *testing.T) {
	g, c := newGenerator(t)

	data, err := g.Sitemap()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))
	assert.Contains(t, string(data), `xmlns:xhtml="http://www.w3.org/1999/xhtml"`)
	assert.Contains(t, string(data), `<xhtml:link rel="alternate" hreflang="tr"`)

	var set parsedURLSet
	require.NoError(t, xml.Unmarshal(data, &set))
	assert.Len(t, set.URLs, len(c.Entries())*len(i18n.Locales))

	home := set.URLs[0]
	assert.Equal(t, "https://hesapkit.com/en", home.Loc)
	assert.Equal(t, "1.0", home.Priority)
	assert.Equal(t, "daily", home.ChangeFreq)

	var loanTR bool
	for _, u := range set.URLs {
		if u.Loc != "https://hesapkit.com/tr/kredi-hesaplama" {
			continue
		}
		loanTR = true
		assert.Equal(t, "2025-01-15", u.LastMod)
		got := map[string]string{}
		for _, l := range u.Links {
			got[l.HrefLang] = l.Href
		}
		want := map[string]string{
			"en":        "https://hesapkit.com/en/loan-calculator",
			"tr":        "https://hesapkit.com/tr/kredi-hesaplama",
			"x-default": "https://hesapkit.com/en/loan-calculator",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("alternates mismatch (-want +got):\n%s", diff)
		}
	}
	assert.True(t, loanTR, "turkish loan page missing from sitemap")
}

func TestImages(t *testing.T) {
	g, _ := newGenerator(t)

	data, err := g.Images()
	require.NoError(t, err)
	assert.Contains(t, string(data), `xmlns:image="http://www.google.com/schemas/sitemap-image/1.1"`)

	var set parsedURLSet
	require.NoError(t, xml.Unmarshal(data, &set))
	require.NotEmpty(t, set.URLs)
	for _, u := range set.URLs {
		require.Len(t, u.Images, 1, u.Loc)
		assert.True(t, strings.HasPrefix(u.Images[0].Loc, "https://hesapkit.com/static/img/"))
	}
}

func TestIndex(t *testing.T) {
	g, c := newGenerator(t)

	data, err := g.Index()
	require.NoError(t, err)

	var idx struct {
		Sitemaps []Sitemap `xml:"sitemap"`
	}
	require.NoError(t, xml.Unmarshal(data, &idx))
	want := []Sitemap{
		{Loc: "https://hesapkit.com/sitemap.xml", LastMod: c.LastModified().Format(time.DateOnly)},
		{Loc: "https://hesapkit.com/image-sitemap.xml", LastMod: c.LastModified().Format(time.DateOnly)},
	}
	if diff := cmp.Diff(want, idx.Sitemaps); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestFeed(t *testing.T) {
	g, c := newGenerator(t)

	for _, locale := range i18n.Locales {
		t.Run(locale, func(t *testing.T) {
			data, err := g.Feed(locale)
			require.NoError(t, err)

			var rss struct {
				Version string `xml:"version,attr"`
				Channel struct {
					Title    string `xml:"title"`
					Language string `xml:"language"`
					Items    []struct {
						Title   string `xml:"title"`
						Link    string `xml:"link"`
						PubDate string `xml:"pubDate"`
					} `xml:"item"`
				} `xml:"channel"`
			}
			require.NoError(t, xml.Unmarshal(data, &rss))
			assert.Equal(t, "2.0", rss.Version)
			assert.Equal(t, locale, rss.Channel.Language)
			require.Len(t, rss.Channel.Items, len(c.Guides))

			var prev time.Time
			for i, item := range rss.Channel.Items {
				pub, err := time.Parse(time.RFC1123Z, item.PubDate)
				require.NoError(t, err)
				if i > 0 {
					assert.False(t, pub.After(prev), "feed must be newest first")
				}
				prev = pub
				assert.True(t, strings.HasPrefix(item.Link, "https://hesapkit.com/"+locale+"/"))
			}
		})
	}

	assert.Equal(t, "/feed.xml", FeedURL(i18n.English))
	assert.Equal(t, "/tr/feed.xml", FeedURL(i18n.Turkish))
}

func TestRobotsAndURLs(t *testing.T) {
	g, c := newGenerator(t)

	robots := string(g.Robots())
	assert.Contains(t, robots, "Disallow: /api/\n")
	assert.Contains(t, robots, "Sitemap: https://hesapkit.com/sitemap-index.xml\n")

	urls := g.URLs()
	assert.Len(t, urls, len(c.Entries())*len(i18n.Locales))
	assert.Contains(t, urls, "https://hesapkit.com/tr/bes-hesaplama")
}
