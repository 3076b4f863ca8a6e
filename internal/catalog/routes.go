package catalog

import (
	"fmt"
	"strings"
	"time"

	"hesapkit.com/internal/i18n"
)

// Page kinds, the prefix of every route key.
const (
	KindHome       = "home"
	KindCategory   = "category"
	KindCalculator = "calc"
	KindGuides     = "guides"
	KindGuide      = "guide"
	KindPage       = "page"
)

// RouteKey builds the route table key of an entry: "calc:loan".
func RouteKey(kind, id string) string {
	if id == "" {
		return kind
	}
	return kind + ":" + id
}

// SplitKey is the inverse of RouteKey.
func SplitKey(key string) (kind, id string) {
	kind, id, _ = strings.Cut(key, ":")
	return kind, id
}

func (c *Catalog) buildRoutes() (*i18n.RouteTable, error) {
	rt := i18n.NewRouteTable()
	add := func(key string, slug func(locale string) string) error {
		paths := make(map[string]string, len(i18n.Locales))
		for _, l := range i18n.Locales {
			s := slug(l)
			if s == "" && key != KindHome {
				return fmt.Errorf("route %q has an empty %s slug", key, l)
			}
			paths[l] = "/" + s
		}
		return rt.Add(key, paths)
	}

	if err := add(KindHome, func(string) string { return "" }); err != nil {
		return nil, err
	}
	if err := add(KindGuides, func(l string) string { return c.GuidesIndex.Text(l).Slug }); err != nil {
		return nil, err
	}
	for i := range c.Categories {
		cat := &c.Categories[i]
		if err := add(RouteKey(KindCategory, cat.ID), func(l string) string { return cat.Text(l).Slug }); err != nil {
			return nil, err
		}
	}
	for i := range c.Calculators {
		calc := &c.Calculators[i]
		if err := add(RouteKey(KindCalculator, calc.ID), func(l string) string { return calc.Text(l).Slug }); err != nil {
			return nil, err
		}
	}
	for i := range c.Guides {
		g := &c.Guides[i]
		if err := add(RouteKey(KindGuide, g.ID), func(l string) string {
			return c.GuidesIndex.Text(l).Slug + "/" + g.Text(l).Slug
		}); err != nil {
			return nil, err
		}
	}
	for i := range c.Pages {
		p := &c.Pages[i]
		if err := add(RouteKey(KindPage, p.ID), func(l string) string { return p.Text(l).Slug }); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// URL returns the localized path of a route key, or the locale root when
// the key is unknown.
func (c *Catalog) URL(key, locale string) string {
	if p, ok := c.routes.URL(key, locale); ok {
		return p
	}
	return i18n.Path(locale, "")
}

// Entry is one localized page as listed in sitemaps.
type Entry struct {
	Key        string
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
	Image      string
	// Titles and Captions are keyed by locale; used by the image sitemap.
	Titles   map[string]string
	Captions map[string]string
}

// Entries lists every routable page with its crawl hints, home first.
func (c *Catalog) Entries() []Entry {
	latest := c.LastModified()
	entries := []Entry{
		{Key: KindHome, LastMod: latest, ChangeFreq: "daily", Priority: 1.0},
	}
	for i := range c.Categories {
		cat := &c.Categories[i]
		entries = append(entries, Entry{
			Key:        RouteKey(KindCategory, cat.ID),
			LastMod:    newestIn(c.InCategory(cat.ID)),
			ChangeFreq: "weekly",
			Priority:   0.8,
		})
	}
	for i := range c.Calculators {
		calc := &c.Calculators[i]
		priority := 0.8
		if calc.Popular {
			priority = 0.9
		}
		entries = append(entries, Entry{
			Key:        RouteKey(KindCalculator, calc.ID),
			LastMod:    calc.Updated,
			ChangeFreq: "monthly",
			Priority:   priority,
			Image:      calc.Image,
			Titles:     titles(calc.EN, calc.TR),
			Captions:   captions(calc.EN, calc.TR),
		})
	}
	guidesMod := time.Time{}
	if len(c.Guides) > 0 {
		guidesMod = c.Guides[0].LastModified()
	}
	entries = append(entries, Entry{Key: KindGuides, LastMod: guidesMod, ChangeFreq: "weekly", Priority: 0.6, Image: c.GuidesIndex.Image})
	for i := range c.Guides {
		g := &c.Guides[i]
		entries = append(entries, Entry{
			Key:        RouteKey(KindGuide, g.ID),
			LastMod:    g.LastModified(),
			ChangeFreq: "monthly",
			Priority:   0.6,
			Image:      g.Image,
			Titles:     titles(g.EN, g.TR),
			Captions: map[string]string{
				i18n.English: g.EN.Summary,
				i18n.Turkish: g.TR.Summary,
			},
		})
	}
	for i := range c.Pages {
		p := &c.Pages[i]
		entries = append(entries, Entry{
			Key:        RouteKey(KindPage, p.ID),
			LastMod:    p.Updated,
			ChangeFreq: "yearly",
			Priority:   0.3,
		})
	}
	return entries
}

func newestIn(calcs []*Calculator) time.Time {
	var t time.Time
	for _, c := range calcs {
		if c.Updated.After(t) {
			t = c.Updated
		}
	}
	return t
}

func titles(en, tr Text) map[string]string {
	return map[string]string{i18n.English: en.Title, i18n.Turkish: tr.Title}
}

func captions(en, tr Text) map[string]string {
	return map[string]string{i18n.English: en.Description, i18n.Turkish: tr.Description}
}
