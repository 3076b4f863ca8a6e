// Package catalog holds the site's content: categories, calculators,
// guides and legal pages, each with per-locale text.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"

	"hesapkit.com/internal/i18n"
)

//go:embed content.toml
var defaultContent []byte

var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

type FAQ struct {
	Question string `toml:"q"`
	Answer   string `toml:"a"`
}

// Text is the localized part of any entry. Not every field applies to every
// kind of entry.
type Text struct {
	Slug        string   `toml:"slug"`
	Title       string   `toml:"title"`
	Description string   `toml:"description"`
	Summary     string   `toml:"summary"`
	Keywords    []string `toml:"keywords"`
	HowTo       []string `toml:"howto"`
	FAQ         []FAQ    `toml:"faq"`
	Body        []string `toml:"body"`
}

type Site struct {
	Founded string   `toml:"founded"`
	Email   string   `toml:"email"`
	Logo    string   `toml:"logo"`
	SameAs  []string `toml:"same_as"`
}

type Category struct {
	ID          string `toml:"id"`
	Order       int    `toml:"order"`
	AppCategory string `toml:"app_category"`
	EN          Text   `toml:"en"`
	TR          Text   `toml:"tr"`
}

type Calculator struct {
	ID         string `toml:"id"`
	Category   string `toml:"category"`
	Image      string `toml:"image"`
	UpdatedRaw string `toml:"updated"`
	Popular    bool   `toml:"popular"`
	EN         Text   `toml:"en"`
	TR         Text   `toml:"tr"`

	Updated time.Time `toml:"-"`
}

type Guide struct {
	ID           string   `toml:"id"`
	Author       string   `toml:"author"`
	PublishedRaw string   `toml:"published"`
	UpdatedRaw   string   `toml:"updated"`
	Image        string   `toml:"image"`
	Calculators  []string `toml:"calculators"`
	EN           Text     `toml:"en"`
	TR           Text     `toml:"tr"`

	Published time.Time `toml:"-"`
	Updated   time.Time `toml:"-"`
}

type Page struct {
	ID         string `toml:"id"`
	UpdatedRaw string `toml:"updated"`
	EN         Text   `toml:"en"`
	TR         Text   `toml:"tr"`

	Updated time.Time `toml:"-"`
}

// GuidesIndex describes the guide listing page.
type GuidesIndex struct {
	Image string `toml:"image"`
	EN    Text   `toml:"en"`
	TR    Text   `toml:"tr"`
}

func (c *Category) Text(locale string) Text   { return pick(locale, c.EN, c.TR) }
func (c *Calculator) Text(locale string) Text { return pick(locale, c.EN, c.TR) }
func (g *Guide) Text(locale string) Text      { return pick(locale, g.EN, g.TR) }
func (p *Page) Text(locale string) Text       { return pick(locale, p.EN, p.TR) }
func (g *GuidesIndex) Text(locale string) Text {
	return pick(locale, g.EN, g.TR)
}

func pick(locale string, en, tr Text) Text {
	if locale == i18n.Turkish {
		return tr
	}
	return en
}

// LastModified is the newer of the published and updated dates.
func (g *Guide) LastModified() time.Time {
	if g.Updated.After(g.Published) {
		return g.Updated
	}
	return g.Published
}

// Catalog is the decoded content document. It is read-only after Parse.
type Catalog struct {
	Site        Site         `toml:"site"`
	GuidesIndex GuidesIndex  `toml:"guides_index"`
	Categories  []Category   `toml:"category"`
	Calculators []Calculator `toml:"calculator"`
	Guides      []Guide      `toml:"guide"`
	Pages       []Page       `toml:"page"`

	calcByID map[string]*Calculator
	routes   *i18n.RouteTable
}

// Load decodes the embedded content.
func Load() (*Catalog, error) {
	return Parse(defaultContent)
}

// Parse decodes a content document, checks references between entries and
// builds the locale route table.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if _, err := toml.Decode(string(data), &c); err != nil {
		return nil, fmt.Errorf("decoding content: %w", err)
	}

	sort.SliceStable(c.Categories, func(i, j int) bool { return c.Categories[i].Order < c.Categories[j].Order })

	categories := lo.SliceToMap(c.Categories, func(cat Category) (string, bool) { return cat.ID, true })
	for i := range c.Calculators {
		calc := &c.Calculators[i]
		if !categories[calc.Category] {
			return nil, fmt.Errorf("calculator %q: unknown category %q", calc.ID, calc.Category)
		}
		var err error
		if calc.Updated, err = parseDate(calc.UpdatedRaw); err != nil {
			return nil, fmt.Errorf("calculator %q: %w", calc.ID, err)
		}
	}

	c.calcByID = make(map[string]*Calculator, len(c.Calculators))
	for i := range c.Calculators {
		c.calcByID[c.Calculators[i].ID] = &c.Calculators[i]
	}

	for i := range c.Guides {
		g := &c.Guides[i]
		var err error
		if g.Published, err = parseDate(g.PublishedRaw); err != nil {
			return nil, fmt.Errorf("guide %q: %w", g.ID, err)
		}
		if g.UpdatedRaw != "" {
			if g.Updated, err = parseDate(g.UpdatedRaw); err != nil {
				return nil, fmt.Errorf("guide %q: %w", g.ID, err)
			}
		}
		for _, id := range g.Calculators {
			if _, ok := c.calcByID[id]; !ok {
				return nil, fmt.Errorf("guide %q: unknown calculator %q", g.ID, id)
			}
		}
	}
	// Newest first.
	sort.SliceStable(c.Guides, func(i, j int) bool { return c.Guides[i].Published.After(c.Guides[j].Published) })

	for i := range c.Pages {
		var err error
		if c.Pages[i].Updated, err = parseDate(c.Pages[i].UpdatedRaw); err != nil {
			return nil, fmt.Errorf("page %q: %w", c.Pages[i].ID, err)
		}
	}

	routes, err := c.buildRoutes()
	if err != nil {
		return nil, err
	}
	c.routes = routes
	return &c, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// Routes returns the locale route table of every page in the catalog.
func (c *Catalog) Routes() *i18n.RouteTable {
	return c.routes
}

func (c *Catalog) Calculator(id string) (*Calculator, error) {
	calc, ok := c.calcByID[id]
	if !ok {
		return nil, fmt.Errorf("calculator %q: %w", id, ErrNotFound)
	}
	return calc, nil
}

func (c *Catalog) Category(id string) (*Category, error) {
	for i := range c.Categories {
		if c.Categories[i].ID == id {
			return &c.Categories[i], nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", id, ErrNotFound)
}

func (c *Catalog) Guide(id string) (*Guide, error) {
	for i := range c.Guides {
		if c.Guides[i].ID == id {
			return &c.Guides[i], nil
		}
	}
	return nil, fmt.Errorf("guide %q: %w", id, ErrNotFound)
}

func (c *Catalog) Page(id string) (*Page, error) {
	for i := range c.Pages {
		if c.Pages[i].ID == id {
			return &c.Pages[i], nil
		}
	}
	return nil, fmt.Errorf("page %q: %w", id, ErrNotFound)
}

// CalculatorBySlug finds a calculator by its slug in locale.
func (c *Catalog) CalculatorBySlug(locale, slug string) (*Calculator, error) {
	for i := range c.Calculators {
		if c.Calculators[i].Text(locale).Slug == slug {
			return &c.Calculators[i], nil
		}
	}
	return nil, fmt.Errorf("calculator slug %s/%s: %w", locale, slug, ErrNotFound)
}

// InCategory lists the calculators of a category in catalog order.
func (c *Catalog) InCategory(categoryID string) []*Calculator {
	var out []*Calculator
	for i := range c.Calculators {
		if c.Calculators[i].Category == categoryID {
			out = append(out, &c.Calculators[i])
		}
	}
	return out
}

// Popular lists calculators flagged for the home page.
func (c *Catalog) Popular() []*Calculator {
	all := lo.ToSlicePtr(c.Calculators)
	return lo.Filter(all, func(calc *Calculator, _ int) bool { return calc.Popular })
}

// Related returns up to n other calculators from the same category.
func (c *Catalog) Related(id string, n int) []*Calculator {
	calc, ok := c.calcByID[id]
	if !ok || n <= 0 {
		return nil
	}
	siblings := lo.Filter(c.InCategory(calc.Category), func(other *Calculator, _ int) bool {
		return other.ID != id
	})
	if len(siblings) > n {
		siblings = siblings[:n]
	}
	return siblings
}

// GuidesFor lists guides that reference a calculator, newest first.
func (c *Catalog) GuidesFor(calculatorID string) []*Guide {
	all := lo.ToSlicePtr(c.Guides)
	return lo.Filter(all, func(g *Guide, _ int) bool {
		return lo.Contains(g.Calculators, calculatorID)
	})
}

// LastModified is the newest date anywhere in the catalog.
func (c *Catalog) LastModified() time.Time {
	var latest time.Time
	bump := func(t time.Time) {
		if t.After(latest) {
			latest = t
		}
	}
	for i := range c.Calculators {
		bump(c.Calculators[i].Updated)
	}
	for i := range c.Guides {
		bump(c.Guides[i].LastModified())
	}
	for i := range c.Pages {
		bump(c.Pages[i].Updated)
	}
	return latest
}
