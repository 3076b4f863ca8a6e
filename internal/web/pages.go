package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"

	"hesapkit.com/internal/calc"
	"hesapkit.com/internal/catalog"
	"hesapkit.com/internal/engagement"
	"hesapkit.com/internal/i18n"
	"hesapkit.com/internal/logging"
	"hesapkit.com/internal/seo"
	"hesapkit.com/internal/sitemap"
)

const (
	relatedCount = 4
	historyShown = 10
	latestGuides = 3
)

var searchSlugs = map[string]string{
	i18n.English: "search",
	i18n.Turkish: "ara",
}

// searchPath is the localized search page, the target of the WebSite
// SearchAction.
func searchPath(locale string) string {
	return i18n.Path(locale, searchSlugs[locale])
}

// page dispatches every localized path through the catalog route table.
func (s *Server) page(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	locale, rest, ok := i18n.SplitPath(r.URL.Path)
	if !ok {
		s.notFound(w, r)
		return
	}
	if rest == sitemap.FeedPath && locale != i18n.Default {
		s.feed(w, r, locale)
		return
	}
	if r.URL.Path == searchPath(locale) {
		s.searchPage(w, r, locale)
		return
	}

	key, ok := s.app.Catalog.Routes().Key(r.URL.Path)
	if !ok {
		s.notFound(w, r)
		return
	}
	kind, id := catalog.SplitKey(key)
	switch kind {
	case catalog.KindHome:
		s.homePage(w, r, locale)
	case catalog.KindCategory:
		s.categoryPage(w, r, locale, id)
	case catalog.KindCalculator:
		s.calculatorPage(w, r, locale, id)
	case catalog.KindGuides:
		s.guidesPage(w, r, locale)
	case catalog.KindGuide:
		s.guidePage(w, r, locale, id)
	case catalog.KindPage:
		s.legalPage(w, r, locale, id)
	default:
		s.notFound(w, r)
	}
}

func (s *Server) calcLink(c *catalog.Calculator, locale string) Link {
	t := c.Text(locale)
	return Link{
		URL:     s.app.Catalog.URL(catalog.RouteKey(catalog.KindCalculator, c.ID), locale),
		Title:   t.Title,
		Summary: t.Summary,
	}
}

func (s *Server) guideLink(g *catalog.Guide, locale string) Link {
	t := g.Text(locale)
	return Link{
		URL:     s.app.Catalog.URL(catalog.RouteKey(catalog.KindGuide, g.ID), locale),
		Title:   t.Title,
		Summary: t.Summary,
	}
}

type CategoryCard struct {
	Link
	Count string
}

type HomePage struct {
	Tagline    string
	Popular    []Link
	Categories []CategoryCard
	Guides     []Link
	SearchURL  string
}

func (s *Server) homePage(w http.ResponseWriter, r *http.Request, locale string) {
	c := s.app.Catalog
	msg := s.app.Messages
	page := HomePage{
		Tagline:   msg.T(locale, "site.tagline"),
		SearchURL: searchPath(locale),
		Popular: lo.Map(c.Popular(), func(pc *catalog.Calculator, _ int) Link {
			return s.calcLink(pc, locale)
		}),
	}
	for i := range c.Categories {
		cat := &c.Categories[i]
		t := cat.Text(locale)
		page.Categories = append(page.Categories, CategoryCard{
			Link: Link{
				URL:     c.URL(catalog.RouteKey(catalog.KindCategory, cat.ID), locale),
				Title:   t.Title,
				Summary: t.Description,
			},
			Count: msg.T(locale, "ui.count", len(c.InCategory(cat.ID))),
		})
	}
	for i := range c.Guides {
		if i == latestGuides {
			break
		}
		page.Guides = append(page.Guides, s.guideLink(&c.Guides[i], locale))
	}

	meta := s.meta(locale, catalog.KindHome, seo.Page{
		Title:       msg.T(locale, "site.tagline"),
		Description: msg.T(locale, "site.description"),
	})
	v := s.newView(r, locale, meta, page)
	site := seo.NewWebSite(s.app.Site.Name, s.app.Site.Absolute(i18n.Path(locale, "")),
		i18n.HTMLLang(locale), msg.T(locale, "site.description"),
		s.app.Site.Absolute(searchPath(locale))+"?q={search_term_string}")
	if !s.withJSONLD(w, r, v, site, s.organization()) {
		return
	}
	s.render(w, r, http.StatusOK, "home", v)
}

// withJSONLD attaches structured data to v, answering 500 on failure.
func (s *Server) withJSONLD(w http.ResponseWriter, r *http.Request, v *View, values ...any) bool {
	tag, err := s.jsonLD(values...)
	if err != nil {
		s.serverError(w, r, err)
		return false
	}
	v.JSONLD = tag
	return true
}

type CategoryPage struct {
	Title       string
	Description string
	Summary     string
	Calculators []Link
}

func (s *Server) categoryPage(w http.ResponseWriter, r *http.Request, locale, id string) {
	cat, err := s.app.Catalog.Category(id)
	if err != nil {
		s.notFound(w, r)
		return
	}
	t := cat.Text(locale)
	page := CategoryPage{
		Title:       t.Title,
		Description: t.Description,
		Summary:     t.Summary,
		Calculators: lo.Map(s.app.Catalog.InCategory(id), func(c *catalog.Calculator, _ int) Link {
			return s.calcLink(c, locale)
		}),
	}
	key := catalog.RouteKey(catalog.KindCategory, id)
	meta := s.meta(locale, key, seo.Page{Title: t.Title, Description: t.Description, Keywords: t.Keywords})
	v := s.newView(r, locale, meta, page)
	crumbs := s.crumbs(locale, seo.Crumb{Name: t.Title, URL: meta.Canonical})
	if !s.withJSONLD(w, r, v, crumbs) {
		return
	}
	s.render(w, r, http.StatusOK, "category", v)
}

// Option is one choice of a select field.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Field is one rendered form control.
type Field struct {
	Name     string
	ID       string
	Label    string
	Type     string
	Mode     string // inputmode of text fields holding numbers
	Value    string
	Optional bool
	Options  []Option
	Errors   []string
}

// FieldGroup is a form row: a single field, or one row of repeated fields.
type FieldGroup struct {
	Caption string
	Fields  []Field
}

type CalculatorPage struct {
	ID          string
	Title       string
	Description string
	Summary     string
	HowTo       []string
	FAQ         []catalog.FAQ
	Category    Link
	Updated     time.Time

	Action    string
	Groups    []FieldGroup
	Submitted bool
	Invalid   bool
	Result    *ResultView

	Rating       engagement.Rating
	RatingText   string
	RatingAction string
	Scores       []int
	CanRate      bool
	Rated        bool

	History []HistoryItem
	Related []Link
	Guides  []Link
}

func (s *Server) field(locale, calculator string, in calc.Input, row int, value string) Field {
	f := Field{
		Name:     in.Name,
		ID:       "f-" + in.Name,
		Label:    s.app.Messages.InputLabel(locale, calculator, in.Name),
		Value:    value,
		Optional: in.Optional,
	}
	if in.Repeat > 0 {
		f.ID = fmt.Sprintf("f-%s-%d", in.Name, row)
	}
	switch in.Kind {
	case calc.InputDate:
		f.Type = "date"
	case calc.InputSelect:
		f.Type = "select"
		for _, o := range in.OptionsFor(locale) {
			f.Options = append(f.Options, Option{
				Value:    o,
				Label:    s.app.Messages.Option(locale, in.Name, o),
				Selected: o == value,
			})
		}
	case calc.InputInteger:
		// Text rather than number so values keep the locale's separators.
		f.Type, f.Mode = "text", "numeric"
	default:
		f.Type, f.Mode = "text", "decimal"
	}
	return f
}

// formGroups lays out the calculator form. Submitted values win over
// defaults; errors are attached per field, or per row for repeated fields.
func (s *Server) formGroups(locale, calculator string, inputs []calc.Input, params map[string][]string, errs map[string][]string) []FieldGroup {
	var groups []FieldGroup
	rows := 0
	for _, in := range inputs {
		if in.Repeat > rows {
			rows = in.Repeat
		}
	}

	value := func(in calc.Input, i int) string {
		if vals := params[in.Name]; i < len(vals) {
			return vals[i]
		}
		if len(params) > 0 && in.Repeat > 0 {
			return ""
		}
		return in.Default
	}

	for _, in := range inputs {
		if in.Repeat > 0 {
			continue
		}
		f := s.field(locale, calculator, in, 0, value(in, 0))
		f.Errors = errs[in.Name]
		groups = append(groups, FieldGroup{Fields: []Field{f}})
	}
	for i := 0; i < rows; i++ {
		g := FieldGroup{Caption: s.app.Messages.T(locale, "ui.row", i+1)}
		for _, in := range inputs {
			if in.Repeat <= i {
				continue
			}
			f := s.field(locale, calculator, in, i, value(in, i))
			f.Errors = lo.Flatten([][]string{errs[fmt.Sprintf("%s.%d", in.Name, i)], errs[in.Name]})
			g.Fields = append(g.Fields, f)
		}
		groups = append(groups, g)
	}
	return groups
}

func (s *Server) calculatorPage(w http.ResponseWriter, r *http.Request, locale, id string) {
	ctx := r.Context()
	logger := logging.Component(logging.FromContext(ctx), "pages")
	c, err := s.app.Catalog.Calculator(id)
	if err != nil {
		s.notFound(w, r)
		return
	}
	inputs, err := s.app.Engine.Inputs(id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	t := c.Text(locale)
	key := catalog.RouteKey(catalog.KindCalculator, id)
	path := s.app.Catalog.URL(key, locale)
	consent := readConsent(r)
	page := CalculatorPage{
		ID:           id,
		Title:        t.Title,
		Description:  t.Description,
		Summary:      t.Summary,
		HowTo:        t.HowTo,
		FAQ:          t.FAQ,
		Updated:      c.Updated,
		Action:       path,
		RatingAction: "/api/ratings/" + id,
		Scores:       []int{5, 4, 3, 2, 1},
		CanRate:      consent.Functional,
		Rated:        r.URL.Query().Get("rated") == "1",
		Related: lo.Map(s.app.Catalog.Related(id, relatedCount), func(rc *catalog.Calculator, _ int) Link {
			return s.calcLink(rc, locale)
		}),
		Guides: lo.Map(s.app.Catalog.GuidesFor(id), func(g *catalog.Guide, _ int) Link {
			return s.guideLink(g, locale)
		}),
	}
	cat, err := s.app.Catalog.Category(c.Category)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	page.Category = Link{
		URL:   s.app.Catalog.URL(catalog.RouteKey(catalog.KindCategory, cat.ID), locale),
		Title: cat.Text(locale).Title,
	}

	params := r.URL.Query()
	var fieldErrs map[string][]string
	if s.app.Engine.HasInput(id, params) {
		page.Submitted = true
		ev, err := s.app.Engine.Evaluate(id, params, i18n.Numbers(locale))
		if err != nil {
			m, ok := s.fieldErrors(locale, err)
			if !ok {
				s.serverError(w, r, err)
				return
			}
			page.Invalid = true
			fieldErrs = m
		} else {
			query := canonicalQuery(inputs, params)
			page.Result = s.resultView(locale, ev, s.app.Site.Absolute(path+"?"+query))
			if consent.Functional {
				s.recordHistory(w, r, locale, ev, query)
			}
		}
	}
	page.Groups = s.formGroups(locale, id, inputs, lo.Ternary(page.Submitted, params, nil), fieldErrs)

	rating, err := s.app.Store.Rating(ctx, id)
	if err != nil {
		logging.LogError(logger, "failed to load rating", err, slog.String("calculator", id))
	}
	page.Rating = rating
	page.RatingText = s.app.Messages.T(locale, "rating.none")
	if rating.Count > 0 {
		page.RatingText = s.app.Messages.T(locale, "rating.summary", i18n.Compact(locale, rating.Average), rating.Count)
	}

	if consent.Functional {
		if vid, ok := s.visitor(w, r, false); ok {
			entries, err := s.app.Store.History(ctx, vid, historyShown)
			if err != nil {
				logging.LogError(logger, "failed to load history", err)
			}
			page.History = s.historyItems(locale, entries)
		}
	}

	meta := s.meta(locale, key, seo.Page{
		Title:       t.Title,
		Description: t.Description,
		Keywords:    t.Keywords,
		Image:       c.Image,
	})
	v := s.newView(r, locale, meta, page)

	currency := displayCurrency(locale, "")
	structured := []any{
		seo.NewWebApplication(seo.Calculator{
			Name:        t.Title,
			Description: t.Description,
			URL:         meta.Canonical,
			Image:       s.app.Site.Absolute(c.Image),
			Lang:        i18n.HTMLLang(locale),
			Category:    cat.AppCategory,
			Currency:    currency,
			Modified:    c.Updated,
			Rating:      seo.NewAggregateRating(rating.Average, rating.Count),
		}),
		s.crumbs(locale,
			seo.Crumb{Name: page.Category.Title, URL: s.app.Site.Absolute(page.Category.URL)},
			seo.Crumb{Name: t.Title, URL: meta.Canonical}),
	}
	if len(t.HowTo) > 0 {
		structured = append(structured, seo.NewHowTo(t.Title, t.Description, i18n.HTMLLang(locale), t.HowTo...))
	}
	if len(t.FAQ) > 0 {
		structured = append(structured, seo.NewFAQPage(lo.Map(t.FAQ, func(f catalog.FAQ, _ int) seo.QA {
			return seo.QA{Question: f.Question, Answer: f.Answer}
		})...))
	}
	if !s.withJSONLD(w, r, v, structured...) {
		return
	}

	status := http.StatusOK
	if page.Invalid {
		status = http.StatusUnprocessableEntity
	}
	s.render(w, r, status, "calculator", v)
}

// recordHistory saves a successful calculation for a consenting visitor.
// Failures are logged; the page still renders.
func (s *Server) recordHistory(w http.ResponseWriter, r *http.Request, locale string, ev *calc.Evaluation, query string) {
	vid, _ := s.visitor(w, r, true)
	head := ev.Headline()
	err := s.app.Store.AddHistory(r.Context(), vid, engagement.Entry{
		Calculator: ev.Calculator,
		Locale:     locale,
		Query:      query,
		ResultKey:  head.Key,
		Result:     head.Value,
		Currency:   lo.Ternary(head.Kind == calc.OutputMoney, displayCurrency(locale, ev.Currency), ""),
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to save history", err,
			slog.String("calculator", ev.Calculator),
			slog.String("component", "pages"))
	}
}

type GuidesPage struct {
	Title       string
	Description string
	Guides      []GuideCard
}

type GuideCard struct {
	Link
	Published time.Time
}

func (s *Server) guidesPage(w http.ResponseWriter, r *http.Request, locale string) {
	t := s.app.Catalog.GuidesIndex.Text(locale)
	page := GuidesPage{Title: t.Title, Description: t.Description}
	for i := range s.app.Catalog.Guides {
		g := &s.app.Catalog.Guides[i]
		page.Guides = append(page.Guides, GuideCard{Link: s.guideLink(g, locale), Published: g.Published})
	}
	meta := s.meta(locale, catalog.KindGuides, seo.Page{
		Title:       t.Title,
		Description: t.Description,
		Image:       s.app.Catalog.GuidesIndex.Image,
	})
	v := s.newView(r, locale, meta, page)
	if !s.withJSONLD(w, r, v, s.crumbs(locale, seo.Crumb{Name: t.Title, URL: meta.Canonical})) {
		return
	}
	s.render(w, r, http.StatusOK, "guides", v)
}

type GuidePage struct {
	Title       string
	Summary     string
	Body        []string
	Author      string
	Published   time.Time
	Updated     time.Time
	Image       string
	Calculators []Link
	Index       Link
}

func (s *Server) guidePage(w http.ResponseWriter, r *http.Request, locale, id string) {
	g, err := s.app.Catalog.Guide(id)
	if err != nil {
		s.notFound(w, r)
		return
	}
	t := g.Text(locale)
	index := s.app.Catalog.GuidesIndex.Text(locale)
	page := GuidePage{
		Title:     t.Title,
		Summary:   t.Summary,
		Body:      t.Body,
		Author:    g.Author,
		Published: g.Published,
		Updated:   g.Updated,
		Image:     g.Image,
		Index:     Link{URL: s.app.Catalog.URL(catalog.KindGuides, locale), Title: index.Title},
	}
	for _, cid := range g.Calculators {
		if c, err := s.app.Catalog.Calculator(cid); err == nil {
			page.Calculators = append(page.Calculators, s.calcLink(c, locale))
		}
	}

	key := catalog.RouteKey(catalog.KindGuide, id)
	meta := s.meta(locale, key, seo.Page{
		Title:       t.Title,
		Description: lo.Ternary(t.Description != "", t.Description, t.Summary),
		Keywords:    t.Keywords,
		Image:       g.Image,
		Article:     true,
	})
	v := s.newView(r, locale, meta, page)
	post := seo.NewBlogPosting(seo.Post{
		Headline:    t.Title,
		Description: meta.Description,
		URL:         meta.Canonical,
		Image:       s.app.Site.Absolute(g.Image),
		Lang:        i18n.HTMLLang(locale),
		Author:      g.Author,
		Published:   g.Published,
		Modified:    g.Updated,
		Publisher:   s.organization(),
	})
	crumbs := s.crumbs(locale,
		seo.Crumb{Name: index.Title, URL: s.app.Site.Absolute(page.Index.URL)},
		seo.Crumb{Name: t.Title, URL: meta.Canonical})
	if !s.withJSONLD(w, r, v, post, crumbs) {
		return
	}
	s.render(w, r, http.StatusOK, "guide", v)
}

type LegalPage struct {
	Title   string
	Body    []string
	Updated time.Time
}

func (s *Server) legalPage(w http.ResponseWriter, r *http.Request, locale, id string) {
	p, err := s.app.Catalog.Page(id)
	if err != nil {
		s.notFound(w, r)
		return
	}
	t := p.Text(locale)
	meta := s.meta(locale, catalog.RouteKey(catalog.KindPage, id), seo.Page{Title: t.Title, Description: t.Description})
	v := s.newView(r, locale, meta, LegalPage{Title: t.Title, Body: t.Body, Updated: p.Updated})
	if !s.withJSONLD(w, r, v, s.crumbs(locale, seo.Crumb{Name: t.Title, URL: meta.Canonical})) {
		return
	}
	s.render(w, r, http.StatusOK, "page", v)
}

type SearchPage struct {
	Query   string
	Action  string
	Results []Link
	Heading string
	Empty   string
}

func (s *Server) searchPage(w http.ResponseWriter, r *http.Request, locale string) {
	msg := s.app.Messages
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	page := SearchPage{Query: q, Action: searchPath(locale)}
	if q != "" {
		page.Heading = msg.T(locale, "search.results", q)
		for _, h := range s.app.Catalog.Search(locale, q) {
			page.Results = append(page.Results, Link{
				URL:     s.app.Catalog.URL(h.Key, locale),
				Title:   h.Title,
				Summary: h.Summary,
			})
		}
		if len(page.Results) == 0 {
			page.Empty = msg.T(locale, "search.none", q)
		}
	}

	alternates := make(map[string]string, len(i18n.Locales))
	for _, l := range i18n.Locales {
		alternates[l] = searchPath(l)
	}
	meta := s.app.Site.Build(seo.Page{
		Locale:      locale,
		Path:        searchPath(locale),
		Title:       msg.T(locale, "search.title"),
		Description: msg.T(locale, "search.description"),
		Alternates:  alternates,
		NoIndex:     true,
	})
	v := s.newView(r, locale, meta, page)
	v.SwitchURL = searchPath(lo.Ternary(locale == i18n.Turkish, i18n.English, i18n.Turkish))
	s.render(w, r, http.StatusOK, "search", v)
}

type NotFoundPage struct {
	Home string
}

// notFound renders the localized 404 page, or JSON under /api/.
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		notFoundJSON(w)
		return
	}
	locale, _, ok := i18n.SplitPath(r.URL.Path)
	if !ok {
		locale = i18n.Negotiate(r.Header.Get("Accept-Language"))
	}
	meta := s.app.Site.Build(seo.Page{
		Locale:  locale,
		Title:   s.app.Messages.T(locale, "errors.not_found_title"),
		NoIndex: true,
	})
	meta.Canonical = ""
	v := s.newView(r, locale, meta, NotFoundPage{Home: i18n.Path(locale, "")})
	s.render(w, r, http.StatusNotFound, "notfound", v)
}
