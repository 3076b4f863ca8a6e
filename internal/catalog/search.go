package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"hesapkit.com/internal/i18n"
)

// MinQueryLength is the shortest query Search answers.
const MinQueryLength = 2

// Hit is one search result.
type Hit struct {
	Key     string
	Title   string
	Summary string
	score   int
}

// Search matches query against calculator and guide text in locale.
// Titles weigh more than keywords, keywords more than descriptions.
// Matching folds case with the locale's rules, so "İ" and "i" match in
// Turkish.
func (c *Catalog) Search(locale, query string) []Hit {
	fold := cases.Lower(i18n.Tag(locale))
	terms := strings.Fields(fold.String(query))
	if len(strings.Join(terms, "")) < MinQueryLength {
		return nil
	}

	score := func(t Text) int {
		title := fold.String(t.Title)
		keywords := fold.String(strings.Join(t.Keywords, " "))
		desc := fold.String(t.Description + " " + t.Summary)
		total := 0
		for _, term := range terms {
			s := 0
			switch {
			case strings.Contains(title, term):
				s = 3
			case strings.Contains(keywords, term):
				s = 2
			case strings.Contains(desc, term):
				s = 1
			}
			if s == 0 {
				return 0
			}
			total += s
		}
		return total
	}

	var hits []Hit
	for i := range c.Calculators {
		t := c.Calculators[i].Text(locale)
		if s := score(t); s > 0 {
			hits = append(hits, Hit{Key: RouteKey(KindCalculator, c.Calculators[i].ID), Title: t.Title, Summary: t.Description, score: s})
		}
	}
	for i := range c.Guides {
		t := c.Guides[i].Text(locale)
		if s := score(t); s > 0 {
			hits = append(hits, Hit{Key: RouteKey(KindGuide, c.Guides[i].ID), Title: t.Title, Summary: t.Summary, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	return hits
}
