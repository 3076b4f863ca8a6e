package web

import (
	"net/url"
	"strings"

	"hesapkit.com/internal/calc"
	"hesapkit.com/internal/catalog"
	"hesapkit.com/internal/engagement"
	"hesapkit.com/internal/i18n"
)

// Metric is one formatted output value.
type Metric struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

type TableView struct {
	Headers []string
	Rows    [][]string
}

// ResultView is an evaluation formatted for a locale.
type ResultView struct {
	Headline  Metric
	Metrics   []Metric
	Table     *TableView
	Permalink string
}

// displayCurrency is the evaluation's own currency, or the locale's for
// calculators that work in any currency.
func displayCurrency(locale, currency string) string {
	if currency != "" {
		return currency
	}
	if locale == i18n.Turkish {
		return "TRY"
	}
	return "USD"
}

// formatValue renders v according to its output kind.
func (s *Server) formatValue(locale, calculator, currency string, kind calc.OutputKind, v float64, text string) string {
	switch kind {
	case calc.OutputMoney:
		return i18n.Money(locale, displayCurrency(locale, currency), v)
	case calc.OutputPercent:
		return i18n.Percent(locale, v)
	case calc.OutputInteger:
		return i18n.Number(locale, v, 0)
	case calc.OutputText:
		return s.app.Messages.Lookup(locale, calculator+"."+text, text)
	default:
		return i18n.Compact(locale, v)
	}
}

func (s *Server) metrics(locale string, ev *calc.Evaluation) []Metric {
	out := make([]Metric, 0, len(ev.Outputs))
	for _, o := range ev.Outputs {
		out = append(out, Metric{
			Key:   o.Key,
			Label: s.app.Messages.T(locale, "output."+o.Key),
			Value: s.formatValue(locale, ev.Calculator, ev.Currency, o.Kind, o.Value, o.Text),
		})
	}
	return out
}

func (s *Server) resultView(locale string, ev *calc.Evaluation, permalink string) *ResultView {
	m := s.metrics(locale, ev)
	rv := &ResultView{Metrics: m, Permalink: permalink}
	if len(m) > 0 {
		rv.Headline = m[0]
		rv.Metrics = m[1:]
	}
	if ev.Table != nil {
		tv := &TableView{}
		for _, c := range ev.Table.Columns {
			tv.Headers = append(tv.Headers, s.app.Messages.T(locale, "column."+c.Key))
		}
		for _, row := range ev.Table.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				kind := calc.OutputNumber
				if i < len(ev.Table.Columns) {
					kind = ev.Table.Columns[i].Kind
				}
				cells[i] = s.formatValue(locale, ev.Calculator, ev.Currency, kind, v, "")
			}
			tv.Rows = append(tv.Rows, cells)
		}
		rv.Table = tv
	}
	return rv
}

// canonicalQuery keeps only the calculator's own fields, so a saved or
// shared link reproduces the result and nothing else.
func canonicalQuery(inputs []calc.Input, params url.Values) string {
	q := url.Values{}
	for _, in := range inputs {
		vals := params[in.Name]
		if in.Repeat == 0 && len(vals) > 1 {
			vals = vals[:1]
		}
		for _, v := range vals {
			q.Add(in.Name, strings.TrimSpace(v))
		}
	}
	return q.Encode()
}

// HistoryItem is a saved calculation as listed on a calculator page.
type HistoryItem struct {
	Title string
	URL   string
	Label string
	Value string
	When  string
}

func (s *Server) historyItems(locale string, entries []engagement.Entry) []HistoryItem {
	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		title := e.Calculator
		if c, err := s.app.Catalog.Calculator(e.Calculator); err == nil {
			title = c.Text(locale).Title
		}
		value := i18n.Compact(locale, e.Result)
		if e.Currency != "" {
			value = i18n.Money(locale, e.Currency, e.Result)
		}
		link := s.app.Catalog.URL(catalog.RouteKey(catalog.KindCalculator, e.Calculator), locale)
		if e.Query != "" {
			link += "?" + e.Query
		}
		items = append(items, HistoryItem{
			Title: title,
			URL:   link,
			Label: s.app.Messages.T(locale, "output."+e.ResultKey),
			Value: value,
			When:  i18n.Date(locale, e.CreatedAt),
		})
	}
	return items
}
