package seo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"time"
)

const schemaContext = "https://schema.org"

// Thing carries the JSON-LD keywords shared by every node. Context is only
// set on top-level nodes.
type Thing struct {
	Context string `json:"@context,omitempty"`
	Type    string `json:"@type"`
}

func top(typ string) Thing    { return Thing{Context: schemaContext, Type: typ} }
func nested(typ string) Thing { return Thing{Type: typ} }

type EntryPoint struct {
	Thing
	URLTemplate string `json:"urlTemplate"`
}

type SearchAction struct {
	Thing
	Target     EntryPoint `json:"target"`
	QueryInput string     `json:"query-input"`
}

type WebSite struct {
	Thing
	Name            string        `json:"name"`
	URL             string        `json:"url"`
	InLanguage      string        `json:"inLanguage,omitempty"`
	Description     string        `json:"description,omitempty"`
	PotentialAction *SearchAction `json:"potentialAction,omitempty"`
}

// NewWebSite describes the site with a sitelinks search box. searchURL must
// contain the {search_term_string} placeholder.
func NewWebSite(name, url, lang, description, searchURL string) WebSite {
	w := WebSite{Thing: top("WebSite"), Name: name, URL: url, InLanguage: lang, Description: description}
	if searchURL != "" {
		w.PotentialAction = &SearchAction{
			Thing:      nested("SearchAction"),
			Target:     EntryPoint{Thing: nested("EntryPoint"), URLTemplate: searchURL},
			QueryInput: "required name=search_term_string",
		}
	}
	return w
}

type ImageObject struct {
	Thing
	URL string `json:"url"`
}

type Organization struct {
	Thing
	Name         string       `json:"name"`
	URL          string       `json:"url"`
	Logo         *ImageObject `json:"logo,omitempty"`
	Email        string       `json:"email,omitempty"`
	FoundingDate string       `json:"foundingDate,omitempty"`
	SameAs       []string     `json:"sameAs,omitempty"`
}

func NewOrganization(name, url, logo, email, founded string, sameAs []string) Organization {
	o := Organization{Thing: top("Organization"), Name: name, URL: url, Email: email, FoundingDate: founded, SameAs: sameAs}
	if logo != "" {
		o.Logo = &ImageObject{Thing: nested("ImageObject"), URL: logo}
	}
	return o
}

// publisher is the nested form used inside articles.
func (o Organization) publisher() *Organization {
	o.Context = ""
	return &o
}

type ListItem struct {
	Thing
	Position int    `json:"position"`
	Name     string `json:"name"`
	Item     string `json:"item,omitempty"`
}

type BreadcrumbList struct {
	Thing
	ItemListElement []ListItem `json:"itemListElement"`
}

// Crumb is one step of a breadcrumb trail. The last crumb may omit URL.
type Crumb struct {
	Name string
	URL  string
}

func NewBreadcrumbList(crumbs ...Crumb) BreadcrumbList {
	b := BreadcrumbList{Thing: top("BreadcrumbList"), ItemListElement: make([]ListItem, 0, len(crumbs))}
	for i, c := range crumbs {
		b.ItemListElement = append(b.ItemListElement, ListItem{
			Thing:    nested("ListItem"),
			Position: i + 1,
			Name:     c.Name,
			Item:     c.URL,
		})
	}
	return b
}

type Offer struct {
	Thing
	Price         string `json:"price"`
	PriceCurrency string `json:"priceCurrency"`
}

type AggregateRating struct {
	Thing
	RatingValue float64 `json:"ratingValue"`
	RatingCount int     `json:"ratingCount"`
	BestRating  int     `json:"bestRating"`
	WorstRating int     `json:"worstRating"`
}

// NewAggregateRating returns nil when there are no ratings, since an empty
// rating is invalid structured data.
func NewAggregateRating(average float64, count int) *AggregateRating {
	if count <= 0 {
		return nil
	}
	return &AggregateRating{
		Thing:       nested("AggregateRating"),
		RatingValue: average,
		RatingCount: count,
		BestRating:  5,
		WorstRating: 1,
	}
}

// Application categories recognised by search engines.
const (
	FinanceApplication     = "FinanceApplication"
	HealthApplication      = "HealthApplication"
	EducationalApplication = "EducationalApplication"
	UtilitiesApplication   = "UtilitiesApplication"
)

type WebApplication struct {
	Thing
	Name                string           `json:"name"`
	Description         string           `json:"description"`
	URL                 string           `json:"url"`
	Image               string           `json:"image,omitempty"`
	InLanguage          string           `json:"inLanguage"`
	ApplicationCategory string           `json:"applicationCategory"`
	OperatingSystem     string           `json:"operatingSystem"`
	BrowserRequirements string           `json:"browserRequirements"`
	DateModified        string           `json:"dateModified,omitempty"`
	Offers              Offer            `json:"offers"`
	AggregateRating     *AggregateRating `json:"aggregateRating,omitempty"`
}

// Calculator is the input of NewWebApplication.
type Calculator struct {
	Name        string
	Description string
	URL         string
	Image       string
	Lang        string
	Category    string
	Currency    string
	Modified    time.Time
	Rating      *AggregateRating
}

func NewWebApplication(c Calculator) WebApplication {
	category := c.Category
	if category == "" {
		category = UtilitiesApplication
	}
	currency := c.Currency
	if currency == "" {
		currency = "USD"
	}
	app := WebApplication{
		Thing:               top("WebApplication"),
		Name:                c.Name,
		Description:         c.Description,
		URL:                 c.URL,
		Image:               c.Image,
		InLanguage:          c.Lang,
		ApplicationCategory: category,
		OperatingSystem:     "Any",
		BrowserRequirements: "Requires HTML5",
		Offers:              Offer{Thing: nested("Offer"), Price: "0", PriceCurrency: currency},
		AggregateRating:     c.Rating,
	}
	if !c.Modified.IsZero() {
		app.DateModified = c.Modified.Format(time.DateOnly)
	}
	return app
}

type Answer struct {
	Thing
	Text string `json:"text"`
}

type Question struct {
	Thing
	Name           string `json:"name"`
	AcceptedAnswer Answer `json:"acceptedAnswer"`
}

type FAQPage struct {
	Thing
	MainEntity []Question `json:"mainEntity"`
}

// QA is a question and its answer.
type QA struct {
	Question string
	Answer   string
}

func NewFAQPage(items ...QA) FAQPage {
	f := FAQPage{Thing: top("FAQPage"), MainEntity: make([]Question, 0, len(items))}
	for _, it := range items {
		f.MainEntity = append(f.MainEntity, Question{
			Thing:          nested("Question"),
			Name:           it.Question,
			AcceptedAnswer: Answer{Thing: nested("Answer"), Text: it.Answer},
		})
	}
	return f
}

type HowToStep struct {
	Thing
	Position int    `json:"position"`
	Name     string `json:"name,omitempty"`
	Text     string `json:"text"`
}

type HowTo struct {
	Thing
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InLanguage  string      `json:"inLanguage,omitempty"`
	Step        []HowToStep `json:"step"`
}

func NewHowTo(name, description, lang string, steps ...string) HowTo {
	h := HowTo{Thing: top("HowTo"), Name: name, Description: description, InLanguage: lang, Step: make([]HowToStep, 0, len(steps))}
	for i, s := range steps {
		h.Step = append(h.Step, HowToStep{Thing: nested("HowToStep"), Position: i + 1, Text: s})
	}
	return h
}

type Person struct {
	Thing
	Name string `json:"name"`
}

type WebPageRef struct {
	Thing
	ID string `json:"@id"`
}

// Article is used with type "Article" or "BlogPosting".
type Article struct {
	Thing
	Headline         string        `json:"headline"`
	Description      string        `json:"description,omitempty"`
	Image            []string      `json:"image,omitempty"`
	DatePublished    string        `json:"datePublished"`
	DateModified     string        `json:"dateModified,omitempty"`
	InLanguage       string        `json:"inLanguage,omitempty"`
	Author           any           `json:"author"`
	Publisher        *Organization `json:"publisher,omitempty"`
	MainEntityOfPage WebPageRef    `json:"mainEntityOfPage"`
}

// Post is the input of NewBlogPosting.
type Post struct {
	Headline    string
	Description string
	URL         string
	Image       string
	Lang        string
	Author      string
	Published   time.Time
	Modified    time.Time
	Publisher   Organization
}

// NewBlogPosting describes a guide. An author equal to the publisher's
// name is emitted as the organization rather than a person.
func NewBlogPosting(p Post) Article {
	a := Article{
		Thing:            top("BlogPosting"),
		Headline:         p.Headline,
		Description:      p.Description,
		DatePublished:    p.Published.Format(time.DateOnly),
		InLanguage:       p.Lang,
		Publisher:        p.Publisher.publisher(),
		MainEntityOfPage: WebPageRef{Thing: nested("WebPage"), ID: p.URL},
	}
	if p.Image != "" {
		a.Image = []string{p.Image}
	}
	if !p.Modified.IsZero() {
		a.DateModified = p.Modified.Format(time.DateOnly)
	}
	if p.Author == "" || p.Author == p.Publisher.Name {
		a.Author = p.Publisher.publisher()
	} else {
		a.Author = Person{Thing: nested("Person"), Name: p.Author}
	}
	return a
}

// ScriptTag renders each value as its own application/ld+json script
// element. encoding/json escapes <, > and & so the output cannot close the
// script early.
func ScriptTag(values ...any) (template.HTML, error) {
	var buf bytes.Buffer
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshalling structured data: %w", err)
		}
		buf.WriteString(`<script type="application/ld+json">`)
		buf.Write(data)
		buf.WriteString("</script>\n")
	}
	return template.HTML(buf.String()), nil
}
