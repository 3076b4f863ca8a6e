// Package i18n handles the site's two locales: negotiation, message
// lookup, number formatting and the URL mapping between locales.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	English = "en"
	Turkish = "tr"

	Default = English
)

// Locales lists the supported locales, default first.
var Locales = []string{English, Turkish}

var (
	supportedTags = []language.Tag{language.English, language.Turkish}
	matcher       = language.NewMatcher(supportedTags)
)

// Supported reports whether locale is served by the site.
func Supported(locale string) bool {
	for _, l := range Locales {
		if l == locale {
			return true
		}
	}
	return false
}

// Negotiate picks the best locale for an Accept-Language header.
func Negotiate(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return Locales[idx]
}

// Tag returns the language tag for locale.
func Tag(locale string) language.Tag {
	if locale == Turkish {
		return language.Turkish
	}
	return language.English
}

// HTMLLang is the value for <html lang> and hreflang attributes.
func HTMLLang(locale string) string {
	return Tag(locale).String()
}

// OGLocale is the OpenGraph locale code.
func OGLocale(locale string) string {
	if locale == Turkish {
		return "tr_TR"
	}
	return "en_US"
}

// SplitPath separates the locale prefix from a request path:
// "/tr/kredi-hesaplama" -> ("tr", "/kredi-hesaplama", true).
func SplitPath(path string) (string, string, bool) {
	trimmed := strings.TrimPrefix(path, "/")
	head, rest, _ := strings.Cut(trimmed, "/")
	if !Supported(head) {
		return Default, path, false
	}
	return head, "/" + rest, true
}

// Path joins a locale and a locale-relative path.
func Path(locale, rest string) string {
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return "/" + locale
	}
	return "/" + locale + "/" + rest
}
