package validate

import (
	"errors"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only date format accepted from forms and the API.
const DateLayout = "2006-01-02"

var (
	// Lowercase letters, digits and hyphens, as used in page slugs.
	validSlugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	// Calculator and guide IDs.
	validIDPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
)

// ValidateID validates that an ID is safe and within reasonable limits
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if len(id) > 64 {
		return errors.New("id too long (max 64 characters)")
	}

	if !validIDPattern.MatchString(id) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

// ValidateSlug validates a URL path segment.
func ValidateSlug(slug string) error {
	if slug == "" {
		return errors.New("slug cannot be empty")
	}
	if len(slug) > 100 {
		return errors.New("slug too long (max 100 characters)")
	}
	if !validSlugPattern.MatchString(slug) {
		return errors.New("slug contains invalid characters")
	}
	return nil
}

// SanitizeInput removes HTML tags and surrounding whitespace.
func SanitizeInput(input string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(input, ""))
}

// Range records CodeOutOfRange when v is outside [min, max].
func Range(errs *Errors, field string, v, min, max float64) {
	if math.IsNaN(v) || v < min || v > max {
		errs.Add(field, CodeOutOfRange, min, max)
	}
}

// Positive records CodeTooSmall when v is not strictly greater than zero.
func Positive(errs *Errors, field string, v float64) {
	if math.IsNaN(v) || v <= 0 {
		errs.Add(field, CodeTooSmall, 0)
	}
}

// AtMost records CodeTooLarge when v exceeds max.
func AtMost(errs *Errors, field string, v, max float64) {
	if v > max {
		errs.Add(field, CodeTooLarge, max)
	}
}

// OneOf records CodeInvalidChoice when v is not in choices.
func OneOf(errs *Errors, field, v string, choices ...string) {
	for _, c := range choices {
		if v == c {
			return
		}
	}
	errs.Add(field, CodeInvalidChoice, strings.Join(choices, ", "))
}

// ParseFloatParam retrieves a float64 value from the provided URL query parameters.
// Missing keys record CodeRequired; unparsable values record CodeInvalidNumber.
// Separators are read according to nf.
func ParseFloatParam(params url.Values, key string, nf NumberFormat, errs *Errors) float64 {
	raw := strings.TrimSpace(params.Get(key))
	if raw == "" {
		errs.Add(key, CodeRequired)
		return 0
	}

	f, err := ParseNumber(raw, nf)
	if err != nil {
		errs.Add(key, CodeInvalidNumber)
		return 0
	}
	return f
}

// OptionalFloatParam is ParseFloatParam with a default for missing keys.
func OptionalFloatParam(params url.Values, key string, def float64, nf NumberFormat, errs *Errors) float64 {
	if strings.TrimSpace(params.Get(key)) == "" {
		return def
	}
	return ParseFloatParam(params, key, nf, errs)
}

// ParseIntParam retrieves a whole number from the query parameters.
func ParseIntParam(params url.Values, key string, nf NumberFormat, errs *Errors) int {
	f := ParseFloatParam(params, key, nf, errs)
	if errs.Has(key) {
		return 0
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		errs.Add(key, CodeNotInteger)
		return 0
	}
	return int(f)
}

// OptionalIntParam is ParseIntParam with a default for missing keys.
func OptionalIntParam(params url.Values, key string, def int, nf NumberFormat, errs *Errors) int {
	if strings.TrimSpace(params.Get(key)) == "" {
		return def
	}
	return ParseIntParam(params, key, nf, errs)
}

// ParseDateParam parses a YYYY-MM-DD date from the query parameters.
func ParseDateParam(params url.Values, key string, errs *Errors) time.Time {
	raw := strings.TrimSpace(params.Get(key))
	if raw == "" {
		errs.Add(key, CodeRequired)
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		errs.Add(key, CodeInvalidDate)
		return time.Time{}
	}
	return t
}

// NumberFormat is the digit grouping and decimal mark of a locale.
type NumberFormat struct {
	Group   rune
	Decimal rune
}

// PlainNumbers reads "1,234.5" and "1234.5"; the API and CLI use it.
var PlainNumbers = NumberFormat{Group: ',', Decimal: '.'}

// ParseNumber reads a number written with nf's separators. When both '.'
// and ',' appear the last one is the decimal mark whatever nf says, so
// "1,234.5" and "1.234,5" are unambiguous. A single separator followed by
// exactly three digits is nf.Group; otherwise it is the decimal mark.
// Grouped digits must come in threes.
func ParseNumber(raw string, nf NumberFormat) (float64, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	var group, decimal string
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			group, decimal = ".", ","
		} else {
			group, decimal = ",", "."
		}
	case lastComma >= 0 || lastDot >= 0:
		sep, at := ",", lastComma
		if lastDot >= 0 {
			sep, at = ".", lastDot
		}
		switch {
		case strings.Count(s, sep) > 1:
			group = sep
		case string(nf.Group) == sep && len(s)-at-1 == 3:
			group = sep
		default:
			decimal = sep
		}
	}

	if group != "" {
		if !groupedCorrectly(s, group, decimal) {
			return 0, strconv.ErrSyntax
		}
		s = strings.ReplaceAll(s, group, "")
	}
	if decimal != "" {
		if strings.Count(s, decimal) > 1 {
			return 0, strconv.ErrSyntax
		}
		s = strings.Replace(s, decimal, ".", 1)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

// groupedCorrectly checks the integer part of s: one to three leading
// digits, then groups of exactly three.
func groupedCorrectly(s, group, decimal string) bool {
	s = strings.TrimLeft(s, "+-")
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		s = s[:i]
	}
	if decimal != "" {
		if i := strings.Index(s, decimal); i >= 0 {
			if strings.Contains(s[i:], group) {
				return false
			}
			s = s[:i]
		}
	}
	parts := strings.Split(s, group)
	if len(parts[0]) < 1 || len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}
