package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Issue codes. Each code has an English template below and a
// "validation.<code>" entry in the message catalogs.
const (
	CodeRequired      = "required"
	CodeInvalidNumber = "invalid_number"
	CodeInvalidDate   = "invalid_date"
	CodeOutOfRange    = "out_of_range"
	CodeTooSmall      = "too_small"
	CodeTooLarge      = "too_large"
	CodeNotInteger    = "not_integer"
	CodeInvalidChoice = "invalid_choice"
	CodeInvalidValue  = "invalid_value"
	CodeDateOrder     = "date_order"
	CodeNoData        = "no_data"
)

var englishTemplates = map[string]string{
	CodeRequired:      "is required",
	CodeInvalidNumber: "must be a number",
	CodeInvalidDate:   "must be a date in YYYY-MM-DD format",
	CodeOutOfRange:    "must be between %v and %v",
	CodeTooSmall:      "must be greater than %v",
	CodeTooLarge:      "must be at most %v",
	CodeNotInteger:    "must be a whole number",
	CodeInvalidChoice: "must be one of: %v",
	CodeInvalidValue:  "is invalid",
	CodeDateOrder:     "must not be after %v",
	CodeNoData:        "has no data for %v",
}

// Issue is one problem with one field.
type Issue struct {
	Code string
	Args []any
}

// English renders the issue with the built-in English template.
func (i Issue) English() string {
	tmpl, ok := englishTemplates[i.Code]
	if !ok {
		return i.Code
	}
	if len(i.Args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, i.Args...)
}

// Errors collects field-level validation issues. The zero value is not
// usable; call New.
type Errors struct {
	fields map[string][]Issue
}

func New() *Errors {
	return &Errors{fields: make(map[string][]Issue)}
}

// Add records an issue for field.
func (e *Errors) Add(field, code string, args ...any) {
	e.fields[field] = append(e.fields[field], Issue{Code: code, Args: args})
}

// Has reports whether field has at least one issue.
func (e *Errors) Has(field string) bool {
	return len(e.fields[field]) > 0
}

func (e *Errors) Empty() bool {
	return e == nil || len(e.fields) == 0
}

// Issues returns the issues for one field.
func (e *Errors) Issues(field string) []Issue {
	return e.fields[field]
}

// Fields returns the failing field names in sorted order.
func (e *Errors) Fields() []string {
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Map renders every issue in English, keyed by field.
func (e *Errors) Map() map[string][]string {
	return e.Localize(func(i Issue) string { return i.English() })
}

// Localize renders every issue with the supplied function.
func (e *Errors) Localize(render func(Issue) string) map[string][]string {
	out := make(map[string][]string, len(e.fields))
	for field, issues := range e.fields {
		for _, issue := range issues {
			out[field] = append(out[field], render(issue))
		}
	}
	return out
}

// Err returns e as an error, or nil when there are no issues.
func (e *Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *Errors) Error() string {
	parts := make([]string, 0, len(e.fields))
	for _, field := range e.Fields() {
		for _, issue := range e.fields[field] {
			parts = append(parts, field+" "+issue.English())
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Errors) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Map())
}
