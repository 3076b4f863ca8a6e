package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed messages/*.toml
var messageFS embed.FS

// Bundle holds flattened message catalogs for every locale.
type Bundle struct {
	messages map[string]map[string]string
}

// LoadBundle decodes the embedded catalogs.
func LoadBundle() (*Bundle, error) {
	b := &Bundle{messages: make(map[string]map[string]string)}
	for _, locale := range Locales {
		data, err := messageFS.ReadFile(path.Join("messages", locale+".toml"))
		if err != nil {
			return nil, fmt.Errorf("reading %s messages: %w", locale, err)
		}
		if err := b.Add(locale, string(data)); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Add merges a TOML catalog into locale. Nested tables become dotted keys.
func (b *Bundle) Add(locale, doc string) error {
	var raw map[string]any
	if _, err := toml.Decode(doc, &raw); err != nil {
		return fmt.Errorf("decoding %s messages: %w", locale, err)
	}
	if b.messages[locale] == nil {
		b.messages[locale] = make(map[string]string)
	}
	flatten("", raw, b.messages[locale])
	return nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Has reports whether locale defines key without falling back.
func (b *Bundle) Has(locale, key string) bool {
	_, ok := b.messages[locale][key]
	return ok
}

// T returns the message for key in locale, falling back to the default
// locale and finally to the key itself. Args are applied with fmt.Sprintf.
func (b *Bundle) T(locale, key string, args ...any) string {
	msg, ok := b.messages[locale][key]
	if !ok {
		msg, ok = b.messages[Default][key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Lookup is T with an explicit fallback string instead of the key.
func (b *Bundle) Lookup(locale, key, fallback string) string {
	if msg, ok := b.messages[locale][key]; ok {
		return msg
	}
	if msg, ok := b.messages[Default][key]; ok {
		return msg
	}
	return fallback
}

// Missing lists keys defined for the default locale but not for locale.
func (b *Bundle) Missing(locale string) []string {
	var missing []string
	for key := range b.messages[Default] {
		if _, ok := b.messages[locale][key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// Prefix returns every key under prefix for locale, e.g. all "nav." keys.
func (b *Bundle) Prefix(locale, prefix string) map[string]string {
	out := make(map[string]string)
	for key, msg := range b.messages[locale] {
		if strings.HasPrefix(key, prefix) {
			out[strings.TrimPrefix(key, prefix)] = msg
		}
	}
	return out
}

// InputLabel returns the label of a calculator input, preferring a
// calculator-specific wording ("input.loan.principal") over the shared one.
func (b *Bundle) InputLabel(locale, calculator, name string) string {
	return b.Lookup(locale, "input."+calculator+"."+name, b.T(locale, "input."+name))
}

// Option returns the display text of a select option. Options without a
// message (years, grades, tax rates) render as themselves.
func (b *Bundle) Option(locale, input, value string) string {
	return b.Lookup(locale, "option."+input+"."+value, value)
}
