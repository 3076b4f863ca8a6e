package i18n

import (
	"fmt"
	"sync"
)

// RouteTable maps a page key to its locale-relative path in each locale, so
// a page can link to its translation and emit hreflang alternates.
type RouteTable struct {
	mu     sync.RWMutex
	byKey  map[string]map[string]string
	byPath map[string]string // full path -> key
}

func NewRouteTable() *RouteTable {
	return &RouteTable{
		byKey:  make(map[string]map[string]string),
		byPath: make(map[string]string),
	}
}

// Add registers key with one path per locale. Paths are locale-relative
// ("/kredi-hesaplama"); every supported locale must be present.
func (rt *RouteTable) Add(key string, paths map[string]string) error {
	for _, l := range Locales {
		if _, ok := paths[l]; !ok {
			return fmt.Errorf("route %q has no %s path", key, l)
		}
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, dup := rt.byKey[key]; dup {
		return fmt.Errorf("route %q registered twice", key)
	}
	full := make(map[string]string, len(paths))
	for l, p := range paths {
		full[l] = Path(l, p)
		if other, taken := rt.byPath[full[l]]; taken {
			return fmt.Errorf("path %s used by %q and %q", full[l], other, key)
		}
	}
	for _, p := range full {
		rt.byPath[p] = key
	}
	rt.byKey[key] = full
	return nil
}

// URL returns the full path of key in locale.
func (rt *RouteTable) URL(key, locale string) (string, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	p, ok := rt.byKey[key][locale]
	return p, ok
}

// Key returns the page key served at a full path.
func (rt *RouteTable) Key(path string) (string, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	k, ok := rt.byPath[path]
	return k, ok
}

// Alternate translates a full path into locale. Unknown paths fall back to
// the locale's home page.
func (rt *RouteTable) Alternate(path, to string) string {
	if key, ok := rt.Key(path); ok {
		if p, ok := rt.URL(key, to); ok {
			return p
		}
	}
	return Path(to, "")
}

// Alternates returns the path of every translation of path, keyed by locale.
func (rt *RouteTable) Alternates(path string) map[string]string {
	key, ok := rt.Key(path)
	if !ok {
		return nil
	}
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make(map[string]string, len(rt.byKey[key]))
	for l, p := range rt.byKey[key] {
		out[l] = p
	}
	return out
}
