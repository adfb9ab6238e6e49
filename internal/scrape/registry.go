package scrape

import (
	"context"
	"sort"
	"sync"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

// Constructor builds a scraper bound to a store and source config.
type Constructor func(ctx context.Context, st *store.Store, config map[string]any) Scraper

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Constructor)
)

// Register makes a scraper constructor available under a source name.
// Provider files call it from init, exactly once per name; a duplicate
// registration is a programming error.
func Register(name string, fn Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if fn == nil {
		panic("scrape: Register constructor is nil")
	}
	if _, dup := registry[name]; dup {
		panic("scrape: Register called twice for source " + name)
	}
	registry[name] = fn
}

// Get constructs the scraper registered under name, or nil when none
// is. Lookup is by exact, case-sensitive name match.
func Get(ctx context.Context, name string, st *store.Store, config map[string]any) Scraper {
	registryMu.RLock()
	fn := registry[name]
	registryMu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, st, config)
}

// List returns the registered source names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a scraper is registered under name.
func Has(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}
