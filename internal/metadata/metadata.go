// Package metadata provides the key-value bag attached to arenas, rounds,
// challengers and teams.
package metadata

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotStructure is returned by Structure when the key holds a plain value.
var ErrNotStructure = errors.New("value is not a structure")

// Bag is a concurrency-safe string-keyed store. The zero value is ready to
// use.
type Bag struct {
	mu     sync.RWMutex
	values map[string]any
}

// New returns an empty bag.
func New() *Bag {
	return &Bag{}
}

// Get returns the value under key converted to T. ok is false when the key is
// missing or holds a value of another type.
func Get[T any](b *Bag, key string) (v T, ok bool) {
	b.mu.RLock()
	raw, found := b.values[key]
	b.mu.RUnlock()
	if !found {
		return v, false
	}
	v, ok = raw.(T)
	return v, ok
}

// Value returns the raw value under key.
func (b *Bag) Value(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Has reports whether key is present.
func (b *Bag) Has(key string) bool {
	_, ok := b.Value(key)
	return ok
}

// Set stores v under key and returns the previous value, if any.
func (b *Bag) Set(key string, v any) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.values == nil {
		b.values = map[string]any{}
	}
	old, had := b.values[key]
	b.values[key] = v
	return old, had
}

// Structure returns the nested bag under key, creating it if absent.
func (b *Bag) Structure(key string) (*Bag, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.values == nil {
		b.values = map[string]any{}
	}
	if raw, ok := b.values[key]; ok {
		nested, isBag := raw.(*Bag)
		if !isBag {
			return nil, fmt.Errorf("%w: %q", ErrNotStructure, key)
		}
		return nested, nil
	}
	nested := New()
	b.values[key] = nested
	return nested, nil
}

// Remove deletes key and returns the removed value, if any.
func (b *Bag) Remove(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	delete(b.values, key)
	return v, ok
}

// Keys returns the keys in sorted order.
func (b *Bag) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of top-level entries.
func (b *Bag) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

// Clear removes every entry.
func (b *Bag) Clear() {
	b.mu.Lock()
	b.values = nil
	b.mu.Unlock()
}
