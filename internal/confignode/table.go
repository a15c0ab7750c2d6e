package confignode

import (
	"fmt"
	"sort"
	"sync"
)

// Table is one layer of overrides. It is safe for concurrent use.
type Table struct {
	mu     sync.RWMutex
	values map[Node]any
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{values: map[Node]any{}}
}

// Set stores an override for k.
func Set[T any](t *Table, k *Key[T], v T) {
	t.mu.Lock()
	t.values[k] = v
	t.mu.Unlock()
}

// Get returns the override for k, if the table holds one.
func Get[T any](t *Table, k *Key[T]) (T, bool) {
	if t == nil {
		var zero T
		return zero, false
	}
	t.mu.RLock()
	v, ok := t.values[k]
	t.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Unset removes the override for n and reports whether one existed.
func (t *Table) Unset(n Node) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.values[n]
	delete(t.values, n)
	return ok
}

// SetText parses text with the node's parser and stores the result.
func (t *Table) SetText(name, text string) (Node, error) {
	n, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	v, err := n.parse(text)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.values[n] = v
	t.mu.Unlock()
	return n, nil
}

// Len returns the number of overrides.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}

// Snapshot returns the overrides keyed by node name.
func (t *Table) Snapshot() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]any, len(t.values))
	for n, v := range t.values {
		out[n.Name()] = v
	}
	return out
}

// Names returns the names of overridden nodes, sorted.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.values))
	for n := range t.values {
		out = append(out, n.Name())
	}
	sort.Strings(out)
	return out
}

// Resolve returns the value of k from the first layer that overrides it, or
// the key's default. Layers are given most specific first; nil layers are
// skipped.
func Resolve[T any](k *Key[T], layers ...*Table) T {
	for _, l := range layers {
		if v, ok := Get(l, k); ok {
			return v
		}
	}
	return k.def
}
