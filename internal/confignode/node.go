// Package confignode declares the closed set of typed configuration keys a
// minigame and its rounds understand, and resolves a key across layered
// override tables.
package confignode

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownNode  = errors.New("unknown config node")
	ErrInvalidValue = errors.New("invalid config value")
)

// Scope says which tables may override a node.
type Scope int

const (
	// ScopeRound nodes can be overridden per round and per minigame.
	ScopeRound Scope = iota
	// ScopeMinigame nodes can only be overridden per minigame.
	ScopeMinigame
)

func (s Scope) String() string {
	if s == ScopeMinigame {
		return "minigame"
	}
	return "round"
}

// Node is the type-erased view of a Key used by registries and text input.
type Node interface {
	Name() string
	Scope() Scope
	DefaultValue() any
	parse(text string) (any, error)
}

// Key is a typed configuration node. Keys are compared by pointer, so two
// declarations never alias even if their defaults match.
type Key[T any] struct {
	name   string
	scope  Scope
	def    T
	parser func(string) (T, error)
}

func (k *Key[T]) Name() string      { return k.name }
func (k *Key[T]) Scope() Scope      { return k.scope }
func (k *Key[T]) Default() T        { return k.def }
func (k *Key[T]) DefaultValue() any { return k.def }
func (k *Key[T]) String() string    { return k.name }

func (k *Key[T]) parse(text string) (any, error) {
	v, err := k.parser(text)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrInvalidValue, k.name, err)
	}
	return v, nil
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Node{}
)

// declare registers a key under a unique name. It panics on a duplicate name
// since keys are package-level declarations.
func declare[T any](name string, scope Scope, def T, parser func(string) (T, error)) *Key[T] {
	k := &Key[T]{name: name, scope: scope, def: def, parser: parser}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("confignode: duplicate node name " + name)
	}
	registry[name] = k
	return k
}

// Lookup returns the node registered under name.
func Lookup(name string) (Node, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	n, ok := registry[name]
	return n, ok
}

// Nodes returns every declared node sorted by name.
func Nodes() []Node {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Node, 0, len(registry))
	for _, n := range registry {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
