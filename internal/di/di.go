// Package di implements a minimal generic service container used to wire the
// bounded contexts together. Each module registers its own services under a
// string token; other modules (and main) resolve them back out by token and
// type-assert to the concrete type they expect.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container: resolve a previously
// registered token to its value.
type ServiceRegistry interface {
	Get(token string) any
}

// Container is the read/write side: modules register values and lazy
// factories against it during RegisterServices.
type Container interface {
	ServiceRegistry
	// Register stores an already-constructed value under token.
	Register(token string, value any)
}

type entry struct {
	once    sync.Once
	value   any
	factory func(ServiceRegistry) any
	built   bool
}

// container is the concrete Container/ServiceRegistry implementation.
type container struct {
	mu      sync.Mutex
	entries map[string]*entry
	// building tracks tokens currently under construction, to turn an
	// accidental factory cycle into a clear panic instead of a deadlock.
	building map[string]bool
}

// NewContainer creates an empty container.
func NewContainer() *container {
	return &container{
		entries:  make(map[string]*entry),
		building: make(map[string]bool),
	}
}

// Register stores a concrete, already-built value under token.
func (c *container) Register(token string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &entry{value: value, built: true}
	e.once.Do(func() {})
	c.entries[token] = e
}

// registerFactory stores a lazy, memoized factory under token. The factory
// runs at most once, on first Get.
func (c *container) registerFactory(token string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = &entry{factory: factory}
}

// Get resolves token, building it from its factory on first access and
// caching the result for subsequent calls. Panics if token was never
// registered — a missing wiring is a programmer error, not a runtime one.
func (c *container) Get(token string) any {
	c.mu.Lock()
	e, ok := c.entries[token]
	if !ok {
		building := c.building[token]
		c.mu.Unlock()
		if building {
			panic(fmt.Sprintf("di: cycle detected resolving token %q", token))
		}
		panic(fmt.Sprintf("di: token %q not registered", token))
	}
	c.mu.Unlock()

	if e.factory == nil {
		return e.value
	}

	e.once.Do(func() {
		c.mu.Lock()
		c.building[token] = true
		c.mu.Unlock()

		e.value = e.factory(c)
		e.built = true

		c.mu.Lock()
		delete(c.building, token)
		c.mu.Unlock()
	})
	return e.value
}

// RegisterToken registers a typed, lazily-built service under token. The
// factory receives the registry so it can resolve its own dependencies
// (including other lazy tokens registered earlier in the same module, or
// globals registered directly via Container.Register).
func RegisterToken[T any](c Container, token string, factory func(ServiceRegistry) T) {
	cc, ok := c.(*container)
	if !ok {
		// Fallback for test doubles implementing Container without the
		// concrete type: build and register eagerly.
		c.Register(token, factory(c.(ServiceRegistry)))
		return
	}
	cc.registerFactory(token, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// MustGet resolves token and type-asserts it to T, panicking with a
// descriptive message on a type mismatch instead of a bare assertion panic.
func MustGet[T any](sr ServiceRegistry, token string) T {
	v := sr.Get(token)
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("di: token %q has type %T, want %T", token, v, t))
	}
	return t
}
