package container

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Factory builds a service. The Resolver passed in resolves dependencies
// in the context of the service being built.
type Factory func(r Resolver) (any, error)

// Resolver resolves services by identifier.
type Resolver interface {
	// Get returns the service bound to id.
	Get(id string) (any, error)

	// Has reports whether id can be resolved.
	Has(id string) bool
}

// binding is a registered factory with its singleton cache.
type binding struct {
	factory   Factory
	value     any
	building  *build
	mu        sync.Mutex
	singleton bool
	resolved  bool
}

// build is a singleton construction in flight, owned by one resolution.
type build struct {
	owner *resolution
	done  chan struct{}
}

// resolution identifies one top-level Get and every nested resolution it
// makes.
type resolution struct{}

// Container is a concurrency-safe service container.
// The zero value is not usable; create one with New.
type Container struct {
	bindings   map[string]*binding
	aliases    map[string]string
	contextual map[string]map[string]Factory
	deferred   map[string]*deferredEntry
	providers  []Provider
	pending    []*deferredEntry
	waiting    map[*resolution]*build
	mu         sync.RWMutex
	waitMu     sync.Mutex
}

// New creates an empty container.
func New() *Container {
	return &Container{
		bindings:   make(map[string]*binding),
		aliases:    make(map[string]string),
		contextual: make(map[string]map[string]Factory),
		deferred:   make(map[string]*deferredEntry),
		waiting:    make(map[*resolution]*build),
	}
}

// Key returns the identifier conventionally used for type T.
//
// Example:
//
//	c.Singleton(container.Key[*sql.DB](), openDB)
//	db, err := container.Resolve[*sql.DB](c, container.Key[*sql.DB]())
func Key[T any]() string {
	return reflect.TypeFor[T]().String()
}

// Bind registers a transient factory: every resolution calls it.
// Rebinding an id replaces the previous binding and its cached instance.
func (c *Container) Bind(id string, factory Factory) {
	c.set(id, &binding{factory: factory})
}

// Singleton registers a factory whose result is built once and shared.
func (c *Container) Singleton(id string, factory Factory) {
	c.set(id, &binding{factory: factory, singleton: true})
}

// Instance registers an already built value as a singleton.
func (c *Container) Instance(id string, value any) {
	c.set(id, &binding{value: value, singleton: true, resolved: true})
}

func (c *Container) set(id string, b *binding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[id] = b
	delete(c.aliases, id)
}

// Alias makes alias resolve to id. Aliases may point at other aliases.
func (c *Container) Alias(alias, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[alias] = id
}

// BindFor registers a contextual binding: while consumer is being built
// (or when resolving through For(consumer)), id resolves with factory
// instead of its global binding.
//
// Example:
//
//	c.BindFor("reports.exporter", "storage", func(container.Resolver) (any, error) {
//	    return archiveStorage, nil
//	})
func (c *Container) BindFor(consumer, id string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.contextual[consumer]
	if !ok {
		m = make(map[string]Factory)
		c.contextual[consumer] = m
	}
	m[id] = factory
}

// For returns a resolver that applies contextual bindings registered for consumer.
func (c *Container) For(consumer string) Resolver {
	return &resolver{c: c, consumer: consumer, token: new(resolution)}
}

// Has reports whether id resolves to a binding or a deferred provider.
func (c *Container) Has(id string) bool {
	return (&resolver{c: c}).Has(id)
}

// Get resolves id.
func (c *Container) Get(id string) (any, error) {
	return (&resolver{c: c, token: new(resolution)}).Get(id)
}

// MustGet resolves id and panics on failure.
// Intended for application wiring where a missing service is a programming error.
func (c *Container) MustGet(id string) any {
	v, err := c.Get(id)
	if err != nil {
		panic(err)
	}
	return v
}

// Reset forgets a cached singleton so the next resolution rebuilds it.
// Instances registered with Instance are kept.
func (c *Container) Reset(id string) {
	c.mu.RLock()
	b, ok := c.bindings[c.canonical(id)]
	c.mu.RUnlock()
	if !ok || b.factory == nil {
		return
	}
	b.mu.Lock()
	b.value = nil
	b.resolved = false
	b.mu.Unlock()
}

// IDs returns every known identifier (bindings, aliases and deferred ids), sorted.
func (c *Container) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{}, len(c.bindings)+len(c.aliases)+len(c.deferred))
	for id := range c.bindings {
		seen[id] = struct{}{}
	}
	for id := range c.aliases {
		seen[id] = struct{}{}
	}
	for id := range c.deferred {
		seen[id] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// canonical follows aliases. Caller must hold c.mu.
func (c *Container) canonical(id string) string {
	seen := 0
	for {
		target, ok := c.aliases[id]
		if !ok || seen > len(c.aliases) {
			return id
		}
		id = target
		seen++
	}
}

// resolver carries the resolution chain for cycle detection and the
// consumer for contextual bindings.
type resolver struct {
	c        *Container
	token    *resolution
	consumer string
	chain    []string
}

func (r *resolver) Has(id string) bool {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	id = r.c.canonical(id)
	if _, ok := r.c.contextual[r.consumer][id]; ok && r.consumer != "" {
		return true
	}
	if _, ok := r.c.bindings[id]; ok {
		return true
	}
	_, ok := r.c.deferred[id]
	return ok
}

func (r *resolver) Get(id string) (any, error) {
	r.c.mu.RLock()
	id = r.c.canonical(id)
	var contextual Factory
	if r.consumer != "" {
		contextual = r.c.contextual[r.consumer][id]
	}
	b, bound := r.c.bindings[id]
	entry, isDeferred := r.c.deferred[id]
	r.c.mu.RUnlock()

	if slices.Contains(r.chain, id) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCircularDependency, strings.Join(r.chain, " -> "), id)
	}

	child := &resolver{c: r.c, token: r.token, consumer: id, chain: append(slices.Clone(r.chain), id)}

	if contextual != nil {
		v, err := contextual(child)
		if err != nil {
			return nil, fmt.Errorf("container: resolve %q for %q: %w", id, r.consumer, err)
		}
		return v, nil
	}

	if !bound && isDeferred {
		if err := entry.register(r.c); err != nil {
			return nil, err
		}
		// The provider may have bound id through an alias.
		return r.Get(id)
	}
	if !bound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return r.c.resolve(b, id, child)
}

// resolve builds b. A singleton is built by one resolution at a time; the
// factory runs without b.mu held so that concurrent resolutions of a
// cycle's two ends can see each other and fail instead of blocking.
func (c *Container) resolve(b *binding, id string, r *resolver) (any, error) {
	if !b.singleton {
		v, err := b.factory(r)
		if err != nil {
			return nil, fmt.Errorf("container: resolve %q: %w", id, err)
		}
		return v, nil
	}

	for {
		b.mu.Lock()
		if b.resolved {
			v := b.value
			b.mu.Unlock()
			return v, nil
		}
		inflight := b.building
		if inflight == nil {
			own := &build{owner: r.token, done: make(chan struct{})}
			b.building = own
			b.mu.Unlock()
			return c.construct(b, own, id, r)
		}
		b.mu.Unlock()

		if err := c.await(r, inflight, id); err != nil {
			return nil, err
		}
	}
}

func (c *Container) construct(b *binding, own *build, id string, r *resolver) (any, error) {
	v, err := b.factory(r)

	b.mu.Lock()
	if b.building == own {
		b.building = nil
		if err == nil {
			b.value = v
			b.resolved = true
		}
	}
	b.mu.Unlock()
	close(own.done)

	if err != nil {
		return nil, fmt.Errorf("container: resolve %q: %w", id, err)
	}
	return v, nil
}

// await blocks until inflight finishes. It fails when the resolution that
// owns inflight is itself, directly or transitively, waiting on r.
func (c *Container) await(r *resolver, inflight *build, id string) error {
	c.waitMu.Lock()
	if inflight.owner != r.token {
		for owner, steps := inflight.owner, 0; steps <= len(c.waiting); steps++ {
			next, ok := c.waiting[owner]
			if !ok {
				break
			}
			if next.owner == r.token {
				c.waitMu.Unlock()
				return fmt.Errorf("%w: %s is being built by a resolution waiting on %s", ErrCircularDependency, id, strings.Join(r.chain, " -> "))
			}
			owner = next.owner
		}
	}
	c.waiting[r.token] = inflight
	c.waitMu.Unlock()

	<-inflight.done

	c.waitMu.Lock()
	delete(c.waiting, r.token)
	c.waitMu.Unlock()
	return nil
}

// Resolve resolves id and asserts its type.
//
// Example:
//
//	db, err := container.Resolve[*orm.DB](c, "db")
func Resolve[T any](r Resolver, id string) (T, error) {
	var zero T
	v, err := r.Get(id)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, not %s", ErrTypeMismatch, id, v, reflect.TypeFor[T]())
	}
	return typed, nil
}

// MustResolve is Resolve that panics on failure.
func MustResolve[T any](r Resolver, id string) T {
	v, err := Resolve[T](r, id)
	if err != nil {
		panic(err)
	}
	return v
}
