package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Provider registers one or more services into a container.
type Provider interface {
	Register(c *Container) error
}

// DeferredProvider is a Provider whose registration is postponed until one
// of the ids it provides is first resolved.
type DeferredProvider interface {
	Provider

	// Provides lists the ids this provider binds.
	Provides() []string
}

// Booter is implemented by providers that need a start-up step after every
// provider has registered (warming caches, running migrations, ...).
type Booter interface {
	Boot(ctx context.Context, c *Container) error
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(c *Container) error

// Register calls f(c).
func (f ProviderFunc) Register(c *Container) error {
	return f(c)
}

type deferredEntry struct {
	provider   DeferredProvider
	err        error
	once       sync.Once
	registered bool
}

func (e *deferredEntry) register(c *Container) error {
	e.once.Do(func() {
		if err := e.provider.Register(c); err != nil {
			e.err = errors.Join(ErrProvider, fmt.Errorf("%T: %w", e.provider, err))
			return
		}
		c.mu.Lock()
		e.registered = true
		for _, id := range e.provider.Provides() {
			if c.deferred[id] == e {
				delete(c.deferred, id)
			}
		}
		c.mu.Unlock()
	})
	return e.err
}

// Register runs p.Register immediately. Providers implementing Booter are
// remembered and booted by Boot.
func (c *Container) Register(p Provider) error {
	if err := p.Register(c); err != nil {
		return errors.Join(ErrProvider, fmt.Errorf("%T: %w", p, err))
	}
	c.mu.Lock()
	c.providers = append(c.providers, p)
	c.mu.Unlock()
	return nil
}

// Defer records p; its Register runs once, on first resolution of any id
// listed by Provides.
func (c *Container) Defer(p DeferredProvider) {
	entry := &deferredEntry{provider: p}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range p.Provides() {
		c.deferred[id] = entry
	}
	c.pending = append(c.pending, entry)
}

// Boot calls Boot on every registered provider implementing Booter, in
// registration order. Deferred providers are booted only once they have
// been registered by a resolution.
func (c *Container) Boot(ctx context.Context) error {
	c.mu.RLock()
	providers := make([]Provider, 0, len(c.providers)+len(c.pending))
	providers = append(providers, c.providers...)
	for _, e := range c.pending {
		if e.registered {
			providers = append(providers, e.provider)
		}
	}
	c.mu.RUnlock()

	for _, p := range providers {
		b, ok := p.(Booter)
		if !ok {
			continue
		}
		if err := b.Boot(ctx, c); err != nil {
			return errors.Join(ErrProvider, fmt.Errorf("boot %T: %w", p, err))
		}
	}
	return nil
}
