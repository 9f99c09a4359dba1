package sitemap

import (
	"fmt"
	"sort"
	"sync"
)

type (
	ProviderFactory func() (MultiPageProvider, error)
	ResolverFactory func() (RouteDetailsResolver, error)
)

// Registry maps stable names to provider and resolver constructors. It is
// populated once at startup and read concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
	resolvers map[string]ResolverFactory
}

// NewRegistry returns a registry holding the built-in resolvers.
func NewRegistry() *Registry {
	r := &Registry{
		providers: map[string]ProviderFactory{},
		resolvers: map[string]ResolverFactory{},
	}
	r.RegisterResolver(SimpleResolverName, func() (RouteDetailsResolver, error) {
		return SimpleResolver{}, nil
	})
	r.RegisterResolver(StartupResolverName, func() (RouteDetailsResolver, error) {
		return startupResolver, nil
	})
	return r
}

func (r *Registry) RegisterProvider(name string, f ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = f
}

func (r *Registry) RegisterResolver(name string, f ResolverFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[name] = f
}

// NewProvider constructs a fresh provider instance.
func (r *Registry) NewProvider(name string) (MultiPageProvider, error) {
	r.mu.RLock()
	f, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	p, err := f()
	if err != nil {
		return nil, fmt.Errorf("construct provider %q: %w", name, err)
	}
	if p == nil {
		return nil, fmt.Errorf("construct provider %q: factory returned nil", name)
	}
	return p, nil
}

func (r *Registry) NewResolver(name string) (RouteDetailsResolver, error) {
	r.mu.RLock()
	f, ok := r.resolvers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResolver, name)
	}
	res, err := f()
	if err != nil {
		return nil, fmt.Errorf("construct resolver %q: %w", name, err)
	}
	if res == nil {
		return nil, fmt.Errorf("construct resolver %q: factory returned nil", name)
	}
	return res, nil
}

func (r *Registry) ProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Singletons is an InstanceFactory that constructs each provider from the
// registry once and hands out the same instance afterwards. Failed
// constructions are not remembered.
type Singletons struct {
	reg *Registry

	mu        sync.Mutex
	instances map[string]MultiPageProvider
}

func NewSingletons(reg *Registry) *Singletons {
	return &Singletons{reg: reg, instances: map[string]MultiPageProvider{}}
}

func (s *Singletons) Provider(ref string) (MultiPageProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.instances[ref]; ok {
		return p, nil
	}
	p, err := s.reg.NewProvider(ref)
	if err != nil {
		return nil, err
	}
	s.instances[ref] = p
	return p, nil
}
