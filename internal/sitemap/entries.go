package sitemap

import (
	"context"
	"log/slog"
	"time"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	Registry *Registry
	// Factory serves providers for routes with managed instantiation. When nil
	// such routes fall back to a registry-backed Singletons factory.
	Factory InstanceFactory
	Details RouteDetailsResolver
	// SuppressStaticMultiPageWarning silences the warning for multi-page
	// providers attached to routes without placeholders.
	SuppressStaticMultiPageWarning bool
	Logger                         *slog.Logger
}

// Engine turns routes and their metadata into sitemap entries.
type Engine struct {
	registry *Registry
	factory  InstanceFactory
	details  RouteDetailsResolver

	suppressStaticWarn bool
	staticWarn         *rateLimitedLogger

	log *slog.Logger
}

func NewEngine(opts EngineOptions) *Engine {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Factory == nil {
		opts.Factory = NewSingletons(opts.Registry)
	}
	if opts.Details == nil {
		opts.Details = SimpleResolver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		registry:           opts.Registry,
		factory:            opts.Factory,
		details:            opts.Details,
		suppressStaticWarn: opts.SuppressStaticMultiPageWarning,
		staticWarn:         newRateLimitedLogger(opts.Logger, time.Hour),
		log:                opts.Logger,
	}
}

// ResolveEntries expands one route into zero or more entries. Routes without
// metadata yield nothing. Failing to obtain a provider is logged and yields
// nothing; a provider failing while generating entries is returned as a
// *ProviderError.
func (e *Engine) ResolveEntries(ctx context.Context, route Route) ([]Entry, error) {
	if !e.Include(route) {
		return nil, nil
	}
	meta := *route.Sitemap
	dynamic := route.IsDynamic()

	var (
		entries []Entry
		err     error
	)
	switch {
	case meta.MultiPageProvider != "":
		entries, err = e.providerEntries(ctx, route, meta, dynamic)
		if err != nil {
			return nil, err
		}
	case !dynamic:
		entries = []Entry{e.staticEntry(ctx, route, meta)}
	default:
		e.log.Warn("dynamic route does not configure a MultiPageProvider, not including in sitemap",
			"uri", route.URI, "controller", route.ControllerID)
	}

	e.log.Debug("resolved sitemap entries", "uri", route.URI, "entries", len(entries))
	return entries, nil
}

func (e *Engine) staticEntry(ctx context.Context, route Route, meta Metadata) Entry {
	ent := Entry{
		PagePath:        trimLeadingSlash(route.URI),
		LastModified:    e.details.LastModified(ctx, route, meta),
		Priority:        meta.Priority,
		ChangeFrequency: meta.ChangeFrequency,
	}
	if meta.Path != "" {
		ent.PagePath = trimLeadingSlash(meta.Path)
	}
	if meta.Priority == PriorityDynamic {
		ent.Priority = e.details.Priority(ctx, route, meta)
	}
	if meta.ChangeFrequency == ChangeFreqDynamic {
		ent.ChangeFrequency = e.details.ChangeFrequency(ctx, route, meta)
	}
	return ent
}

func (e *Engine) providerEntries(ctx context.Context, route Route, meta Metadata, dynamic bool) ([]Entry, error) {
	ref := meta.MultiPageProvider

	provider, err := e.provider(ref, meta.Managed)
	if err != nil {
		e.log.Error("could not obtain multi-page provider, not including in sitemap",
			"provider", ref, "uri", route.URI, "controller", route.ControllerID, "managed", meta.Managed, "err", err)
		return nil, nil
	}

	if !dynamic && !e.suppressStaticWarn {
		e.staticWarn.Warn(route.URI, "multi-page provider used for a route without placeholders, is this intended?",
			"provider", ref, "uri", route.URI, "controller", route.ControllerID)
	}

	entries, err := provider.Entries(ctx, route, meta)
	if err != nil {
		if meta.Managed {
			e.log.Error("managed multi-page provider failed; check that the instance factory wires its dependencies",
				"provider", ref, "uri", route.URI, "err", err)
		}
		return nil, &ProviderError{Route: route.URI, Provider: ref, Managed: meta.Managed, Err: err}
	}
	if len(entries) == 0 {
		e.log.Warn("multi-page provider returned no sitemap entries",
			"provider", ref, "uri", route.URI, "controller", route.ControllerID)
		return nil, nil
	}

	out := make([]Entry, len(entries))
	for i, ent := range entries {
		ent.PagePath = trimLeadingSlash(ent.PagePath)
		out[i] = ent
	}
	return out, nil
}

func (e *Engine) provider(ref string, managed bool) (MultiPageProvider, error) {
	if managed {
		p, err := e.factory.Provider(ref)
		if err == nil && p == nil {
			return nil, ErrUnknownProvider
		}
		return p, err
	}
	return e.registry.NewProvider(ref)
}
