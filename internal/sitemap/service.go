package sitemap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Service serves the sitemap of a route table, rebuilding it whenever the
// cached document has expired.
type Service struct {
	cfg    Config
	routes RouteSource

	engine   *Engine
	builder  *Builder
	cache    Store
	notifier *Notifier

	flight   singleflight.Group
	lastGood atomic.Pointer[[]byte]

	log *slog.Logger
}

type serviceOptions struct {
	logger  *slog.Logger
	store   Store
	factory InstanceFactory
	clock   clock.Clock
	client  *http.Client
}

type Option func(*serviceOptions)

func WithLogger(l *slog.Logger) Option { return func(o *serviceOptions) { o.logger = l } }

// WithStore replaces the store selected by cache.store.
func WithStore(s Store) Option { return func(o *serviceOptions) { o.store = s } }

// WithInstanceFactory sets the factory used for routes with managed
// instantiation.
func WithInstanceFactory(f InstanceFactory) Option { return func(o *serviceOptions) { o.factory = f } }

func WithClock(c clock.Clock) Option { return func(o *serviceOptions) { o.clock = c } }

// WithHTTPClient sets the client used for search engine pings.
func WithHTTPClient(c *http.Client) Option { return func(o *serviceOptions) { o.client = c } }

func NewService(cfg Config, routes RouteSource, reg *Registry, opts ...Option) (*Service, error) {
	o := serviceOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if reg == nil {
		reg = NewRegistry()
	}
	log := o.logger.With("component", "sitemap")

	details, err := reg.NewResolver(cfg.Sitemap.RouteDetailsResolver)
	if err != nil {
		return nil, fmt.Errorf("sitemap.routeDetailsResolver: %w", err)
	}
	log.Info("using route details resolver", "name", cfg.Sitemap.RouteDetailsResolver)

	store := o.store
	if store == nil {
		switch cfg.Cache.Store {
		case StoreLevelDB:
			store, err = OpenDiskStore(cfg.Cache.Path, o.clock)
			if err != nil {
				return nil, fmt.Errorf("open cache: %w", err)
			}
		default:
			store = NewMemoryStore(cfg.Cache.Size, cfg.Expires(), o.clock)
		}
	}

	s := &Service{
		cfg:    cfg,
		routes: routes,
		engine: NewEngine(EngineOptions{
			Registry:                       reg,
			Factory:                        o.factory,
			Details:                        details,
			SuppressStaticMultiPageWarning: cfg.Sitemap.SuppressStaticMultiPageWarning,
			Logger:                         log,
		}),
		builder: &Builder{MaxBytes: cfg.Sitemap.maxBytes, Logger: log},
		cache:   store,
		notifier: NewNotifier(NotifierOptions{
			Mode:      cfg.Server.Mode,
			Targets:   PingTargets(cfg),
			Timeout:   cfg.Ping.timeoutDur,
			Workers:   cfg.Ping.Workers,
			QueueSize: cfg.Ping.QueueSize,
			Client:    o.client,
			Logger:    log,
		}),
		log: log,
	}
	return s, nil
}

// Close waits for pending pings and closes the cache.
func (s *Service) Close() {
	s.notifier.Close()
	if err := s.cache.Close(); err != nil {
		s.log.Warn("close cache", "err", err)
	}
}

func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+s.cfg.Sitemap.Route, s.handle)
	return mux
}

func (s *Service) handle(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Sitemap(r)
	if err != nil {
		stale := s.lastGood.Load()
		if stale == nil || !s.cfg.ServeStaleOnError() {
			s.log.Error("sitemap build failed", "err", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		s.log.Warn("sitemap build failed, serving last good document", "err", err)
		doc = *stale
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		s.log.Debug("write sitemap response", "err", err)
	}
}

// Sitemap returns the cached document, rebuilding it on a miss. The URL
// prefix falls back to the scheme and host of r.
func (s *Service) Sitemap(r *http.Request) ([]byte, error) {
	if doc, ok := s.cache.Get(DocumentKey); ok {
		cacheRequestsTotal.WithLabelValues("hit").Inc()
		return doc, nil
	}
	cacheRequestsTotal.WithLabelValues("miss").Inc()

	prefix := URLPrefix(s.cfg.Sitemap.Prefix, r, s.log)
	if !s.cfg.Cache.SingleFlight {
		return s.rebuild(r.Context(), prefix)
	}
	// The rebuild is shared by every waiting request, so the first caller
	// going away must not cancel it for the others.
	ctx := context.WithoutCancel(r.Context())
	v, err, _ := s.flight.Do(DocumentKey, func() (any, error) {
		return s.rebuild(ctx, prefix)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// rebuild builds a fresh document, caches it and notifies search engines.
// Failing to cache is not an error.
func (s *Service) rebuild(ctx context.Context, prefix string) ([]byte, error) {
	log := s.log.With("build", uuid.NewString())

	doc, err := s.Build(ctx, prefix)
	if err != nil {
		return nil, err
	}
	s.lastGood.Store(&doc)

	ttl := s.cfg.Expires()
	if err := s.cache.Set(DocumentKey, doc, ttl); err != nil {
		cacheWriteFailuresTotal.Inc()
		log.Warn("could not cache sitemap", "err", err)
	} else {
		log.Info("sitemap has been updated and cached", "expires", ttl)
	}

	s.notifier.Notify(prefix + s.cfg.Sitemap.Route)
	return doc, nil
}

// Build resolves the entries of all routes and serializes them, without
// touching the cache.
func (s *Service) Build(ctx context.Context, prefix string) ([]byte, error) {
	start := time.Now()
	var entries []Entry
	for _, route := range s.routes.Routes() {
		ents, err := s.engine.ResolveEntries(ctx, route)
		if err != nil {
			buildsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		entries = append(entries, ents...)
	}

	doc, err := s.builder.Build(prefix, entries)
	if err != nil {
		buildsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("serialize sitemap: %w", err)
	}
	buildsTotal.WithLabelValues("ok").Inc()
	buildDurationSeconds.Observe(time.Since(start).Seconds())
	documentEntries.Set(float64(len(entries)))
	return doc, nil
}
