package sitemap

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	ModeDev  = "dev"
	ModeTest = "test"
	ModeProd = "prod"

	DefaultRoute   = "/sitemap.xml"
	DefaultExpires = "12h"

	StoreMemory  = "memory"
	StoreLevelDB = "leveldb"

	defaultGooglePingURL = "https://www.google.com/ping?sitemap="
	defaultBingPingURL   = "https://www.bing.com/ping?sitemap="
)

type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`

	Sitemap struct {
		Route                          string `yaml:"route"`
		Prefix                         string `yaml:"prefix"`
		Expires                        string `yaml:"expires"`
		RouteDetailsResolver           string `yaml:"routeDetailsResolver"`
		SuppressStaticMultiPageWarning bool   `yaml:"suppressStaticMultiPageWarning"`
		ServeStaleOnError              *bool  `yaml:"serveStaleOnError"`
		MaxSize                        string `yaml:"maxSize"`

		expiresDur time.Duration
		maxBytes   int64
	} `yaml:"sitemap"`

	Cache struct {
		Store        string `yaml:"store"`
		Path         string `yaml:"path"`
		Size         int    `yaml:"size"`
		SingleFlight bool   `yaml:"singleFlight"`
	} `yaml:"cache"`

	Ping struct {
		Google    bool   `yaml:"google"`
		Bing      bool   `yaml:"bing"`
		GoogleURL string `yaml:"googleURL"`
		BingURL   string `yaml:"bingURL"`
		Timeout   string `yaml:"timeout"`
		Workers   int    `yaml:"workers"`
		QueueSize int    `yaml:"queueSize"`

		timeoutDur time.Duration
	} `yaml:"ping"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Providers map[string]ProviderConfig `yaml:"providers"`
	Routes    []RouteConfig             `yaml:"routes"`
}

// ProviderConfig declares a "values" multi-page provider: one entry per
// value set, placeholders in the route URI replaced by the named values.
type ProviderConfig struct {
	Values          []map[string]string `yaml:"values"`
	Priority        string              `yaml:"priority"`
	ChangeFrequency string              `yaml:"changeFrequency"`

	// compiled
	priority   float64
	changeFreq ChangeFreq
}

type RouteConfig struct {
	Method     string          `yaml:"method"`
	URI        string          `yaml:"uri"`
	Controller string          `yaml:"controller"`
	Sitemap    *MetadataConfig `yaml:"sitemap"`

	// compiled
	meta *Metadata
}

type MetadataConfig struct {
	Path              string `yaml:"path"`
	Priority          string `yaml:"priority"`
	ChangeFrequency   string `yaml:"changeFrequency"`
	MultiPageProvider string `yaml:"multiPageProvider"`
	Managed           bool   `yaml:"managed"`
}

func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML, applies defaults and validates the result. All
// validation errors are reported together.
func ParseConfig(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.compile(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig is the configuration of an empty YAML document.
func DefaultConfig() Config {
	var cfg Config
	if err := cfg.compile(); err != nil {
		panic(err)
	}
	return cfg
}

func (cfg *Config) compile() error {
	var errs error

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	switch cfg.Server.Mode {
	case "":
		cfg.Server.Mode = ModeDev
	case ModeDev, ModeTest, ModeProd:
	default:
		errs = multierr.Append(errs, fmt.Errorf("server.mode: unknown mode %q", cfg.Server.Mode))
	}

	sm := &cfg.Sitemap
	if sm.Route == "" {
		sm.Route = DefaultRoute
	}
	if !strings.HasPrefix(sm.Route, "/") {
		errs = multierr.Append(errs, fmt.Errorf("sitemap.route: must start with /, got %q", sm.Route))
	}
	sm.Prefix = strings.TrimRight(strings.TrimSpace(sm.Prefix), "/")
	if sm.Expires == "" {
		sm.Expires = DefaultExpires
	}
	if d, err := parseExpires(sm.Expires); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("sitemap.expires: %w", err))
	} else if d <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("sitemap.expires: must be positive, got %s", sm.Expires))
	} else {
		sm.expiresDur = d
	}
	if sm.RouteDetailsResolver == "" {
		sm.RouteDetailsResolver = SimpleResolverName
	}
	if sm.ServeStaleOnError == nil {
		on := true
		sm.ServeStaleOnError = &on
	}
	if sm.MaxSize != "" {
		n, err := parseBytes(sm.MaxSize)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sitemap.maxSize: %w", err))
		}
		sm.maxBytes = n
	}

	switch cfg.Cache.Store {
	case "":
		cfg.Cache.Store = StoreMemory
	case StoreMemory, StoreLevelDB:
	default:
		errs = multierr.Append(errs, fmt.Errorf("cache.store: unknown store %q", cfg.Cache.Store))
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = "./data/leveldb"
	}

	p := &cfg.Ping
	if p.GoogleURL == "" {
		p.GoogleURL = defaultGooglePingURL
	}
	if p.BingURL == "" {
		p.BingURL = defaultBingPingURL
	}
	if p.Timeout == "" {
		p.Timeout = "10s"
	}
	if d, err := time.ParseDuration(p.Timeout); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("ping.timeout: %w", err))
	} else {
		p.timeoutDur = d
	}
	if p.Workers <= 0 {
		p.Workers = 2
	}
	if p.QueueSize <= 0 {
		p.QueueSize = 16
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pc := cfg.Providers[name]
		if err := pc.compile(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("providers.%s: %w", name, err))
		}
		cfg.Providers[name] = pc
	}

	for i := range cfg.Routes {
		rc := &cfg.Routes[i]
		if err := rc.compile(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("routes[%d]: %w", i, err))
		}
	}

	return errs
}

func (pc *ProviderConfig) compile() error {
	var errs error
	pr, err := parsePriority(pc.Priority)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("priority: %w", err))
	}
	pc.priority = pr
	cf, err := parseChangeFreqDefault(pc.ChangeFrequency)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("changeFrequency: %w", err))
	}
	pc.changeFreq = cf
	if pc.priority == PriorityDynamic || pc.changeFreq == ChangeFreqDynamic {
		errs = multierr.Append(errs, fmt.Errorf("dynamic values are not supported for providers"))
	}
	return errs
}

func (rc *RouteConfig) compile() error {
	if rc.Method == "" {
		rc.Method = "GET"
	}
	if !strings.HasPrefix(rc.URI, "/") {
		return fmt.Errorf("uri: must start with /, got %q", rc.URI)
	}
	if rc.Sitemap == nil {
		return nil
	}
	meta := DefaultMetadata()
	meta.Path = rc.Sitemap.Path
	meta.MultiPageProvider = rc.Sitemap.MultiPageProvider
	meta.Managed = rc.Sitemap.Managed

	var errs error
	pr, err := parsePriority(rc.Sitemap.Priority)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("sitemap.priority: %w", err))
	}
	meta.Priority = pr
	cf, err := parseChangeFreqDefault(rc.Sitemap.ChangeFrequency)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("sitemap.changeFrequency: %w", err))
	}
	meta.ChangeFrequency = cf
	rc.meta = &meta
	return errs
}

var expiresUnitRe = regexp.MustCompile(`(\d+(?:\.\d+)?)(mn|d)`)

// parseExpires reads a Go duration that may also use "d" (days) and "mn"
// (minutes), as in "1d12h" or "30mn".
func parseExpires(s string) (time.Duration, error) {
	norm := expiresUnitRe.ReplaceAllStringFunc(strings.ReplaceAll(s, " ", ""), func(tok string) string {
		m := expiresUnitRe.FindStringSubmatch(tok)
		if m[2] == "mn" {
			return m[1] + "m"
		}
		days, _ := strconv.ParseFloat(m[1], 64)
		return strconv.FormatFloat(days*24, 'f', -1, 64) + "h"
	})
	d, err := time.ParseDuration(norm)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func parsePriority(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return DefaultPriority, nil
	case "dynamic":
		return PriorityDynamic, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return DefaultPriority, err
	}
	if v < 0 || v > 1 {
		return DefaultPriority, fmt.Errorf("must be within [0,1], got %s", s)
	}
	return v, nil
}

func parseChangeFreqDefault(s string) (ChangeFreq, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultChangeFrequency, nil
	}
	f, err := ParseChangeFreq(s)
	if err != nil {
		return DefaultChangeFrequency, err
	}
	return f, nil
}

// RouteTable returns the configured routes with their compiled metadata.
func (cfg Config) RouteTable() RouteTable {
	out := make(RouteTable, 0, len(cfg.Routes))
	for _, rc := range cfg.Routes {
		out = append(out, Route{
			Method:       rc.Method,
			URI:          rc.URI,
			ControllerID: rc.Controller,
			Sitemap:      rc.meta,
		})
	}
	return out
}

// Expires is the cache TTL of a built document.
func (cfg Config) Expires() time.Duration { return cfg.Sitemap.expiresDur }

func (cfg Config) ServeStaleOnError() bool {
	return cfg.Sitemap.ServeStaleOnError == nil || *cfg.Sitemap.ServeStaleOnError
}
