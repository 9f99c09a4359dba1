package sitemap

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// PriorityDynamic asks the active RouteDetailsResolver for the priority.
	PriorityDynamic = -1000.0

	DefaultPriority        = 0.5
	DefaultChangeFrequency = Daily
)

// ChangeFreq is the sitemap protocol hint of how often a page changes.
type ChangeFreq int

const (
	Never ChangeFreq = iota
	Hourly
	Daily
	Weekly
	Monthly
	Yearly
	Always

	// ChangeFreqDynamic asks the active RouteDetailsResolver for the frequency.
	ChangeFreqDynamic ChangeFreq = -1000
)

var changeFreqTokens = [...]string{
	Never:   "never",
	Hourly:  "hourly",
	Daily:   "daily",
	Weekly:  "weekly",
	Monthly: "monthly",
	Yearly:  "yearly",
	Always:  "always",
}

// Valid reports whether f is one of the seven protocol values.
func (f ChangeFreq) Valid() bool {
	return f >= Never && f <= Always
}

func (f ChangeFreq) String() string {
	if f == ChangeFreqDynamic {
		return "dynamic"
	}
	if !f.Valid() {
		return fmt.Sprintf("ChangeFreq(%d)", int(f))
	}
	return changeFreqTokens[f]
}

// ParseChangeFreq accepts the protocol tokens (case-insensitive) and "dynamic".
func ParseChangeFreq(s string) (ChangeFreq, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "dynamic" {
		return ChangeFreqDynamic, nil
	}
	for i, tok := range changeFreqTokens {
		if tok == s {
			return ChangeFreq(i), nil
		}
	}
	return 0, fmt.Errorf("unknown change frequency %q", s)
}

// Metadata is the sitemap configuration attached to a route registration.
// A route with nil metadata is never part of the sitemap.
type Metadata struct {
	// Path overrides the route URI as the page path.
	Path            string
	Priority        float64
	ChangeFrequency ChangeFreq

	// MultiPageProvider names the provider that expands this route into entries.
	MultiPageProvider string
	// Managed obtains the provider from the host InstanceFactory instead of
	// constructing it from the registry.
	Managed bool
}

// DefaultMetadata returns metadata with the default priority and frequency.
func DefaultMetadata() Metadata {
	return Metadata{Priority: DefaultPriority, ChangeFrequency: DefaultChangeFrequency}
}

// placeholders returns the [start, end) spans of the top-level {...} groups
// in uri. Braces nested inside a group, such as a {n} regex quantifier,
// belong to that group; an unclosed group is not a placeholder.
func placeholders(uri string) [][2]int {
	var spans [][2]int
	depth, start := 0, 0
	for i := 0; i < len(uri); i++ {
		switch uri[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				spans = append(spans, [2]int{start, i + 1})
			}
		}
	}
	return spans
}

// Route is a read-only view of one route of the host application.
type Route struct {
	Method       string
	URI          string
	ControllerID string
	Sitemap      *Metadata
}

// IsDynamic reports whether the URI contains a parameter placeholder.
func (r Route) IsDynamic() bool {
	return len(placeholders(r.URI)) > 0
}

// RouteSource enumerates the routes of the host application.
type RouteSource interface {
	Routes() []Route
}

// RouteTable is a static RouteSource.
type RouteTable []Route

func (t RouteTable) Routes() []Route { return t }

// Entry is one page in the sitemap.
type Entry struct {
	PagePath        string
	LastModified    time.Time
	Priority        float64
	ChangeFrequency ChangeFreq

	// Carried for providers and hosts; not written to the document.
	ShortName        string
	ShortDescription string
}

// RouteDetailsResolver supplies values for routes whose metadata asks for
// dynamic resolution. Implementations must be safe for concurrent use.
type RouteDetailsResolver interface {
	LastModified(ctx context.Context, route Route, meta Metadata) time.Time
	Priority(ctx context.Context, route Route, meta Metadata) float64
	ChangeFrequency(ctx context.Context, route Route, meta Metadata) ChangeFreq
}

// MultiPageProvider expands one route into an ordered list of entries.
// Implementations must be safe for concurrent use.
type MultiPageProvider interface {
	Entries(ctx context.Context, route Route, meta Metadata) ([]Entry, error)
}

// InstanceFactory is the host's managed instantiation capability.
type InstanceFactory interface {
	Provider(ref string) (MultiPageProvider, error)
}

func trimLeadingSlash(p string) string {
	return strings.TrimPrefix(p, "/")
}
