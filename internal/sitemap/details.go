package sitemap

import (
	"context"
	"time"
)

const (
	SimpleResolverName  = "simple"
	StartupResolverName = "startup"
)

// SimpleResolver assumes every page was just updated and uses the default
// priority and change frequency.
type SimpleResolver struct{}

func (SimpleResolver) LastModified(context.Context, Route, Metadata) time.Time {
	return time.Now()
}

func (SimpleResolver) Priority(context.Context, Route, Metadata) float64 {
	return DefaultPriority
}

func (SimpleResolver) ChangeFrequency(context.Context, Route, Metadata) ChangeFreq {
	return DefaultChangeFrequency
}

// StartupResolver reports a fixed last-modified time, so repeated builds of an
// unchanged route table produce identical documents.
type StartupResolver struct {
	At time.Time
}

var startupResolver = StartupResolver{At: time.Now().Truncate(time.Second)}

func (r StartupResolver) LastModified(context.Context, Route, Metadata) time.Time {
	return r.At
}

func (StartupResolver) Priority(context.Context, Route, Metadata) float64 {
	return DefaultPriority
}

func (StartupResolver) ChangeFrequency(context.Context, Route, Metadata) ChangeFreq {
	return DefaultChangeFrequency
}
