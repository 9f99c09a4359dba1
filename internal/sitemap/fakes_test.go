package sitemap

import (
	"context"
	"sync/atomic"
	"time"
)

type providerFunc func(ctx context.Context, route Route, meta Metadata) ([]Entry, error)

func (f providerFunc) Entries(ctx context.Context, route Route, meta Metadata) ([]Entry, error) {
	return f(ctx, route, meta)
}

type factoryFunc func(ref string) (MultiPageProvider, error)

func (f factoryFunc) Provider(ref string) (MultiPageProvider, error) { return f(ref) }

// fixedResolver returns constant values and counts its invocations.
type fixedResolver struct {
	at       time.Time
	priority float64
	freq     ChangeFreq
	calls    atomic.Int32
}

func (r *fixedResolver) LastModified(context.Context, Route, Metadata) time.Time {
	r.calls.Add(1)
	return r.at
}

func (r *fixedResolver) Priority(context.Context, Route, Metadata) float64 {
	r.calls.Add(1)
	return r.priority
}

func (r *fixedResolver) ChangeFrequency(context.Context, Route, Metadata) ChangeFreq {
	r.calls.Add(1)
	return r.freq
}

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func meta(m Metadata) *Metadata { return &m }

// userEntries provides user/1 and user/2 and counts its invocations.
func userEntries(calls *atomic.Int32) providerFunc {
	return func(context.Context, Route, Metadata) ([]Entry, error) {
		if calls != nil {
			calls.Add(1)
		}
		return []Entry{
			{PagePath: "/user/1", LastModified: testTime, Priority: 0.7, ChangeFrequency: Weekly, ShortName: "one"},
			{PagePath: "/user/2", LastModified: testTime, Priority: 0.7, ChangeFrequency: Weekly, ShortDescription: "second"},
		}, nil
	}
}
