package sitemap

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// valuesProvider expands a route once per configured value set, substituting
// each {name} (or {name: pattern}) placeholder with the value of that name.
type valuesProvider struct {
	values     []map[string]string
	priority   float64
	changeFreq ChangeFreq
	now        func() time.Time
}

func newValuesProvider(pc ProviderConfig) *valuesProvider {
	return &valuesProvider{
		values:     pc.Values,
		priority:   pc.priority,
		changeFreq: pc.changeFreq,
		now:        time.Now,
	}
}

func (p *valuesProvider) Entries(_ context.Context, route Route, _ Metadata) ([]Entry, error) {
	now := p.now()
	out := make([]Entry, 0, len(p.values))
	for i, vals := range p.values {
		path, err := expandPlaceholders(route.URI, vals)
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		out = append(out, Entry{
			PagePath:        path,
			LastModified:    now,
			Priority:        p.priority,
			ChangeFrequency: p.changeFreq,
		})
	}
	return out, nil
}

func expandPlaceholders(uri string, vals map[string]string) (string, error) {
	var (
		b       strings.Builder
		missing []string
		last    int
	)
	for _, span := range placeholders(uri) {
		b.WriteString(uri[last:span[0]])
		last = span[1]

		ph := uri[span[0]:span[1]]
		name := ph[1 : len(ph)-1]
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSpace(name)
		v, ok := vals[name]
		if !ok {
			missing = append(missing, name)
			b.WriteString(ph)
			continue
		}
		b.WriteString(url.PathEscape(v))
	}
	b.WriteString(uri[last:])
	if len(missing) > 0 {
		return "", fmt.Errorf("no value for placeholder(s) %s", strings.Join(missing, ", "))
	}
	return b.String(), nil
}

// RegisterValueProviders registers one "values" provider per configured name.
func RegisterValueProviders(reg *Registry, providers map[string]ProviderConfig) {
	for name, pc := range providers {
		reg.RegisterProvider(name, func() (MultiPageProvider, error) {
			return newValuesProvider(pc), nil
		})
	}
}
