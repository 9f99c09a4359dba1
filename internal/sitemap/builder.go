package sitemap

import (
	"bytes"
	"encoding/xml"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

	// MaxURLs is the sitemap protocol limit of entries per document.
	MaxURLs = 50000
)

type urlset struct {
	XMLName xml.Name  `xml:"urlset"`
	Xmlns   string    `xml:"xmlns,attr"`
	URLs    []urlElem `xml:"url"`
}

type urlElem struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Builder serializes entries into a sitemap protocol urlset document.
type Builder struct {
	// MaxBytes warns when a document grows beyond it; 0 disables the check.
	MaxBytes int64
	Logger   *slog.Logger
}

// Build renders entries as absolute URLs below prefix. Invalid priorities and
// change frequencies are replaced by their defaults.
func (b *Builder) Build(prefix string, entries []Entry) ([]byte, error) {
	log := b.Logger
	if log == nil {
		log = slog.Default()
	}
	prefix = strings.TrimRight(prefix, "/")

	doc := urlset{Xmlns: sitemapNamespace, URLs: make([]urlElem, 0, len(entries))}
	for _, ent := range entries {
		u := urlElem{
			Loc:        prefix + "/" + ent.PagePath,
			ChangeFreq: changeFreqToken(log, ent),
			Priority:   formatPriority(log, ent),
		}
		if !ent.LastModified.IsZero() {
			u.LastMod = ent.LastModified.Format(time.RFC3339)
		}
		doc.URLs = append(doc.URLs, u)
	}
	if len(doc.URLs) > MaxURLs {
		log.Warn("sitemap exceeds the protocol limit of URLs per document", "urls", len(doc.URLs), "limit", MaxURLs)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')

	if b.MaxBytes > 0 && int64(buf.Len()) > b.MaxBytes {
		log.Warn("sitemap exceeds configured max size",
			"size", formatBytes(uint64(buf.Len())), "max", formatBytes(uint64(b.MaxBytes)))
	}
	return buf.Bytes(), nil
}

func changeFreqToken(log *slog.Logger, ent Entry) string {
	if !ent.ChangeFrequency.Valid() {
		log.Warn("invalid change frequency, using daily", "page", ent.PagePath, "value", int(ent.ChangeFrequency))
		return Daily.String()
	}
	return ent.ChangeFrequency.String()
}

func formatPriority(log *slog.Logger, ent Entry) string {
	p := ent.Priority
	if p < 0 || p > 1 || math.IsNaN(p) {
		log.Warn("priority out of range, using default", "page", ent.PagePath, "value", p)
		p = DefaultPriority
	}
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// URLPrefix returns the configured prefix, or scheme and host of r when none
// is configured. Trailing slashes are stripped.
func URLPrefix(configured string, r *http.Request, log *slog.Logger) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	prefix := scheme + "://" + r.Host
	log.Warn("no sitemap.prefix configured, deriving it from the request; configure it explicitly", "prefix", prefix)
	return strings.TrimRight(prefix, "/")
}
