package sitemap

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingRecorder struct {
	mu      sync.Mutex
	queries map[string][]string
}

func newPingServer(t *testing.T, status map[string]int) (*httptest.Server, *pingRecorder) {
	t.Helper()
	rec := &pingRecorder{queries: map[string][]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.queries[r.URL.Path] = append(rec.queries[r.URL.Path], r.URL.Query().Get("sitemap"))
		rec.mu.Unlock()
		code, ok := status[r.URL.Path]
		if !ok {
			code = http.StatusOK
		}
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func (r *pingRecorder) get(path string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries[path]...)
}

func TestNotifierPingsEnabledEngines(t *testing.T) {
	srv, rec := newPingServer(t, nil)
	log, sink := newRecordingLogger()

	n := NewNotifier(NotifierOptions{
		Mode: ModeProd,
		Targets: []PingTarget{
			{Engine: "google", URL: srv.URL + "/google?sitemap="},
			{Engine: "bing", URL: srv.URL + "/bing?sitemap="},
		},
		Logger: log,
	})
	okBefore := testutil.ToFloat64(pingsTotal.WithLabelValues("google", "ok"))

	assert.Equal(t, 2, n.Notify("https://example.com/sitemap.xml"))
	n.Close()

	assert.Equal(t, []string{"https://example.com/sitemap.xml"}, rec.get("/google"))
	assert.Equal(t, []string{"https://example.com/sitemap.xml"}, rec.get("/bing"))
	assert.Equal(t, 2, sink.count(slog.LevelInfo, "search engine notified"))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(pingsTotal.WithLabelValues("google", "ok")))
}

func TestNotifierFailuresAreIsolated(t *testing.T) {
	srv, rec := newPingServer(t, map[string]int{"/google": http.StatusInternalServerError})
	log, sink := newRecordingLogger()

	n := NewNotifier(NotifierOptions{
		Mode: ModeProd,
		Targets: []PingTarget{
			{Engine: "google", URL: srv.URL + "/google?sitemap="},
			{Engine: "bing", URL: srv.URL + "/bing?sitemap="},
		},
		Logger: log,
	})
	assert.Equal(t, 2, n.Notify("https://example.com/sitemap.xml"))
	n.Close()

	assert.Len(t, rec.get("/bing"), 1)
	assert.Equal(t, 1, sink.count(slog.LevelWarn, "search engine ping failed"))
	assert.Equal(t, 1, sink.count(slog.LevelInfo, "search engine notified"))
}

func TestNotifierTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	log, sink := newRecordingLogger()
	n := NewNotifier(NotifierOptions{
		Mode:    ModeProd,
		Targets: []PingTarget{{Engine: "google", URL: srv.URL + "/?sitemap="}},
		Timeout: 50 * time.Millisecond,
		Logger:  log,
	})
	n.Notify("https://example.com/sitemap.xml")
	n.Close()

	assert.Equal(t, 1, sink.count(slog.LevelWarn, "search engine ping failed"))
}

func TestNotifierSkipsOutsideProd(t *testing.T) {
	srv, rec := newPingServer(t, nil)
	log, sink := newRecordingLogger()

	for _, mode := range []string{ModeDev, ModeTest} {
		n := NewNotifier(NotifierOptions{
			Mode:    mode,
			Targets: []PingTarget{{Engine: "google", URL: srv.URL + "/google?sitemap="}},
			Logger:  log,
		})
		assert.Zero(t, n.Notify("https://example.com/sitemap.xml"))
		n.Close()
	}

	assert.Empty(t, rec.get("/google"))
	assert.Equal(t, 2, sink.count(slog.LevelInfo, "not running in prod mode"))
}

func TestNotifierWithoutTargets(t *testing.T) {
	n := NewNotifier(NotifierOptions{Mode: ModeProd})
	assert.Zero(t, n.Notify("https://example.com/sitemap.xml"))
	n.Close()
	n.Close()
}

func TestNotifierAfterClose(t *testing.T) {
	srv, rec := newPingServer(t, nil)
	n := NewNotifier(NotifierOptions{
		Mode:    ModeProd,
		Targets: []PingTarget{{Engine: "google", URL: srv.URL + "/google?sitemap="}},
	})
	n.Close()

	assert.Zero(t, n.Notify("https://example.com/sitemap.xml"))
	require.Empty(t, rec.get("/google"))
}
