package sitemap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ModeDev, cfg.Server.Mode)
	assert.Equal(t, "/sitemap.xml", cfg.Sitemap.Route)
	assert.Empty(t, cfg.Sitemap.Prefix)
	assert.Equal(t, 12*time.Hour, cfg.Expires())
	assert.Equal(t, SimpleResolverName, cfg.Sitemap.RouteDetailsResolver)
	assert.False(t, cfg.Sitemap.SuppressStaticMultiPageWarning)
	assert.True(t, cfg.ServeStaleOnError())
	assert.Equal(t, StoreMemory, cfg.Cache.Store)
	assert.False(t, cfg.Cache.SingleFlight)
	assert.False(t, cfg.Ping.Google)
	assert.False(t, cfg.Ping.Bing)
	assert.Equal(t, 10*time.Second, cfg.Ping.timeoutDur)
	assert.Empty(t, PingTargets(cfg))
	assert.Empty(t, cfg.RouteTable())
}

const fullConfig = `
server:
  port: 9000
  mode: prod
sitemap:
  route: /maps/sitemap.xml
  prefix: https://example.com/
  expires: 30m
  routeDetailsResolver: startup
  suppressStaticMultiPageWarning: true
  serveStaleOnError: false
  maxSize: 10mb
cache:
  store: leveldb
  path: /tmp/sitemapd
  singleFlight: true
ping:
  google: true
  bing: true
  timeout: 3s
providers:
  users:
    values:
      - {id: "1"}
      - {id: "2"}
    priority: "0.6"
    changeFrequency: weekly
routes:
  - uri: /about
    controller: pages.About
    sitemap:
      priority: 0.8
      changeFrequency: monthly
  - uri: /news
    sitemap:
      priority: dynamic
      changeFrequency: dynamic
      path: /latest
  - uri: /user/{id}
    controller: users.Show
    sitemap:
      multiPageProvider: users
      managed: true
  - method: POST
    uri: /login
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(fullConfig))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, ModeProd, cfg.Server.Mode)
	assert.Equal(t, "https://example.com", cfg.Sitemap.Prefix)
	assert.Equal(t, 30*time.Minute, cfg.Expires())
	assert.False(t, cfg.ServeStaleOnError())
	assert.EqualValues(t, 10*1024*1024, cfg.Sitemap.maxBytes)
	assert.Equal(t, StoreLevelDB, cfg.Cache.Store)
	assert.Equal(t, 3*time.Second, cfg.Ping.timeoutDur)
	assert.Equal(t, []PingTarget{
		{Engine: "google", URL: defaultGooglePingURL},
		{Engine: "bing", URL: defaultBingPingURL},
	}, PingTargets(cfg))

	users := cfg.Providers["users"]
	assert.Equal(t, 0.6, users.priority)
	assert.Equal(t, Weekly, users.changeFreq)

	routes := cfg.RouteTable()
	require.Len(t, routes, 4)

	assert.Equal(t, Route{
		Method:       "GET",
		URI:          "/about",
		ControllerID: "pages.About",
		Sitemap:      &Metadata{Priority: 0.8, ChangeFrequency: Monthly},
	}, routes[0])
	assert.Equal(t, &Metadata{Path: "/latest", Priority: PriorityDynamic, ChangeFrequency: ChangeFreqDynamic}, routes[1].Sitemap)
	assert.Equal(t, &Metadata{
		Priority:          DefaultPriority,
		ChangeFrequency:   DefaultChangeFrequency,
		MultiPageProvider: "users",
		Managed:           true,
	}, routes[2].Sitemap)
	assert.Equal(t, "POST", routes[3].Method)
	assert.Nil(t, routes[3].Sitemap)
}

func TestParseConfigReportsAllErrors(t *testing.T) {
	_, err := ParseConfig([]byte(`
server: {mode: staging}
sitemap: {expires: soon, route: sitemap.xml}
cache: {store: redis}
routes:
  - uri: /a
    sitemap: {priority: "1.5", changeFrequency: fortnightly}
  - uri: relative
`))
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 6)
	assert.ErrorContains(t, err, "server.mode")
	assert.ErrorContains(t, err, "sitemap.expires")
	assert.ErrorContains(t, err, "sitemap.route")
	assert.ErrorContains(t, err, "cache.store")
	assert.ErrorContains(t, err, "routes[0]")
	assert.ErrorContains(t, err, "routes[1]")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitemapd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sitemap: {expires: 1h}\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Expires())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseExpires(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"12h":     12 * time.Hour,
		"90s":     90 * time.Second,
		"1d":      24 * time.Hour,
		"1.5d":    36 * time.Hour,
		"30mn":    30 * time.Minute,
		"1d12h":   36 * time.Hour,
		"1h 30mn": 90 * time.Minute,
		"250ms":   250 * time.Millisecond,
	} {
		got, err := parseExpires(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "soon", "1x", "d", "mn"} {
		_, err := parseExpires(in)
		assert.Error(t, err, in)
	}

	cfg, err := ParseConfig([]byte("sitemap: {expires: 2d}\n"))
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, cfg.Expires())
}

func TestParseBytes(t *testing.T) {
	for in, want := range map[string]int64{
		"512":   512,
		"1kb":   1024,
		"2 MB":  2 * 1024 * 1024,
		"1.5g":  int64(1.5 * 1024 * 1024 * 1024),
		"50mb":  50 * 1024 * 1024,
		"100 b": 100,
	} {
		got, err := parseBytes(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "b", "-1k", "lots", "nan", "k", "9999999999g", "1e30", "inf"} {
		_, err := parseBytes(in)
		assert.Error(t, err, in)
	}
}
