package sitemap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// PingTarget is a search engine endpoint notified of sitemap updates. The
// escaped sitemap URL is appended to URL.
type PingTarget struct {
	Engine string
	URL    string
}

type NotifierOptions struct {
	Mode      string
	Targets   []PingTarget
	Timeout   time.Duration
	Workers   int
	QueueSize int
	Client    *http.Client
	Logger    *slog.Logger
}

type pingTask struct {
	target      PingTarget
	documentURL string
}

type pingResult struct {
	engine string
	err    error
}

// Notifier pings search engines on a bounded pool of background workers.
// Failures are only logged; they never reach the caller of Notify.
type Notifier struct {
	mode    string
	targets []PingTarget
	timeout time.Duration
	client  *http.Client
	log     *slog.Logger

	mu      sync.Mutex
	closed  bool
	queue   chan pingTask
	results chan pingResult

	workers sync.WaitGroup
	logDone chan struct{}
}

func NewNotifier(opts NotifierOptions) *Notifier {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	n := &Notifier{
		mode:    opts.Mode,
		targets: opts.Targets,
		timeout: opts.Timeout,
		client:  opts.Client,
		log:     opts.Logger,
		queue:   make(chan pingTask, opts.QueueSize),
		results: make(chan pingResult, opts.QueueSize),
		logDone: make(chan struct{}),
	}
	for range opts.Workers {
		n.workers.Add(1)
		go n.worker()
	}
	go n.logLoop()
	return n
}

// PingTargets returns the targets enabled by cfg.
func PingTargets(cfg Config) []PingTarget {
	var out []PingTarget
	if cfg.Ping.Google {
		out = append(out, PingTarget{Engine: "google", URL: cfg.Ping.GoogleURL})
	}
	if cfg.Ping.Bing {
		out = append(out, PingTarget{Engine: "bing", URL: cfg.Ping.BingURL})
	}
	return out
}

// Notify submits one ping per target and returns the number submitted. It
// never blocks: tasks that do not fit the queue are dropped.
func (n *Notifier) Notify(documentURL string) int {
	if len(n.targets) == 0 {
		n.log.Debug("no search engine pings enabled")
		return 0
	}
	if n.mode != ModeProd {
		n.log.Info("not running in prod mode, skipping search engine pings", "mode", n.mode)
		return 0
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return 0
	}
	submitted := 0
	for _, t := range n.targets {
		select {
		case n.queue <- pingTask{target: t, documentURL: documentURL}:
			submitted++
		default:
			pingsTotal.WithLabelValues(t.Engine, "dropped").Inc()
			n.log.Warn("ping queue full, dropping notification", "engine", t.Engine)
		}
	}
	return submitted
}

// Close stops accepting pings and waits for queued ones to finish.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	n.workers.Wait()
	close(n.results)
	<-n.logDone
}

func (n *Notifier) worker() {
	defer n.workers.Done()
	for task := range n.queue {
		err := n.ping(task)
		n.results <- pingResult{engine: task.target.Engine, err: err}
	}
}

func (n *Notifier) ping(task pingTask) error {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	pingURL := task.target.URL + url.QueryEscape(task.documentURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL, nil)
	if err != nil {
		return err
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (n *Notifier) logLoop() {
	defer close(n.logDone)
	for res := range n.results {
		if res.err != nil {
			pingsTotal.WithLabelValues(res.engine, "error").Inc()
			n.log.Warn("search engine ping failed", "engine", res.engine, "err", res.err)
			continue
		}
		pingsTotal.WithLabelValues(res.engine, "ok").Inc()
		n.log.Info("search engine notified of sitemap update", "engine", res.engine)
	}
}
