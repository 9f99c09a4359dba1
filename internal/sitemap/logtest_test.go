package sitemap

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

type logSink struct {
	mu      sync.Mutex
	records []slog.Record
}

type recordingHandler struct {
	sink  *logSink
	attrs []slog.Attr
}

func newRecordingLogger() (*slog.Logger, *logSink) {
	sink := &logSink{}
	return slog.New(&recordingHandler{sink: sink}), sink
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	r = r.Clone()
	r.AddAttrs(h.attrs...)
	h.sink.mu.Lock()
	h.sink.records = append(h.sink.records, r)
	h.sink.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &recordingHandler{sink: h.sink, attrs: merged}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

// count returns the number of records at level whose message contains substr.
func (s *logSink) count(level slog.Level, substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.Level == level && strings.Contains(r.Message, substr) {
			n++
		}
	}
	return n
}

func (s *logSink) levelCount(level slog.Level) int {
	return s.count(level, "")
}
