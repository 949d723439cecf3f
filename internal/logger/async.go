package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops a log handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// asyncState is shared by every handler derived via WithAttrs/WithGroup.
type asyncState struct {
	queue   chan asyncRecord
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Int64
}

type asyncRecord struct {
	h   slog.Handler
	rec slog.Record
}

// AsyncHandler hands records to a fixed worker pool over a bounded queue.
// Records are dropped, not blocked on, when the queue is full.
type AsyncHandler struct {
	inner slog.Handler
	state *asyncState
}

// NewAsyncHandler creates an AsyncHandler with the given queue capacity and worker count.
func NewAsyncHandler(inner slog.Handler, queueSize, workers int) *AsyncHandler {
	st := &asyncState{queue: make(chan asyncRecord, queueSize)}
	for range workers {
		st.wg.Add(1)
		go st.drain()
	}
	return &AsyncHandler{inner: inner, state: st}
}

func (s *asyncState) drain() {
	defer s.wg.Done()
	for r := range s.queue {
		_ = r.h.Handle(context.Background(), r.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record. Context values are resolved on the worker with
// a background context, so context-derived attrs are attached here first.
func (h *AsyncHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if id := RequestID(ctx); id != "" {
		rec.AddAttrs(slog.String("request_id", id))
	}
	if id := RunID(ctx); id != "" {
		rec.AddAttrs(slog.String("run_id", id))
	}
	select {
	case h.state.queue <- asyncRecord{h: h.inner, rec: rec}:
	default:
		h.state.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler sharing the same queue with a derived inner handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), state: h.state}
}

// WithGroup returns a handler sharing the same queue with a derived inner handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), state: h.state}
}

// DroppedCount returns the number of records dropped because the queue was full.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.state.dropped.Load()
}

// Close drains queued records and stops the workers. Safe to call twice.
func (h *AsyncHandler) Close() {
	h.state.once.Do(func() {
		close(h.state.queue)
	})
	h.state.wg.Wait()
}
