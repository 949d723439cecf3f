package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// recordingHandler collects slog.Records for test assertions.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
	delay   time.Duration
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func (h *recordingHandler) attr(i int, key string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var v string
	h.records[i].Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			v = a.Value.String()
			return false
		}
		return true
	})
	return v
}

func TestAsyncHandler_ConcurrentWrites(t *testing.T) {
	const goroutines = 50
	const perGoroutine = 100
	total := goroutines * perGoroutine

	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, total, 4)

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				rec := slog.NewRecord(time.Now(), slog.LevelInfo, "concurrent", 0)
				_ = ah.Handle(context.Background(), rec)
			}
		}()
	}
	wg.Wait()
	ah.Close()

	if got := inner.count(); got != total {
		t.Fatalf("expected %d records, got %d", total, got)
	}
}

func TestAsyncHandler_QueueFullDrops(t *testing.T) {
	inner := &recordingHandler{delay: 10 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	for range 50 {
		rec := slog.NewRecord(time.Now(), slog.LevelInfo, "flood", 0)
		_ = ah.Handle(context.Background(), rec)
	}
	ah.Close()

	if ah.DroppedCount() == 0 {
		t.Fatal("expected some records to be dropped, got 0")
	}
	if got := int64(inner.count()) + ah.DroppedCount(); got != 50 {
		t.Errorf("written + dropped = %d, want 50", got)
	}
}

func TestAsyncHandler_CarriesContextAttrs(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 10, 1)

	ctx := WithRequestID(context.Background(), "req-7")
	_ = ah.Handle(ctx, slog.NewRecord(time.Now(), slog.LevelInfo, "ctx", 0))
	ah.Close()

	if got := inner.attr(0, "request_id"); got != "req-7" {
		t.Errorf("request_id = %q, want req-7", got)
	}
}

func TestAsyncHandler_DerivedShareQueue(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 100, 1)
	child := ah.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("g")

	_ = ah.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "parent", 0))
	_ = child.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "child", 0))

	ah.Close()
	ah.Close()

	if got := inner.count(); got != 2 {
		t.Fatalf("expected 2 records after close, got %d", got)
	}
}
