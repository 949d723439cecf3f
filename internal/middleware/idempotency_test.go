package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return memEntry{value: v}, nil
}

func (m *memKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return uint64(len(m.data)), nil
}

func (m *memKV) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// memEntry only implements Value; other methods panic via the nil interface.
type memEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e memEntry) Value() []byte { return e.value }

func countingHandler(counter *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*counter++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, *counter)
	})
}

func doPost(h http.Handler, tenantID, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/dispatch", http.NoBody)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if tenantID != "" {
		req = req.WithContext(WithTenantID(req.Context(), tenantID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyNoHeader(t *testing.T) {
	counter := 0
	kv := newMemKV()
	h := Idempotency(kv)(countingHandler(&counter, http.StatusOK))

	doPost(h, "t1", "")
	doPost(h, "t1", "")

	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
	if kv.len() != 0 {
		t.Fatalf("expected nothing stored, got %d entries", kv.len())
	}
}

func TestIdempotencyReplay(t *testing.T) {
	counter := 0
	h := Idempotency(newMemKV())(countingHandler(&counter, http.StatusOK))

	first := doPost(h, "t1", "key-1")
	second := doPost(h, "t1", "key-1")

	if counter != 1 {
		t.Fatalf("expected handler called once, got %d", counter)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("replayed body = %q, want %q", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected Idempotent-Replayed header on replay")
	}
}

func TestIdempotencyScopedPerTenant(t *testing.T) {
	counter := 0
	h := Idempotency(newMemKV())(countingHandler(&counter, http.StatusOK))

	doPost(h, "t1", "shared")
	doPost(h, "t2", "shared")

	if counter != 2 {
		t.Fatalf("same key in two tenants should run twice, got %d", counter)
	}
}

func TestIdempotencyServerErrorNotStored(t *testing.T) {
	counter := 0
	kv := newMemKV()
	h := Idempotency(kv)(countingHandler(&counter, http.StatusInternalServerError))

	doPost(h, "t1", "key-5xx")
	doPost(h, "t1", "key-5xx")

	if counter != 2 {
		t.Fatalf("5xx responses must not be replayed, got %d calls", counter)
	}
}

func TestIdempotencyGETIgnored(t *testing.T) {
	counter := 0
	h := Idempotency(newMemKV())(countingHandler(&counter, http.StatusOK))

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", http.NoBody)
		req.Header.Set("Idempotency-Key", "key-get")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
}

func TestIdempotencyKeyFormat(t *testing.T) {
	k := idempotencyKey("", "abc def/..")
	if k[:2] != "_." {
		t.Errorf("missing tenant should map to _, got %q", k)
	}
	if len(k) != 2+64 {
		t.Errorf("unexpected key length %d", len(k))
	}
}
