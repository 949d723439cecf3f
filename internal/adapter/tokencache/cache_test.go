package tokencache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/missioncontrol/internal/domain/apitoken"
)

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e fakeEntry) Value() []byte { return e.value }

type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string][]byte)} }

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{value: v}, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return 1, nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeKV) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func newTestCache(t *testing.T, l2 kvStore) *Cache {
	t.Helper()
	c, err := New(1, l2, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCache_SetWritesBothLevels(t *testing.T) {
	kv := newFakeKV()
	c := newTestCache(t, kv)
	ctx := context.Background()

	c.Set(ctx, "h1", &apitoken.Token{ID: "t1", TenantID: "ten", Prefix: "abcd1234"})
	c.l1.Wait()

	got, ok := c.Get(ctx, "h1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.TenantID != "ten" || got.ID != "t1" {
		t.Errorf("unexpected token %+v", got)
	}
	if !kv.has("h1") {
		t.Error("expected L2 entry")
	}
}

func TestCache_L2HitBackfillsL1(t *testing.T) {
	kv := newFakeKV()
	kv.data["h2"] = []byte(`{"id":"t2","tenant_id":"ten2","name":"ci","prefix":"deadbeef"}`)
	c := newTestCache(t, kv)
	ctx := context.Background()

	got, ok := c.Get(ctx, "h2")
	if !ok {
		t.Fatal("expected L2 hit")
	}
	if got.TokenHash != "h2" || got.TenantID != "ten2" {
		t.Errorf("unexpected token %+v", got)
	}
	c.l1.Wait()
	if _, ok := c.l1.Get("h2"); !ok {
		t.Error("expected L1 backfill")
	}
}

func TestCache_DeleteBothLevels(t *testing.T) {
	kv := newFakeKV()
	c := newTestCache(t, kv)
	ctx := context.Background()

	c.Set(ctx, "h3", &apitoken.Token{ID: "t3"})
	c.l1.Wait()
	c.Delete(ctx, "h3")

	if _, ok := c.Get(ctx, "h3"); ok {
		t.Error("expected miss after delete")
	}
	if kv.has("h3") {
		t.Error("expected L2 entry removed")
	}
}

func TestCache_CorruptL2IsMiss(t *testing.T) {
	kv := newFakeKV()
	kv.data["bad"] = []byte("{not json")
	c := newTestCache(t, kv)

	if _, ok := c.Get(context.Background(), "bad"); ok {
		t.Error("corrupt entry should be a miss")
	}
}

func TestCache_WithoutL2(t *testing.T) {
	c := newTestCache(t, nil)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "nope"); ok {
		t.Fatal("expected miss")
	}
	c.Set(ctx, "h4", &apitoken.Token{ID: "t4"})
	c.l1.Wait()
	if _, ok := c.Get(ctx, "h4"); !ok {
		t.Error("expected L1 hit")
	}
	c.Delete(ctx, "h4")
}
