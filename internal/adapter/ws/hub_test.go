package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/missioncontrol/internal/middleware"
)

// dialTenant connects a feed client for tenantID through a test server.
func dialTenant(t *testing.T, hub *Hub, tenantID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWS(w, r.WithContext(middleware.WithTenantID(r.Context(), tenantID)))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func waitForConns(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connections, got %d", n, hub.ConnectionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubTenantScopedBroadcast(t *testing.T) {
	hub := NewHub()
	a := dialTenant(t, hub, "tenant-a")
	b := dialTenant(t, hub, "tenant-b")
	waitForConns(t, hub, 2)

	ctx := middleware.WithTenantID(context.Background(), "tenant-a")
	hub.BroadcastEvent(ctx, "activity.created", map[string]string{"message": "hello"})

	readCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := a.Read(readCtx)
	if err != nil {
		t.Fatalf("tenant-a read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "activity.created" || string(msg.Payload) != `{"message":"hello"}` {
		t.Errorf("unexpected message: %s", data)
	}

	shortCtx, cancelShort := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancelShort()
	if _, _, err := b.Read(shortCtx); err == nil {
		t.Error("tenant-b must not receive tenant-a events")
	}
}

func TestHubRejectsMissingTenant(t *testing.T) {
	hub := NewHub()
	rec := httptest.NewRecorder()
	hub.HandleWS(rec, httptest.NewRequest(http.MethodGet, "/ws", http.NoBody))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHubBroadcastWithoutTenantDropped(t *testing.T) {
	hub := NewHub()
	// No tenant in ctx: logged and dropped without panicking.
	hub.BroadcastEvent(context.Background(), "task.updated", struct{}{})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub()
	ctx := middleware.WithTenantID(context.Background(), "t")
	hub.BroadcastEvent(ctx, "bad", make(chan int))
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := NewHub()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.remove(&conn{cancel: cancel, tenantID: "test-tenant"})
	if hub.ConnectionCount() != 0 {
		t.Fatal("expected no connections")
	}
}
