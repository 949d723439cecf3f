package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/missioncontrol/internal/middleware"
)

// BroadcastEvent implements broadcast.Broadcaster: it marshals payload and
// sends it to the tenant carried in ctx.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	tenantID := middleware.TenantIDFromContext(ctx)
	if tenantID == "" {
		slog.WarnContext(ctx, "ws event without tenant dropped", "type", eventType)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.BroadcastToTenant(ctx, tenantID, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
