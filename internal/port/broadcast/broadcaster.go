// Package broadcast defines the port for pushing live feed events to connected clients.
package broadcast

import "context"

// Live feed event types.
const (
	EventActivity    = "activity.created"
	EventTaskUpdated = "task.updated"
	EventMessage     = "message.created"
	EventDocument    = "document.created"
)

// Broadcaster sends events to the clients of the tenant carried in ctx.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
