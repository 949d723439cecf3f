package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/missioncontrol/internal/domain/runevent"
	"github.com/Strob0t/missioncontrol/internal/port/messagequeue"
)

// SubscribeRunEvents feeds runs.events messages into the processor. Payloads
// are schema-checked by the queue adapter before they reach the handler.
func SubscribeRunEvents(ctx context.Context, q messagequeue.Queue, p *EventProcessor) (cancel func(), err error) {
	return q.Subscribe(ctx, messagequeue.SubjectRunEvent, p.HandleMessage)
}

// HandleMessage decodes a queued run event and processes it. Returned errors
// cause redelivery, so only store failures are reported.
func (p *EventProcessor) HandleMessage(ctx context.Context, _ string, data []byte) error {
	var ev runevent.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode run event: %w", err)
	}
	return p.Process(ctx, &ev)
}
