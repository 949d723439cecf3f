package service

import (
	"context"
	"fmt"

	"github.com/Strob0t/missioncontrol/internal/domain/activity"
	"github.com/Strob0t/missioncontrol/internal/domain/message"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
	"github.com/Strob0t/missioncontrol/internal/port/broadcast"
	"github.com/Strob0t/missioncontrol/internal/port/database"
)

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastEvent(context.Context, string, any) {}

// feed appends messages and activities and pushes them to live clients.
type feed struct {
	store database.Store
	bc    broadcast.Broadcaster
}

func newFeed(store database.Store, bc broadcast.Broadcaster) feed {
	if bc == nil {
		bc = nopBroadcaster{}
	}
	return feed{store: store, bc: bc}
}

func (f feed) record(ctx context.Context, typ activity.Type, agentID, taskID, msg string) error {
	a, err := f.store.CreateActivity(ctx, activity.Activity{
		Type:         typ,
		AgentID:      agentID,
		TargetTaskID: taskID,
		Message:      msg,
	})
	if err != nil {
		return fmt.Errorf("record %s activity: %w", typ, err)
	}
	f.bc.BroadcastEvent(ctx, broadcast.EventActivity, a)
	return nil
}

func (f feed) post(ctx context.Context, req message.CreateRequest) (*message.Message, error) {
	m, err := f.store.CreateMessage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	f.bc.BroadcastEvent(ctx, broadcast.EventMessage, m)
	return m, nil
}

func (f feed) say(ctx context.Context, taskID, agentID, content string) error {
	_, err := f.post(ctx, message.CreateRequest{TaskID: taskID, FromAgentID: agentID, Content: content})
	return err
}

func (f feed) taskChanged(ctx context.Context, t *task.Task) {
	f.bc.BroadcastEvent(ctx, broadcast.EventTaskUpdated, t)
}
