package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/activity"
	"github.com/Strob0t/missioncontrol/internal/domain/document"
	"github.com/Strob0t/missioncontrol/internal/domain/message"
	"github.com/Strob0t/missioncontrol/internal/middleware"
	"github.com/Strob0t/missioncontrol/internal/port/broadcast"
)

func TestDocumentCreate(t *testing.T) {
	f := newBoardFixture(t)
	svc := NewDocumentService(f.store, f.bc)

	d, err := svc.Create(f.ctx, document.CreateRequest{
		Title:       "Findings",
		Content:     "# Findings",
		TaskID:      f.task.ID,
		CreatedByID: f.actor.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Type != document.TypeMarkdown {
		t.Errorf("type = %s, want markdown default", d.Type)
	}
	if f.bc.count(broadcast.EventDocument) != 1 {
		t.Error("expected document broadcast")
	}
	acts, _ := f.store.ListActivities(f.ctx, activity.Filter{Types: activity.Group("docs")})
	if len(acts) != 1 || acts[0].Message != `created document "Findings" for "Write report"` {
		t.Errorf("unexpected activities %+v", acts)
	}

	loose, err := svc.Create(f.ctx, document.CreateRequest{Title: "Scratch", Type: document.TypeNote, CreatedByID: f.actor.ID})
	if err != nil {
		t.Fatal(err)
	}
	if loose.TaskID != "" {
		t.Errorf("unexpected task %q", loose.TaskID)
	}
	byTask, err := svc.ListByTask(f.ctx, f.task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(byTask) != 1 || byTask[0].ID != d.ID {
		t.Errorf("unexpected task documents %+v", byTask)
	}
	notes, err := svc.List(f.ctx, document.Filter{Type: document.TypeNote})
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].ID != loose.ID {
		t.Errorf("unexpected notes %+v", notes)
	}
}

func TestDocumentCreateValidation(t *testing.T) {
	f := newBoardFixture(t)
	svc := NewDocumentService(f.store, f.bc)
	other := middleware.WithTenantID(context.Background(), otherTenant)
	foreignMsg, err := f.store.CreateMessage(other, message.CreateRequest{TaskID: "t", FromAgentID: "a", Content: "x"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		req     document.CreateRequest
		wantErr error
	}{
		{"missing title", document.CreateRequest{CreatedByID: f.actor.ID}, domain.ErrValidation},
		{"missing author", document.CreateRequest{Title: "x"}, domain.ErrValidation},
		{"unknown author", document.CreateRequest{Title: "x", CreatedByID: "nope"}, domain.ErrNotFound},
		{"unknown task", document.CreateRequest{Title: "x", CreatedByID: f.actor.ID, TaskID: "nope"}, domain.ErrNotFound},
		{"foreign message", document.CreateRequest{Title: "x", CreatedByID: f.actor.ID, MessageID: foreignMsg.ID}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(f.ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDocumentGetWithContext(t *testing.T) {
	f := newBoardFixture(t)
	svc := NewDocumentService(f.store, f.bc)
	m, err := f.store.CreateMessage(f.ctx, message.CreateRequest{TaskID: f.task.ID, FromAgentID: f.actor.ID, Content: "draft attached"})
	if err != nil {
		t.Fatal(err)
	}
	d, err := svc.Create(f.ctx, document.CreateRequest{Title: "Draft", TaskID: f.task.ID, CreatedByID: f.actor.ID, MessageID: m.ID})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetWithContext(f.ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Agent == nil || got.Agent.ID != f.actor.ID {
		t.Errorf("agent not resolved: %+v", got.Agent)
	}
	if got.Task == nil || got.Task.ID != f.task.ID {
		t.Errorf("task not resolved: %+v", got.Task)
	}
	if got.Message == nil || got.Message.ID != m.ID {
		t.Errorf("message not resolved: %+v", got.Message)
	}
	if len(got.Conversation) != 1 {
		t.Errorf("expected conversation of 1, got %d", len(got.Conversation))
	}

	if err := f.store.DeleteAgent(f.ctx, f.actor.ID); err != nil {
		t.Fatal(err)
	}
	got, err = svc.GetWithContext(f.ctx, d.ID)
	if err != nil {
		t.Fatalf("dangling author should not fail: %v", err)
	}
	if got.Agent != nil {
		t.Error("expected nil agent after deletion")
	}

	other := middleware.WithTenantID(context.Background(), otherTenant)
	if _, err := svc.GetWithContext(other, d.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for other tenant, got %v", err)
	}
}
