package agent

import (
	"errors"
	"testing"

	"github.com/Strob0t/missioncontrol/internal/domain"
)

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr bool
	}{
		{"minimal", CreateRequest{Name: "Ada", Role: "Reviewer"}, false},
		{"missing name", CreateRequest{Role: "Reviewer"}, true},
		{"missing role", CreateRequest{Name: "Ada"}, true},
		{"bad level", CreateRequest{Name: "Ada", Role: "R", Level: "CEO"}, true},
		{"bad status", CreateRequest{Name: "Ada", Role: "R", Status: "asleep"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateRequestDefaults(t *testing.T) {
	r := CreateRequest{Name: "Ada", Role: "Reviewer"}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if r.Level != LevelSpecialist || r.Status != StatusIdle {
		t.Errorf("defaults = %s/%s, want SPC/idle", r.Level, r.Status)
	}
}

func TestSystemSpecRequest(t *testing.T) {
	r := SystemSpec{Name: "OpenClaw", Role: "AI Assistant", Avatar: "🤖"}.Request()
	if r.Status != StatusActive {
		t.Errorf("system agent status = %s, want active", r.Status)
	}
	if r.Level != LevelSpecialist {
		t.Errorf("system agent level = %s, want SPC", r.Level)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("system agent request invalid: %v", err)
	}
}
