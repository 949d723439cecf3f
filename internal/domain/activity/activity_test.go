package activity

import (
	"slices"
	"testing"
)

func TestGroup(t *testing.T) {
	tests := []struct {
		name string
		want []Type
	}{
		{"", nil},
		{"all", nil},
		{"status", []Type{TypeStatusUpdate}},
		{"docs", []Type{TypeDocumentCreated}},
		{"comments", []Type{TypeMessage, TypeCommentary}},
		{"task_update", []Type{TypeTaskUpdate}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Group(tt.name); !slices.Equal(got, tt.want) {
				t.Errorf("Group(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if !slices.Contains(Group("tasks"), TypeStatusUpdate) {
		t.Error("tasks group should include status updates")
	}
}

func TestEffectiveLimit(t *testing.T) {
	for _, tc := range []struct{ in, want int }{{0, 50}, {-1, 50}, {10, 10}, {500, 50}} {
		if got := (Filter{Limit: tc.in}).EffectiveLimit(); got != tc.want {
			t.Errorf("EffectiveLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
