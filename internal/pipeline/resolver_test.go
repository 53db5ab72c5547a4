package pipeline

import (
	"testing"

	"github.com/ShayCichocki/autonoma/internal/state"
)

func TestReadyItems(t *testing.T) {
	items := []state.WorkItem{
		{ID: "a", Status: state.ItemPending},
		{ID: "b", Status: state.ItemPending, Dependencies: []string{"a"}},
		{ID: "c", Status: state.ItemPending, Dependencies: []string{"a", "b"}},
		{ID: "d", Status: state.ItemInProgress},
		{ID: "e", Status: state.ItemMerged},
	}

	tests := []struct {
		name      string
		completed map[string]bool
		want      []string
	}{
		{
			name:      "nothing completed",
			completed: map[string]bool{},
			want:      []string{"a"},
		},
		{
			name:      "first dependency met",
			completed: map[string]bool{"a": true},
			want:      []string{"a", "b"},
		},
		{
			name:      "all dependencies met",
			completed: map[string]bool{"a": true, "b": true},
			want:      []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readyItems(items, tt.completed)
			if len(got) != len(tt.want) {
				t.Fatalf("ready = %v, want %v", ids(got), tt.want)
			}
			for i, item := range got {
				if item.ID != tt.want[i] {
					t.Errorf("ready[%d] = %s, want %s", i, item.ID, tt.want[i])
				}
			}
		})
	}
}

func TestReadyItems_UnknownDependencyNeverReady(t *testing.T) {
	items := []state.WorkItem{
		{ID: "a", Status: state.ItemPending, Dependencies: []string{"ghost"}},
	}

	// No error, no readiness: the dangling reference simply never resolves.
	got := readyItems(items, map[string]bool{"a": true, "b": true})
	if len(got) != 0 {
		t.Errorf("ready = %v, want none", ids(got))
	}

	got = readyItems(items, map[string]bool{"ghost": true})
	if len(got) != 1 {
		t.Errorf("ready = %v, want [a]", ids(got))
	}
}

func ids(items []state.WorkItem) []string {
	var out []string
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
