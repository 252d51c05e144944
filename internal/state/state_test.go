package state

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func TestHistory(t *testing.T) {
	var saved []map[string]int
	h := NewHistory(nil, func(m map[string]int) error {
		saved = append(saved, m)
		return nil
	})

	if pos := h.GetPosition("moby"); pos != 0 {
		t.Errorf("Expected 0 for unknown title, got %d", pos)
	}

	if err := h.SetPosition("moby", 42); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}
	if pos := h.GetPosition("moby"); pos != 42 {
		t.Errorf("Expected 42, got %d", pos)
	}

	if err := h.Clear("moby"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if pos := h.GetPosition("moby"); pos != 0 {
		t.Errorf("Expected 0 after clear, got %d", pos)
	}

	want := []map[string]int{{"moby": 42}, {}}
	if !reflect.DeepEqual(saved, want) {
		t.Errorf("persisted snapshots = %v, want %v", saved, want)
	}
}

func TestHistorySeedAndClamp(t *testing.T) {
	h := NewHistory(map[string]int{"a": 3, "b": -7}, nil)

	tests := []struct {
		title string
		want  int
	}{
		{"a", 3},
		{"b", 0},
		{"missing", 0},
	}
	for _, tt := range tests {
		if got := h.GetPosition(tt.title); got != tt.want {
			t.Errorf("GetPosition(%q) = %d, want %d", tt.title, got, tt.want)
		}
	}

	h.SetPosition("c", -1)
	if got := h.GetPosition("c"); got != 0 {
		t.Errorf("negative index stored as %d", got)
	}
}

func TestHistorySnapshotIsCopy(t *testing.T) {
	h := NewHistory(map[string]int{"a": 1}, nil)
	snap := h.Snapshot()
	snap["a"] = 99
	if got := h.GetPosition("a"); got != 1 {
		t.Errorf("Snapshot shares storage: GetPosition = %d", got)
	}
}

func TestHistoryPersistError(t *testing.T) {
	boom := errors.New("read-only")
	h := NewHistory(nil, func(map[string]int) error { return boom })

	if err := h.SetPosition("a", 5); !errors.Is(err, boom) {
		t.Fatalf("SetPosition err = %v, want %v", err, boom)
	}
	// The in-memory value is kept even if it could not be written.
	if got := h.GetPosition("a"); got != 5 {
		t.Errorf("GetPosition = %d, want 5", got)
	}
}

func TestHistoryConcurrent(t *testing.T) {
	h := NewHistory(nil, func(map[string]int) error { return nil })
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.SetPosition("doc", i)
			h.GetPosition("doc")
		}(i)
	}
	wg.Wait()
	if got := h.GetPosition("doc"); got < 0 || got >= 20 {
		t.Errorf("GetPosition = %d", got)
	}
}
