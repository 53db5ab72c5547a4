package pipeline

import (
	"sync"
	"testing"
)

func TestEmitter_DeliversToChannel(t *testing.T) {
	e := NewEventEmitter(10)
	e.Emit(Event{Type: EventItemStarted, ItemID: "w1"})

	select {
	case got := <-e.Events():
		if got.Type != EventItemStarted || got.ItemID != "w1" {
			t.Errorf("got %+v", got)
		}
		if got.Timestamp.IsZero() {
			t.Error("timestamp not stamped")
		}
	default:
		t.Fatal("no event on channel")
	}
}

func TestEmitter_DeliversToListeners(t *testing.T) {
	e := NewEventEmitter(10)

	var mu sync.Mutex
	var seen []EventType
	e.Subscribe(func(ev Event) {
		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
	})

	e.Emit(Event{Type: EventItemStarted})
	e.Emit(Event{Type: EventItemMerged})

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != EventItemStarted || seen[1] != EventItemMerged {
		t.Errorf("seen = %v", seen)
	}
}

func TestEmitter_PanickingListenerIsIsolated(t *testing.T) {
	e := NewEventEmitter(10)

	e.Subscribe(func(ev Event) {
		panic("bad subscriber")
	})
	called := false
	e.Subscribe(func(ev Event) {
		called = true
	})

	// Must not panic, and later listeners still run.
	e.Emit(Event{Type: EventItemStarted})
	if !called {
		t.Error("second listener not called after first panicked")
	}
}

func TestEmitter_DropsWhenChannelFull(t *testing.T) {
	e := NewEventEmitter(1)

	e.Emit(Event{Type: EventItemStarted}) // fills the buffer
	e.Emit(Event{Type: EventItemMerged})  // times out and drops

	if e.DroppedCount() != 1 {
		t.Errorf("dropped = %d, want 1", e.DroppedCount())
	}
}
