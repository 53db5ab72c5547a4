package pipeline

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Listener receives pipeline events. Listeners run on the emitting
// goroutine and should return quickly.
type Listener func(Event)

// EventEmitter fans pipeline events out to a buffered channel and to
// registered listeners. Emission never blocks the scheduler for long:
// a full channel drops the event after a short grace period.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64

	mu        sync.RWMutex
	listeners []Listener
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Subscribe registers a listener for all subsequent events.
func (e *EventEmitter) Subscribe(fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Emit delivers an event to listeners and the events channel.
// If the channel is full, it tries with a timeout before dropping the event.
func (e *EventEmitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	e.mu.RLock()
	listeners := e.listeners
	e.mu.RUnlock()
	for _, fn := range listeners {
		e.notify(fn, event)
	}

	// Try immediate send first
	select {
	case e.events <- event:
		return
	default:
		// Channel full, try with timeout
	}

	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[pipeline] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// notify invokes a single listener, containing any panic so one bad
// subscriber cannot take down the run.
func (e *EventEmitter) notify(fn Listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[pipeline] listener panic on event %s: %v", event.Type, r)
		}
	}()
	fn(event)
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel.
// This should be called once the pipeline has stopped emitting.
func (e *EventEmitter) Close() {
	close(e.events)
}
