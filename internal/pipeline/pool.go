package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/ShayCichocki/autonoma/internal/state"
)

// ErrPoolAtCapacity is returned by Spawn when all executor slots are taken.
// It is backpressure, not a failure: callers wait for a release and retry.
var ErrPoolAtCapacity = errors.New("executor pool at capacity")

// ExecutorHandle is an in-memory claim on a pool slot, bound to one work item.
type ExecutorHandle struct {
	ID     string
	ItemID string
	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the handle's context. It is cancelled when the handle
// is released or the pool shuts down.
func (h *ExecutorHandle) Context() context.Context {
	return h.ctx
}

// ExecutorPool bounds the number of work items executing at once.
// Slots are claimed by Spawn and reclaimed by Release; the pool also
// maintains the durable executor records behind each slot.
type ExecutorPool struct {
	capacity int
	kind     string
	store    state.ExecutorStore // nil disables persistence

	mu     sync.Mutex
	active map[string]*ExecutorHandle // keyed by work item ID
	closed bool
}

// NewExecutorPool creates a pool with the given capacity.
// A nil store is allowed; executor records are then skipped.
func NewExecutorPool(capacity int, kind string, store state.ExecutorStore) *ExecutorPool {
	if capacity < 1 {
		capacity = 1
	}
	return &ExecutorPool{
		capacity: capacity,
		kind:     kind,
		store:    store,
		active:   make(map[string]*ExecutorHandle),
	}
}

// Spawn claims a slot for the given work item. It fails fast with
// ErrPoolAtCapacity when no slot is free.
func (p *ExecutorPool) Spawn(ctx context.Context, itemID string) (*ExecutorHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("executor pool is shut down")
	}
	if _, ok := p.active[itemID]; ok {
		return nil, fmt.Errorf("item %s already has an executor", itemID)
	}
	if len(p.active) >= p.capacity {
		return nil, ErrPoolAtCapacity
	}

	handleCtx, cancel := context.WithCancel(ctx)
	h := &ExecutorHandle{
		ID:     "exec-" + uuid.New().String()[:8],
		ItemID: itemID,
		ctx:    handleCtx,
		cancel: cancel,
	}

	if p.store != nil {
		err := p.store.RegisterExecutor(&state.Executor{
			ID:          h.ID,
			Kind:        p.kind,
			Status:      state.ExecutorRunning,
			CurrentItem: itemID,
			PID:         os.Getpid(),
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("register executor: %w", err)
		}
	}

	p.active[itemID] = h
	return h, nil
}

// Release cancels the item's handle and reclaims its slot.
// The executor record is marked idle. Releasing an unknown item is a no-op.
func (p *ExecutorPool) Release(itemID string) error {
	p.mu.Lock()
	h, ok := p.active[itemID]
	if ok {
		delete(p.active, itemID)
	}
	p.mu.Unlock()

	if !ok {
		return nil
	}
	h.cancel()

	if p.store != nil {
		if err := p.store.SetExecutorStatus(h.ID, state.ExecutorIdle, ""); err != nil {
			return fmt.Errorf("idle executor %s: %w", h.ID, err)
		}
	}
	return nil
}

// Handle returns the active handle for a work item, if any.
func (p *ExecutorPool) Handle(itemID string) (*ExecutorHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.active[itemID]
	return h, ok
}

// ActiveCount returns the number of claimed slots.
func (p *ExecutorPool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// AvailableSlots returns the number of free slots.
func (p *ExecutorPool) AvailableSlots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity - len(p.active)
}

// Capacity returns the pool's fixed size.
func (p *ExecutorPool) Capacity() int {
	return p.capacity
}

// Shutdown cancels all active handles and marks their records terminated.
// The pool cannot be used afterwards.
func (p *ExecutorPool) Shutdown() error {
	p.mu.Lock()
	handles := make([]*ExecutorHandle, 0, len(p.active))
	for _, h := range p.active {
		handles = append(handles, h)
	}
	p.active = make(map[string]*ExecutorHandle)
	p.closed = true
	p.mu.Unlock()

	var firstErr error
	for _, h := range handles {
		h.cancel()
		if p.store != nil {
			if err := p.store.SetExecutorStatus(h.ID, state.ExecutorTerminated, ""); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("terminate executor %s: %w", h.ID, err)
			}
		}
	}
	return firstErr
}
