package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/autonoma/internal/state"
)

// completion carries one finished execution attempt back to the scheduler.
type completion struct {
	itemID string
	handle *ExecutorHandle
	result *ExecutionResult
	err    error
}

// runMilestone schedules the milestone's items until every one of them is
// MERGED or BLOCKED. Items move between exactly three places: the pending
// map, the inFlight map, and the completed/failed sets; an item ID lives in
// one of them at a time.
//
// Items whose dependencies never complete stay pending forever and the loop
// only exits through context cancellation or Stop. That starvation is the
// documented behavior for dangling dependency references.
func (p *Pipeline) runMilestone(ctx context.Context, m state.Milestone, items []state.WorkItem, completed, failed map[string]bool) error {
	pending := make(map[string]state.WorkItem)
	for _, item := range items {
		if item.Status.IsTerminal() {
			continue // already counted by seedFromStore
		}
		if item.Status != state.ItemPending {
			// Transient state left by an unswept crash; make it runnable again.
			if err := p.store.SetWorkItemStatus(item.ID, state.ItemPending, ""); err != nil {
				return err
			}
			item.Status = state.ItemPending
			item.AssignedExecutor = ""
		}
		pending[item.ID] = item
	}

	completionCh := make(chan completion, p.cfg.MaxWorkers)
	inFlight := make(map[string]*ExecutorHandle)

	for len(pending) > 0 || len(inFlight) > 0 {
		stopErr := p.pauseCtrl.WaitIfPaused(ctx)
		if stopErr != nil && len(inFlight) == 0 {
			return stopErr
		}

		if stopErr == nil {
			candidates := make([]state.WorkItem, 0, len(pending))
			for _, item := range pending {
				candidates = append(candidates, item)
			}
			for _, item := range readyItems(candidates, completed) {
				handle, err := p.pool.Spawn(ctx, item.ID)
				if errors.Is(err, ErrPoolAtCapacity) {
					break
				}
				if err != nil {
					return err
				}

				if err := p.store.SetWorkItemStatus(item.ID, state.ItemInProgress, handle.ID); err != nil {
					return err
				}
				delete(pending, item.ID)
				inFlight[item.ID] = handle
				p.emitter.Emit(Event{Type: EventItemStarted, ItemID: item.ID, ExecutorID: handle.ID})

				go func(h *ExecutorHandle, item state.WorkItem) {
					res, err := p.executor.Execute(h.Context(), item)
					completionCh <- completion{itemID: item.ID, handle: h, result: res, err: err}
				}(handle, item)
			}
		}

		if len(inFlight) > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case c := <-completionCh:
				delete(inFlight, c.itemID)
				if err := p.handleCompletion(ctx, c, pending, completed, failed); err != nil {
					return err
				}
			}
		} else {
			// Nothing admitted and nothing running: unmet dependencies
			// or a pause. Yield and look again.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.PollInterval):
			}
		}
	}
	return nil
}

// handleCompletion settles one execution attempt: usage accounting, the
// review gate on success, and the retry/escalation path on failure.
func (p *Pipeline) handleCompletion(ctx context.Context, c completion, pending map[string]state.WorkItem, completed, failed map[string]bool) error {
	// Usage is charged to both sides of the ledger.
	if c.result != nil && c.result.ResourceUsed > 0 {
		if err := p.store.AddWorkItemUsage(c.itemID, c.result.ResourceUsed); err != nil {
			return err
		}
		if err := p.store.AddExecutorUsage(c.handle.ID, c.result.ResourceUsed); err != nil {
			return err
		}
	}

	if c.err != nil || !c.result.Success {
		reason := "execution failed"
		if c.err != nil {
			reason = c.err.Error()
		} else if c.result.Reason != "" {
			reason = c.result.Reason
		}
		if err := p.pool.Release(c.itemID); err != nil {
			return err
		}
		return p.handleItemFailure(c.itemID, c.handle.ID, reason, pending, failed)
	}

	// Success: the slot is held through review, the executor waits on the verdict.
	if err := p.store.SetWorkItemStatus(c.itemID, state.ItemReview, c.handle.ID); err != nil {
		return err
	}
	if err := p.store.SetExecutorStatus(c.handle.ID, state.ExecutorWaiting, c.itemID); err != nil {
		return err
	}
	p.setState(StateReviewing)
	p.emitter.Emit(Event{Type: EventReviewStarted, ItemID: c.itemID, ExecutorID: c.handle.ID})

	item, err := p.store.GetWorkItem(c.itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("item %s disappeared before review", c.itemID)
	}

	review, err := p.reviewer.Review(ctx, *item, c.result.Output)
	p.setState(StateExecuting)
	if err != nil {
		p.pool.Release(c.itemID)
		return fmt.Errorf("review item %s: %w", c.itemID, err)
	}
	if review.ResourceUsed > 0 {
		if err := p.store.AddExecutorUsage(c.handle.ID, review.ResourceUsed); err != nil {
			return err
		}
	}
	p.emitter.Emit(Event{Type: EventReviewCompleted, ItemID: c.itemID, Message: review.Feedback})

	if err := p.pool.Release(c.itemID); err != nil {
		return err
	}

	if !review.Approved {
		return p.handleItemFailure(c.itemID, c.handle.ID, "review rejected: "+review.Feedback, pending, failed)
	}

	if err := p.store.SetWorkItemStatus(c.itemID, state.ItemMerged, ""); err != nil {
		return err
	}
	completed[c.itemID] = true
	p.emitter.Emit(Event{Type: EventItemMerged, ItemID: c.itemID})
	return nil
}

// handleItemFailure applies the retry policy to a failed attempt.
// Under the retry limit the item goes back to pending; at the limit it
// escalates to BLOCKED and the run carries on without it.
func (p *Pipeline) handleItemFailure(itemID, executorID, reason string, pending map[string]state.WorkItem, failed map[string]bool) error {
	count, err := p.store.IncrementRetry(itemID)
	if err != nil {
		return err
	}
	logErr := p.store.AppendLogEntry(&state.LogEntry{
		ExecutorID: executorID,
		Level:      "WARN",
		Message:    fmt.Sprintf("item %s attempt %d failed: %s", itemID, count, reason),
		Metadata:   map[string]string{"item": itemID},
	})
	if logErr != nil {
		return logErr
	}

	if count >= p.cfg.MaxRetries {
		if err := p.store.SetWorkItemStatus(itemID, state.ItemBlocked, ""); err != nil {
			return err
		}
		failed[itemID] = true
		p.emitter.Emit(Event{
			Type:     EventEscalation,
			ItemID:   itemID,
			Message:  reason,
			Metadata: map[string]any{"attempts": count},
		})
		p.emitter.Emit(Event{Type: EventItemFailed, ItemID: itemID, Message: reason})
		return nil
	}

	if err := p.store.SetWorkItemStatus(itemID, state.ItemPending, ""); err != nil {
		return err
	}
	// The store is authoritative: re-read before re-admitting so the retry
	// sees the persisted retry count and any concurrent changes.
	fresh, err := p.store.GetWorkItem(itemID)
	if err != nil {
		return err
	}
	if fresh == nil {
		return fmt.Errorf("item %s disappeared during retry", itemID)
	}
	if !fresh.Status.IsTerminal() {
		pending[itemID] = *fresh
		p.emitter.Emit(Event{Type: EventItemQueued, ItemID: itemID, Message: fmt.Sprintf("retry %d", count)})
	}
	return nil
}
