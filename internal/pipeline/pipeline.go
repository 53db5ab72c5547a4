package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/autonoma/internal/state"
)

// State is the pipeline's lifecycle state.
type State string

const (
	StateIdle      State = "IDLE"
	StatePlanning  State = "PLANNING"
	StateExecuting State = "EXECUTING"
	StateReviewing State = "REVIEWING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
)

// IsTerminal reports whether the pipeline can leave this state.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Config holds pipeline tuning knobs.
type Config struct {
	// MaxWorkers bounds concurrent work item execution.
	MaxWorkers int
	// MaxRetries is the attempt count after which an item escalates to BLOCKED.
	MaxRetries int
	// PollInterval is how long the scheduler sleeps when nothing can move.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 5
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 50 * time.Millisecond
	}
	return c
}

// Pipeline drives a delivery run end to end: plan, decompose, execute,
// review, merge. All durable state lives in the Store so an interrupted
// run can be resumed after a recovery sweep.
type Pipeline struct {
	store      state.Store
	planner    Planner
	decomposer Decomposer
	executor   Executor
	reviewer   Reviewer
	cfg        Config

	pool      *ExecutorPool
	pauseCtrl *PauseController
	emitter   *EventEmitter

	mu      sync.RWMutex
	current State
	started time.Time
}

// New creates a Pipeline over the given store and collaborators.
func New(store state.Store, planner Planner, decomposer Decomposer, executor Executor, reviewer Reviewer, cfg Config) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		store:      store,
		planner:    planner,
		decomposer: decomposer,
		executor:   executor,
		reviewer:   reviewer,
		cfg:        cfg,
		pool:       NewExecutorPool(cfg.MaxWorkers, "implementer", store),
		pauseCtrl:  NewPauseController(),
		emitter:    NewEventEmitter(100),
	}
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == "" {
		return StateIdle
	}
	return p.current
}

// setState transitions the lifecycle state. Terminal states are final.
func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current.IsTerminal() {
		return
	}
	p.current = s
}

// Events returns the pipeline's event channel.
func (p *Pipeline) Events() <-chan Event {
	return p.emitter.Events()
}

// Subscribe registers a listener for pipeline events.
func (p *Pipeline) Subscribe(fn Listener) {
	p.emitter.Subscribe(fn)
}

// Pause stops admission of new work. In-flight items finish normally.
func (p *Pipeline) Pause() {
	if p.pauseCtrl.IsPaused() {
		return
	}
	p.pauseCtrl.Pause()
	p.emitter.Emit(Event{Type: EventPipelinePaused})
}

// Resume re-enables admission after a pause.
func (p *Pipeline) Resume() {
	if !p.pauseCtrl.IsPaused() {
		return
	}
	p.pauseCtrl.Resume()
	p.emitter.Emit(Event{Type: EventPipelineResumed})
}

// IsPaused reports whether admission is paused.
func (p *Pipeline) IsPaused() bool {
	return p.pauseCtrl.IsPaused()
}

// Stop halts admission permanently. Run returns once in-flight work drains.
func (p *Pipeline) Stop() {
	p.pauseCtrl.Stop()
}

// Close closes the event channel. Call only after Run has returned and
// no more Pause or Resume calls can happen.
func (p *Pipeline) Close() {
	p.emitter.Close()
}

// Run executes the full delivery pipeline for the given requirements.
// It returns the final report on success; on failure the pipeline moves
// to FAILED and the error describes the first fatal condition.
func (p *Pipeline) Run(ctx context.Context, requirements string) (*Report, error) {
	p.mu.Lock()
	if p.current != "" && p.current != StateIdle {
		p.mu.Unlock()
		return nil, fmt.Errorf("pipeline already ran (state %s)", p.current)
	}
	p.current = StatePlanning
	p.started = time.Now()
	p.mu.Unlock()

	p.emitter.Emit(Event{Type: EventPipelineStarted, Message: requirements})
	p.emitter.Emit(Event{Type: EventPlanningStarted})

	milestones, err := p.loadOrPlan(ctx, requirements)
	if err != nil {
		return nil, p.fail(err)
	}
	p.emitter.Emit(Event{
		Type:    EventPlanningCompleted,
		Message: fmt.Sprintf("%d milestones", len(milestones)),
	})

	p.setState(StateExecuting)

	completed, failed, err := p.seedFromStore()
	if err != nil {
		return nil, p.fail(err)
	}

	for _, m := range milestones {
		if m.Status == state.ItemMerged {
			log.Printf("[pipeline] milestone %s already merged, skipping", m.ID)
			continue
		}
		p.emitter.Emit(Event{Type: EventMilestoneStarted, MilestoneID: m.ID, Message: m.Name})

		items, err := p.ensureItems(ctx, &m)
		if err != nil {
			return nil, p.fail(err)
		}
		if err := p.runMilestone(ctx, m, items, completed, failed); err != nil {
			return nil, p.fail(err)
		}

		// The milestone is done once its loop drains, blocked items included.
		if err := p.store.SetMilestoneStatus(m.ID, state.ItemMerged); err != nil {
			return nil, p.fail(err)
		}
		p.emitter.Emit(Event{Type: EventMilestoneMerged, MilestoneID: m.ID, Message: m.Name})
	}

	if err := p.pool.Shutdown(); err != nil {
		return nil, p.fail(err)
	}

	p.setState(StateCompleted)
	report, err := p.buildReport(completed, failed)
	if err != nil {
		return nil, p.fail(err)
	}
	p.emitter.Emit(Event{Type: EventPipelineCompleted, Message: report.Status})
	return report, nil
}

// fail moves the pipeline to FAILED and tears down the pool.
func (p *Pipeline) fail(cause error) error {
	if err := p.pool.Shutdown(); err != nil {
		log.Printf("[pipeline] pool shutdown during failure: %v", err)
	}
	p.setState(StateFailed)
	p.emitter.Emit(Event{Type: EventPipelineFailed, Err: cause, Message: cause.Error()})
	if err := p.store.AppendLog("", "ERROR", cause.Error()); err != nil {
		log.Printf("[pipeline] record failure: %v", err)
	}
	return cause
}

// loadOrPlan returns the run's milestones: persisted ones when resuming,
// otherwise a fresh plan from the Planner. An invalid or empty plan fails
// the run before any work starts.
func (p *Pipeline) loadOrPlan(ctx context.Context, requirements string) ([]state.Milestone, error) {
	existing, err := p.store.ListMilestones()
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		log.Printf("[pipeline] resuming with %d persisted milestones", len(existing))
		return existing, nil
	}

	plan, err := p.planner.Plan(ctx, requirements)
	if err != nil {
		return nil, fmt.Errorf("plan requirements: %w", err)
	}
	if !plan.Valid {
		return nil, fmt.Errorf("plan rejected: %s", plan.Reason)
	}
	if len(plan.Milestones) == 0 {
		return nil, fmt.Errorf("plan produced no milestones")
	}

	var milestones []state.Milestone
	for i, mp := range plan.Milestones {
		phase := mp.Phase
		if phase <= 0 {
			phase = i + 1
		}
		m := state.Milestone{
			ID:             "ms-" + uuid.New().String()[:8],
			Name:           mp.Name,
			Description:    mp.Description,
			Phase:          phase,
			EstimatedUsage: mp.EstimatedUsage,
		}
		if err := p.store.CreateMilestone(&m); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, nil
}

// seedFromStore rebuilds the completed and failed sets from persisted
// terminal items so a resumed run does not redo finished work.
func (p *Pipeline) seedFromStore() (completed, failed map[string]bool, err error) {
	completed = make(map[string]bool)
	failed = make(map[string]bool)

	items, err := p.store.ListWorkItems(nil)
	if err != nil {
		return nil, nil, err
	}
	for _, item := range items {
		switch item.Status {
		case state.ItemMerged:
			completed[item.ID] = true
		case state.ItemBlocked, state.ItemFailed:
			failed[item.ID] = true
		}
	}
	return completed, failed, nil
}

// ensureItems returns the milestone's work items, decomposing it first
// if no items were persisted yet.
func (p *Pipeline) ensureItems(ctx context.Context, m *state.Milestone) ([]state.WorkItem, error) {
	if len(m.ItemIDs) > 0 {
		return p.store.ListWorkItemsByIDs(m.ItemIDs)
	}

	specs, err := p.decomposer.Decompose(ctx, *m)
	if err != nil {
		return nil, fmt.Errorf("decompose milestone %s: %w", m.ID, err)
	}

	var items []state.WorkItem
	var ids []string
	for _, spec := range specs {
		id := spec.ID
		if id == "" {
			id = "item-" + uuid.New().String()[:8]
		}
		item := state.WorkItem{
			ID:           id,
			Description:  spec.Description,
			ParentID:     m.ID,
			Dependencies: spec.Dependencies,
			Metadata:     spec.Metadata,
		}
		if err := p.store.CreateWorkItem(&item); err != nil {
			return nil, err
		}
		p.emitter.Emit(Event{Type: EventItemQueued, ItemID: id, MilestoneID: m.ID})
		items = append(items, item)
		ids = append(ids, id)
	}

	if err := p.store.SetMilestoneItems(m.ID, ids); err != nil {
		return nil, err
	}
	m.ItemIDs = ids
	return items, nil
}
