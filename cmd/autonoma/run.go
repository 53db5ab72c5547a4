package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/autonoma/internal/agent"
	"github.com/ShayCichocki/autonoma/internal/config"
	"github.com/ShayCichocki/autonoma/internal/pipeline"
	"github.com/ShayCichocki/autonoma/internal/state"
)

var (
	runMaxWorkers int
	runBackend    string
	runModel      string
)

var runCmd = &cobra.Command{
	Use:   "run <requirements>",
	Short: "Run the delivery pipeline for a requirements description",
	Long: `Run the full delivery pipeline: plan milestones, decompose them into
work items, execute items in parallel, review results, and merge.

If the state database already holds milestones from an interrupted run,
planning is skipped and the run resumes: merged milestones and items are
not redone, and items left in transient states are repaired first.

Pause a running pipeline from another shell with 'autonoma pause';
admission of new items stops while in-flight work finishes. A single
interrupt (Ctrl-C) drains in-flight work before exiting, a second one
aborts immediately.

Backend selection (--backend):
  - cli: drive the claude CLI in one-shot mode (default)
  - api: call the Anthropic Messages API directly`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().IntVar(&runMaxWorkers, "max-workers", 0, "Maximum concurrent implementers (overrides config)")
	runCmd.Flags().StringVar(&runBackend, "backend", "", "Claude backend: cli or api (overrides config)")
	runCmd.Flags().StringVar(&runModel, "model", "", "Claude model (overrides config)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	requirements := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runMaxWorkers > 0 {
		cfg.Workers.Max = runMaxWorkers
	}
	if runBackend != "" {
		cfg.Claude.Backend = runBackend
	}
	if runModel != "" {
		cfg.Claude.Model = runModel
	}

	runner, err := buildRunner(cfg)
	if err != nil {
		return err
	}

	repoPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	dataDir := filepath.Join(repoPath, cfg.DataDir)

	db, err := state.Open(filepath.Join(dataDir, "state.db"))
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// Repair anything a previous process left behind before scheduling.
	recovery := state.NewRecoveryManager(db)
	interrupted, err := recovery.CheckForInterrupted()
	if err != nil {
		return fmt.Errorf("check for interrupted run: %w", err)
	}
	if interrupted != nil {
		fmt.Printf("Previous run was interrupted (%d items, %d executors in flight)\n",
			interrupted.InProgressItems, interrupted.RunningExecutors)
		repaired, err := recovery.CleanupStaleStates()
		if err != nil {
			return fmt.Errorf("clean up stale state: %w", err)
		}
		fmt.Printf("Repaired %d stale records, resuming\n\n", repaired)
	}

	implementer := agent.NewImplementer(runner)
	implementer.TaskTimeout = cfg.Timeouts.Task

	pipe := pipeline.New(db,
		agent.NewPlanner(runner),
		agent.NewDecomposer(runner),
		implementer,
		agent.NewReviewer(runner),
		pipeline.Config{
			MaxWorkers:   cfg.Workers.Max,
			MaxRetries:   cfg.Workers.MaxRetries,
			PollInterval: cfg.Workers.PollInterval,
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First interrupt drains in-flight work, the second aborts.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, draining in-flight work...")
		pipe.Stop()
		select {
		case <-sigCh:
		case <-time.After(cfg.Timeouts.Shutdown):
			fmt.Println("Shutdown timeout exceeded, aborting")
		}
		cancel()
	}()

	stopWatcher, err := watchPauseFile(dataDir, pipe)
	if err != nil {
		fmt.Printf("Warning: pause file watcher unavailable: %v\n", err)
		stopWatcher = func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		consumeEvents(pipe.Events())
	}()

	fmt.Printf("Starting pipeline: %s\n", requirements)
	fmt.Printf("  Backend: %s\n", cfg.Claude.Backend)
	fmt.Printf("  Max workers: %d\n\n", cfg.Workers.Max)

	report, runErr := pipe.Run(ctx, requirements)

	// Stop the watcher before closing the event channel so a late pause
	// marker cannot emit into a closed channel.
	stopWatcher()
	pipe.Close()
	<-done

	if runErr != nil {
		return fmt.Errorf("pipeline failed: %w", runErr)
	}
	printReport(report)
	return nil
}

// buildRunner selects the prompt backend from configuration.
func buildRunner(cfg *config.Config) (agent.PromptRunner, error) {
	switch cfg.Claude.Backend {
	case "", "cli":
		if err := CheckClaudeCLI(cfg.Claude.Path); err != nil {
			return nil, err
		}
		return agent.NewCLIRunner(cfg.Claude.Path, cfg.Claude.Model), nil
	case "api":
		if _, err := config.GetAPIKey(cfg); err != nil {
			return nil, fmt.Errorf("api backend selected but %w", err)
		}
		return agent.NewAPIRunner(cfg.Claude.Model), nil
	default:
		return nil, fmt.Errorf("unknown backend %q: must be cli or api", cfg.Claude.Backend)
	}
}

// watchPauseFile pauses and resumes the pipeline as the data directory's
// "paused" marker file appears and disappears. Returns a stop function.
func watchPauseFile(dataDir string, pipe *pipeline.Pipeline) (func(), error) {
	pausedPath := filepath.Join(dataDir, "paused")

	// Honor a marker that already exists at startup.
	if _, err := os.Stat(pausedPath); err == nil {
		pipe.Pause()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dataDir); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != pausedPath {
					continue
				}
				switch {
				case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
					pipe.Pause()
				case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
					pipe.Resume()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

// consumeEvents prints pipeline events until the channel closes.
func consumeEvents(events <-chan pipeline.Event) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	for e := range events {
		ts := e.Timestamp.Format("15:04:05")
		switch e.Type {
		case pipeline.EventPlanningStarted:
			cyan.Printf("[%s] planning...\n", ts)
		case pipeline.EventPlanningCompleted:
			cyan.Printf("[%s] plan ready: %s\n", ts, e.Message)
		case pipeline.EventMilestoneStarted:
			cyan.Printf("[%s] milestone %s: %s\n", ts, e.MilestoneID, e.Message)
		case pipeline.EventMilestoneMerged:
			green.Printf("[%s] milestone %s merged\n", ts, e.MilestoneID)
		case pipeline.EventItemStarted:
			fmt.Printf("[%s]   %s started (%s)\n", ts, e.ItemID, e.ExecutorID)
		case pipeline.EventItemMerged:
			green.Printf("[%s]   %s merged\n", ts, e.ItemID)
		case pipeline.EventItemFailed:
			red.Printf("[%s]   %s failed: %s\n", ts, e.ItemID, e.Message)
		case pipeline.EventEscalation:
			red.Printf("[%s]   %s escalated: %s\n", ts, e.ItemID, e.Message)
		case pipeline.EventReviewCompleted:
			fmt.Printf("[%s]   %s reviewed\n", ts, e.ItemID)
		case pipeline.EventPipelinePaused:
			yellow.Printf("[%s] paused\n", ts)
		case pipeline.EventPipelineResumed:
			yellow.Printf("[%s] resumed\n", ts)
		case pipeline.EventPipelineFailed:
			red.Printf("[%s] pipeline failed: %s\n", ts, e.Message)
		}
	}
}

// printReport renders the final run summary.
func printReport(r *pipeline.Report) {
	fmt.Println()
	if r.Status == pipeline.ReportCompleted {
		color.Green("Pipeline completed")
	} else {
		color.Yellow("Pipeline completed with failures")
	}
	fmt.Printf("  Merged items: %d\n", len(r.CompletedItems))
	if len(r.FailedItems) > 0 {
		fmt.Printf("  Failed items: %d (%s)\n", len(r.FailedItems), strings.Join(r.FailedItems, ", "))
	}
	fmt.Printf("  Resource usage: %s tokens\n", formatNumber(r.TotalResourceUsage))
	fmt.Printf("  Duration: %s\n", formatDuration(r.Duration))
}
