package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/autonoma/internal/config"
	"github.com/ShayCichocki/autonoma/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline state",
	Long: `Display the persisted state of the delivery pipeline.

Shows:
  - Milestones and their status
  - Work item counts by status
  - Active executors
  - Total resource usage`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := openProjectDB()
	if err != nil {
		return err
	}
	if db == nil {
		fmt.Println("No pipeline state. Run 'autonoma run <requirements>' to start.")
		return nil
	}
	defer db.Close()

	stats, err := db.Statistics()
	if err != nil {
		return fmt.Errorf("read statistics: %w", err)
	}

	milestones, err := db.ListMilestones()
	if err != nil {
		return fmt.Errorf("list milestones: %w", err)
	}

	if len(milestones) == 0 && stats.TotalItems == 0 {
		fmt.Println("No pipeline state. Run 'autonoma run <requirements>' to start.")
		return nil
	}

	if len(milestones) > 0 {
		fmt.Println("Milestones:")
		for _, m := range milestones {
			fmt.Printf("  %s phase %d  %s: %s\n", colorStatus(m.Status), m.Phase, m.ID, m.Name)
		}
		fmt.Println()
	}

	fmt.Printf("Work items: %d total\n", stats.TotalItems)
	for _, status := range []state.ItemStatus{
		state.ItemPending, state.ItemInProgress, state.ItemReview,
		state.ItemMerged, state.ItemFailed, state.ItemBlocked,
	} {
		if n := stats.ItemsByStatus[status]; n > 0 {
			fmt.Printf("  %s %d\n", colorStatus(status), n)
		}
	}

	executors, err := db.ListExecutors(nil)
	if err != nil {
		return fmt.Errorf("list executors: %w", err)
	}
	displayExecutors(executors)

	fmt.Printf("\nResource usage: %s tokens\n", formatNumber(stats.TotalResourceUsage))
	return nil
}

// openProjectDB opens the project state database, or returns nil if none
// exists yet.
func openProjectDB() (*state.DB, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	dataDir := ".autonoma"
	if cfg, err := config.Load(); err == nil && cfg.DataDir != "" {
		dataDir = cfg.DataDir
	}

	dbPath := filepath.Join(cwd, dataDir, "state.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func displayExecutors(executors []state.Executor) {
	var active []state.Executor
	for _, e := range executors {
		if e.Status == state.ExecutorRunning || e.Status == state.ExecutorWaiting {
			active = append(active, e)
		}
	}
	if len(active) == 0 {
		return
	}

	fmt.Println("\nActive executors:")
	for _, e := range active {
		activity := ""
		if e.LastActivity != nil {
			activity = fmt.Sprintf(" (%s ago)", formatDuration(time.Since(*e.LastActivity)))
		}
		fmt.Printf("  %s: %s on %s%s\n", e.ID, e.Status, e.CurrentItem, activity)
	}
}

// colorStatus renders an item status with a fixed width and color.
func colorStatus(s state.ItemStatus) string {
	padded := fmt.Sprintf("%-11s", s)
	switch s {
	case state.ItemMerged:
		return color.GreenString(padded)
	case state.ItemFailed, state.ItemBlocked:
		return color.RedString(padded)
	case state.ItemInProgress, state.ItemReview:
		return color.CyanString(padded)
	default:
		return padded
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// formatNumber formats a number with commas.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	// Add commas every 3 digits from the right
	var result strings.Builder
	offset := len(s) % 3
	if offset > 0 {
		result.WriteString(s[:offset])
		if len(s) > offset {
			result.WriteString(",")
		}
	}
	for i := offset; i < len(s); i += 3 {
		result.WriteString(s[i : i+3])
		if i+3 < len(s) {
			result.WriteString(",")
		}
	}
	return result.String()
}
