package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	logsExecutor string
	logsLimit    int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show pipeline log entries",
	Long: `Display durable log entries recorded by the pipeline.

Entries are shown newest first. Use --executor to scope the output to a
single executor's entries.`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsExecutor, "executor", "", "Only show entries for this executor")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 50, "Maximum entries to show (0 for all)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	db, err := openProjectDB()
	if err != nil {
		return err
	}
	if db == nil {
		fmt.Println("No pipeline state. Run 'autonoma run <requirements>' to start.")
		return nil
	}
	defer db.Close()

	entries, err := db.Logs(logsExecutor, logsLimit)
	if err != nil {
		return fmt.Errorf("read logs: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No log entries.")
		return nil
	}

	for _, e := range entries {
		scope := "pipeline"
		if e.ExecutorID != "" {
			scope = e.ExecutorID
		}
		level := e.Level
		switch e.Level {
		case "ERROR":
			level = color.RedString(e.Level)
		case "WARN":
			level = color.YellowString(e.Level)
		}
		fmt.Printf("%s  %-5s %-12s %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), level, scope, e.Message)
	}
	return nil
}
