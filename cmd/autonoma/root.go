package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// CheckClaudeCLI verifies that the claude CLI is available at the given path.
// Returns an error with installation instructions if not found.
func CheckClaudeCLI(path string) error {
	if path == "" {
		path = "claude"
	}
	_, err := exec.LookPath(path)
	if err != nil {
		return fmt.Errorf("claude CLI not found at %q\n\n"+
			"Autonoma drives the Claude Code CLI to plan, implement, and review work.\n\n"+
			"Install it with:\n"+
			"  npm install -g @anthropic-ai/claude-code\n\n"+
			"Or switch to the direct API backend:\n"+
			"  autonoma config claude.backend api", path)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "autonoma",
	Short: "Autonomous software delivery pipeline",
	Long: `Autonoma turns a requirements description into merged work through
a crash-tolerant delivery pipeline.

A run plans milestones, decomposes each into work items, executes items
in parallel where dependencies allow, reviews every result before merge,
and retries or escalates what fails. All state is persisted so an
interrupted run picks up where it left off.

Core capabilities:
- Plans requirements into phased milestones
- Decomposes milestones into dependency-ordered work items
- Runs a bounded pool of implementer agents in parallel
- Reviews every item before it merges
- Escalates items that keep failing instead of looping forever`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
