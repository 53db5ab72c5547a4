package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/autonoma/internal/config"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause a running pipeline",
	Long: `Pause the pipeline running in this project.

Pausing stops admission of new work items; items already executing
finish normally. The pause survives until 'autonoma resume' removes it,
and a pipeline started while the pause is in place begins paused.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pauseMarkerPath()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		if err := os.WriteFile(path, nil, 0644); err != nil {
			return fmt.Errorf("write pause marker: %w", err)
		}
		fmt.Println("Pipeline paused. Resume with 'autonoma resume'.")
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused pipeline",
	Long:  `Remove the pause marker so the pipeline admits new work items again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pauseMarkerPath()
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				fmt.Println("Pipeline is not paused.")
				return nil
			}
			return fmt.Errorf("remove pause marker: %w", err)
		}
		fmt.Println("Pipeline resumed.")
		return nil
	},
}

// pauseMarkerPath returns the project's pause marker file path.
func pauseMarkerPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	dataDir := ".autonoma"
	if cfg, err := config.Load(); err == nil && cfg.DataDir != "" {
		dataDir = cfg.DataDir
	}
	return filepath.Join(cwd, dataDir, "paused"), nil
}
