package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all pipeline state",
	Long: `Delete every milestone, work item, executor record, and log entry
from the project's state database. The next run starts from a fresh plan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openProjectDB()
		if err != nil {
			return err
		}
		if db == nil {
			fmt.Println("No pipeline state to reset.")
			return nil
		}
		defer db.Close()

		if !resetForce {
			fmt.Print("This deletes all pipeline state. Continue? [y/N] ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := db.Reset(); err != nil {
			return fmt.Errorf("reset state: %w", err)
		}
		fmt.Println("Pipeline state cleared.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip the confirmation prompt")
}
