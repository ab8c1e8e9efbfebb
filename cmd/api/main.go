package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskdeck/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskdeck",
		Short: "TaskDeck API Server",
		Long:  `TaskDeck is a personal task-management REST API with filtering, bulk operations and statistics, backed by a document store or an in-memory demo store.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewIndexesCommand())
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
