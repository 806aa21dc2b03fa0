package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE:  runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("status fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(status)
		return nil
	}

	fmt.Printf("Server:         %s\n", serverURL)
	fmt.Printf("Status:         %s\n", status.Status)
	fmt.Printf("Version:        %s\n", status.Version)
	fmt.Printf("Queued:         %d\n", status.Queued)
	fmt.Printf("Running:        %d\n", status.Running)
	fmt.Printf("Max concurrent: %d\n", status.MaxConcurrent)
	return nil
}
