package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the download queue",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show active and completed downloads",
	RunE:  runQueueStatusCmd,
}

var queueAddCmd = &cobra.Command{
	Use:   "add <title> <url>...",
	Short: "Submit a download batch",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runQueueAddCmd,
}

var queueCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a queued or running job",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueCancelCmd,
}

var queueConcurrencyCmd = &cobra.Command{
	Use:   "concurrency <n>",
	Short: "Set the parallel download limit",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueConcurrencyCmd,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueCancelCmd)
	queueCmd.AddCommand(queueConcurrencyCmd)

	queueAddCmd.Flags().StringP("language", "l", "", "Audio language (server default if empty)")
	queueAddCmd.Flags().StringP("provider", "p", "", "Pin a provider (auto-resolve if empty)")
}

func runQueueStatusCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	status, err := client.QueueStatus()
	if err != nil {
		return fmt.Errorf("queue fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(status)
		return nil
	}

	printActive(status.Active)
	fmt.Println()
	printCompleted(status.Completed)
	return nil
}

func runQueueAddCmd(cmd *cobra.Command, args []string) error {
	language, _ := cmd.Flags().GetString("language")
	providerName, _ := cmd.Flags().GetString("provider")

	client := NewClient(serverURL)
	resp, err := client.Submit(args[0], args[1:], language, providerName)
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	fmt.Printf("Queued %d job(s): %s\n", len(resp.JobIDs), joinIDs(resp.JobIDs))
	return nil
}

func runQueueCancelCmd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job id %q", args[0])
	}

	client := NewClient(serverURL)
	resp, err := client.Cancel(id)
	if err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	if resp.Success {
		fmt.Printf("Cancellation requested for job %d\n", id)
	} else {
		fmt.Printf("Job %d not found or already finished\n", id)
	}
	return nil
}

func runQueueConcurrencyCmd(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid limit %q", args[0])
	}

	client := NewClient(serverURL)
	resp, err := client.SetConcurrency(n)
	if err != nil {
		return fmt.Errorf("set concurrency failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	fmt.Printf("Parallel download limit set to %d\n", resp.MaxConcurrent)
	return nil
}

func printActive(jobs []JobView) {
	if len(jobs) == 0 {
		fmt.Println("No active downloads")
		return
	}

	fmt.Printf("Active Downloads (%d):\n\n", len(jobs))
	fmt.Printf("  %-4s %-9s %-36s %-9s %s\n", "ID", "STATE", "TITLE", "PROGRESS", "MESSAGE")
	fmt.Println("  " + strings.Repeat("-", 80))

	for _, j := range jobs {
		fmt.Printf("  %-4d %-9s %-36s %7.1f%%  %s\n",
			j.ID, j.Status, truncate(jobTitle(j), 36), j.ItemProgress, truncate(j.StatusMessage, 40))
	}
}

func printCompleted(jobs []JobView) {
	if len(jobs) == 0 {
		fmt.Println("No completed downloads")
		return
	}

	fmt.Printf("Completed Downloads (%d):\n\n", len(jobs))
	fmt.Printf("  %-4s %-10s %-36s %s\n", "ID", "STATE", "TITLE", "DETAIL")
	fmt.Println("  " + strings.Repeat("-", 72))

	for _, j := range jobs {
		detail := j.ErrorMessage
		if j.Status == "completed" {
			detail = "100%"
		}
		fmt.Printf("  %-4d %-10s %-36s %s\n", j.ID, j.Status, truncate(jobTitle(j), 36), truncate(detail, 36))
	}
}

func jobTitle(j JobView) string {
	return fmt.Sprintf("%s #%d", j.BatchTitle, j.ItemIndex)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
