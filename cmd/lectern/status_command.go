package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.QueueStatus()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Daemon running: %s (pid %d)\n", yesNo(status.Running), status.PID)
				if status.RunID != "" {
					fmt.Fprintf(out, "Run ID: %s\n", status.RunID)
				}
				fmt.Fprintf(out, "Queue database: %s\n", status.QueueDBPath)
				if len(status.ActiveLessons) > 0 {
					fmt.Fprintf(out, "Active lessons: %s\n", strings.Join(status.ActiveLessons, ", "))
				}
				fmt.Fprintln(out, renderStatusTable(status.Counts))
				return nil
			})
		},
	}
}

func renderStatusTable(counts map[string]int) string {
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	total := 0
	rows := make([][]string, 0, len(statuses)+1)
	for _, status := range statuses {
		rows = append(rows, []string{status, strconv.Itoa(counts[status])})
		total += counts[status]
	}
	rows = append(rows, []string{"total", strconv.Itoa(total)})
	return renderTable([]string{"Status", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight})
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the transcription queue",
	}

	var statusFilter []string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List transcription jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList(statusFilter)
				if err != nil {
					return err
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(resp.Jobs))
				for _, job := range resp.Jobs {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.LessonID,
						job.Status,
						job.CreatedAt,
						job.ErrorMessage,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Lesson", "Status", "Created", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	listCmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Filter by status (queued, processing, completed, failed, cancelled)")
	queueCmd.AddCommand(listCmd)

	queueCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d finished jobs\n", resp.Removed)
				return nil
			})
		},
	})

	return queueCmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
