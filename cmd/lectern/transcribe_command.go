package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var courseID string

	cmd := &cobra.Command{
		Use:   "transcribe <lesson-id> <video-path>",
		Short: "Queue a lesson video for transcription",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoPath, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Enqueue(ipc.EnqueueRequest{
					LessonID:  args[0],
					VideoPath: videoPath,
					UserID:    userID,
					CourseID:  courseID,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued transcription job %d for lesson %s\n", resp.JobID, args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User who requested the transcription")
	cmd.Flags().StringVar(&courseID, "course", "", "Course the lesson belongs to")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <lesson-id>",
		Short: "Cancel a lesson's running transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel(args[0])
				if err != nil {
					return err
				}
				if resp.Cancelled {
					fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for lesson %s\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "No running transcription for lesson %s\n", args[0])
				}
				return nil
			})
		},
	}
}
