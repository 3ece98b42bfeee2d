package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"lectern/internal/hls"
	"lectern/internal/logging"
)

func newHLSCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "hls <input-video> <output-dir>",
		Short: "Build an HLS rendition ladder for a video",
		Long: "Encodes the input video into the configured multi-bitrate HLS " +
			"variants and writes a master playlist. Runs in-process and does " +
			"not require the daemon.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			inputPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve input path: %w", err)
			}
			outputDir, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("resolve output dir: %w", err)
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: "console",
			})
			if err != nil {
				return err
			}

			builder := hls.NewBuilder(cfg.HLS, logger)
			masterPath, err := builder.Convert(cmd.Context(), inputPath, outputDir, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Master playlist written to %s\n", masterPath)
			return nil
		},
	}
}
