// Package hls builds multi-bitrate HLS renditions for lesson videos.
//
// Each configured variant is encoded sequentially into its own subdirectory
// and a master playlist references them in configuration order. Output is
// all-or-nothing: any failure removes the output directory and returns the
// original error.
package hls

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// DefaultMasterName is the master playlist filename when none is given.
const DefaultMasterName = "master.m3u8"

// segmentSeconds is the HLS segment duration. The GOP length below keeps
// keyframes aligned with segment boundaries.
const segmentSeconds = 6

// Builder converts a source video into an HLS rendition ladder.
type Builder struct {
	cfg           config.HLS
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewBuilder creates a builder for the configured rendition ladder.
func NewBuilder(cfg config.HLS, logger *slog.Logger) *Builder {
	return &Builder{cfg: cfg, logger: logging.NewComponentLogger(logger, "hls")}
}

// WithCommandRunner sets a custom command runner (for testing).
func (b *Builder) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	b.commandRunner = runner
}

// Convert encodes inputPath into outputDir and returns the master playlist
// path. The output directory is recreated from scratch; on any failure it is
// removed again so partial ladders never survive.
func (b *Builder) Convert(ctx context.Context, inputPath, outputDir, masterName string) (string, error) {
	if strings.TrimSpace(inputPath) == "" {
		return "", services.Wrap(services.ErrValidation, "hls", "convert", "Input path is required", nil)
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", services.Wrap(services.ErrValidation, "hls", "convert", "Output directory is required", nil)
	}
	if len(b.cfg.Variants) == 0 {
		return "", services.Wrap(services.ErrConfiguration, "hls", "convert", "No HLS variants configured", nil)
	}
	if masterName == "" {
		masterName = DefaultMasterName
	}

	if err := os.RemoveAll(outputDir); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "hls", "reset output dir", "Failed to clear HLS output directory", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "hls", "create output dir", "Failed to create HLS output directory", err)
	}

	for _, variant := range b.cfg.Variants {
		if err := b.encodeVariant(ctx, inputPath, outputDir, variant); err != nil {
			b.cleanup(outputDir)
			return "", err
		}
	}

	masterPath := filepath.Join(outputDir, masterName)
	if err := b.writeMasterPlaylist(masterPath); err != nil {
		b.cleanup(outputDir)
		return "", err
	}

	b.logger.Info(
		"hls ladder built",
		logging.String("input", inputPath),
		logging.String("master_playlist", masterPath),
		logging.Int("variants", len(b.cfg.Variants)),
	)
	return masterPath, nil
}

func (b *Builder) encodeVariant(ctx context.Context, inputPath, outputDir string, variant config.HLSVariant) error {
	variantDir := filepath.Join(outputDir, variant.Name)
	if err := os.MkdirAll(variantDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "hls", "create variant dir", "Failed to create variant directory", err)
	}

	args := buildVariantArgs(inputPath, variantDir, variant)
	b.logger.Info(
		"encoding variant",
		logging.String("variant", variant.Name),
		logging.String("resolution", fmt.Sprintf("%dx%d", variant.Width, variant.Height)),
	)
	if err := b.run(ctx, b.cfg.FFmpegCommand, args...); err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"hls",
			"encode variant "+variant.Name,
			"ffmpeg encode failed; check ffmpeg installation and input file",
			err,
		)
	}
	return nil
}

// buildVariantArgs assembles the encoder invocation for one rung of the
// ladder. The scale filter preserves aspect ratio within the target box.
func buildVariantArgs(inputPath, variantDir string, variant config.HLSVariant) []string {
	scale := fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=decrease", variant.Width, variant.Height)
	gop := fmt.Sprintf("%d", segmentSeconds*8)
	return []string{
		"-hide_banner",
		"-y",
		"-i", inputPath,
		"-vf", scale,
		"-c:v", "h264",
		"-profile:v", "main",
		"-b:v", variant.VideoBitrate,
		"-maxrate", variant.VideoBitrate,
		"-bufsize", variant.VideoBitrate,
		"-g", gop,
		"-keyint_min", gop,
		"-sc_threshold", "0",
		"-c:a", "aac",
		"-ar", "48000",
		"-b:a", variant.AudioBitrate,
		"-hls_time", fmt.Sprintf("%d", segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(variantDir, "segment_%03d.ts"),
		filepath.Join(variantDir, "index.m3u8"),
	}
}

func (b *Builder) writeMasterPlaylist(path string) error {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")
	sb.WriteString("#EXT-X-VERSION:3\n")
	for _, variant := range b.cfg.Variants {
		fmt.Fprintf(&sb, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n", variant.Bandwidth, variant.Width, variant.Height)
		fmt.Fprintf(&sb, "%s/index.m3u8\n", variant.Name)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "hls", "write master playlist", "Failed to write master playlist", err)
	}
	return nil
}

func (b *Builder) cleanup(outputDir string) {
	if err := os.RemoveAll(outputDir); err != nil {
		b.logger.Warn("failed to clean up partial hls output", logging.String("output_dir", outputDir), logging.Error(err))
	}
}

// run executes a command, using the custom runner if set.
func (b *Builder) run(ctx context.Context, name string, args ...string) error {
	if b.commandRunner != nil {
		return b.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
