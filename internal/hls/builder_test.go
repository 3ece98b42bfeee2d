package hls

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/services"
)

func testHLSConfig() config.HLS {
	return config.HLS{
		FFmpegCommand: "ffmpeg",
		Variants: []config.HLSVariant{
			{Name: "high", Width: 1920, Height: 1080, Bandwidth: 5000000, VideoBitrate: "5000k", AudioBitrate: "192k"},
			{Name: "medium", Width: 1280, Height: 720, Bandwidth: 2800000, VideoBitrate: "2800k", AudioBitrate: "128k"},
			{Name: "low", Width: 854, Height: 480, Bandwidth: 1400000, VideoBitrate: "1400k", AudioBitrate: "96k"},
		},
	}
}

func TestConvertBuildsLadderAndMasterPlaylist(t *testing.T) {
	builder := NewBuilder(testHLSConfig(), logging.NewNop())
	outputDir := filepath.Join(t.TempDir(), "hls")

	var encoded []string
	builder.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		if name != "ffmpeg" {
			t.Fatalf("unexpected command %q", name)
		}
		playlist := args[len(args)-1]
		encoded = append(encoded, playlist)
		return os.WriteFile(playlist, []byte("#EXTM3U\n"), 0o644)
	})

	masterPath, err := builder.Convert(context.Background(), "/videos/lesson.mp4", outputDir, "")
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if masterPath != filepath.Join(outputDir, DefaultMasterName) {
		t.Fatalf("unexpected master path %q", masterPath)
	}
	if len(encoded) != 3 {
		t.Fatalf("expected 3 encodes, got %d", len(encoded))
	}
	for i, name := range []string{"high", "medium", "low"} {
		want := filepath.Join(outputDir, name, "index.m3u8")
		if encoded[i] != want {
			t.Fatalf("encode %d: expected playlist %q, got %q", i, want, encoded[i])
		}
	}

	data, err := os.ReadFile(masterPath)
	if err != nil {
		t.Fatalf("read master playlist: %v", err)
	}
	master := string(data)
	want := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080\n" +
		"high/index.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720\n" +
		"medium/index.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1400000,RESOLUTION=854x480\n" +
		"low/index.m3u8\n"
	if master != want {
		t.Fatalf("unexpected master playlist:\n%s", master)
	}
}

func TestConvertRemovesOutputOnFailure(t *testing.T) {
	builder := NewBuilder(testHLSConfig(), logging.NewNop())
	outputDir := filepath.Join(t.TempDir(), "hls")

	encodeErr := errors.New("encoder crashed")
	calls := 0
	builder.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		calls++
		if calls == 2 {
			return encodeErr
		}
		return nil
	})

	if _, err := builder.Convert(context.Background(), "/videos/lesson.mp4", outputDir, ""); err == nil {
		t.Fatal("expected error from failing encode")
	} else if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	} else if !errors.Is(err, encodeErr) {
		t.Fatalf("expected wrapped encoder error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected encoding to stop at the failure, got %d calls", calls)
	}
	if _, err := os.Stat(outputDir); !os.IsNotExist(err) {
		t.Fatalf("expected output dir removed after failure, stat err: %v", err)
	}
}

func TestConvertResetsStaleOutput(t *testing.T) {
	builder := NewBuilder(testHLSConfig(), logging.NewNop())
	outputDir := filepath.Join(t.TempDir(), "hls")

	stale := filepath.Join(outputDir, "stale.ts")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	builder.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return nil
	})
	if _, err := builder.Convert(context.Background(), "/videos/lesson.mp4", outputDir, ""); err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expected stale file removed by output reset")
	}
}

func TestConvertValidatesArguments(t *testing.T) {
	builder := NewBuilder(testHLSConfig(), logging.NewNop())

	if _, err := builder.Convert(context.Background(), "", t.TempDir(), ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty input, got %v", err)
	}
	if _, err := builder.Convert(context.Background(), "/videos/a.mp4", "  ", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty output dir, got %v", err)
	}

	empty := NewBuilder(config.HLS{FFmpegCommand: "ffmpeg"}, logging.NewNop())
	if _, err := empty.Convert(context.Background(), "/videos/a.mp4", t.TempDir(), ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty ladder, got %v", err)
	}
}

func TestBuildVariantArgs(t *testing.T) {
	variant := config.HLSVariant{Name: "medium", Width: 1280, Height: 720, Bandwidth: 2800000, VideoBitrate: "2800k", AudioBitrate: "128k"}
	args := buildVariantArgs("/videos/lesson.mp4", "/out/medium", variant)

	joined := strings.Join(args, " ")
	for _, fragment := range []string{
		"-i /videos/lesson.mp4",
		"-vf scale=w=1280:h=720:force_original_aspect_ratio=decrease",
		"-b:v 2800k",
		"-b:a 128k",
		"-g 48 -keyint_min 48 -sc_threshold 0",
		"-hls_time 6",
		"-hls_list_size 0",
	} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected args to contain %q, got %s", fragment, joined)
		}
	}
	if args[len(args)-1] != "/out/medium/index.m3u8" {
		t.Fatalf("expected variant playlist as final arg, got %q", args[len(args)-1])
	}
}
