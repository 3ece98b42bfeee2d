package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"lectern/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "lecternd.sock")
	cfgVal.Workflow.QueuePollInterval = 1
	cfgVal.Workflow.ErrorRetryInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithWorkers sets the transcription worker count on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Workers = workers
	}
}

// WithRecognizerScript writes a stub recognizer executable with the given
// shell body and points whisper.command at it.
func WithRecognizerScript(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Whisper.Command = StubScript(b.t, b.baseDir, "whisper-stub", body)
	}
}

// WithFFmpegScript writes a stub encoder executable with the given shell
// body and points hls.ffmpeg_command at it.
func WithFFmpegScript(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.HLS.FFmpegCommand = StubScript(b.t, b.baseDir, "ffmpeg-stub", body)
	}
}

// StubScript writes an executable shell script under baseDir/bin and returns
// its path.
func StubScript(t testing.TB, baseDir, name, body string) string {
	t.Helper()

	binDir := filepath.Join(baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}

// RecognizerOKScript is a stub recognizer body that writes a small SRT file
// into the requested output directory and exits successfully.
const RecognizerOKScript = `
out=""
video=""
while [ $# -gt 0 ]; do
    case "$1" in
    --output_dir)
        out="$2"
        shift
        ;;
    --*)
        shift
        ;;
    *)
        if [ -z "$video" ]; then
            video="$1"
        fi
        ;;
    esac
    shift
done
base=$(basename "$video")
base="${base%.*}"
printf '1\n00:00:00,000 --> 00:00:02,000\nWelcome to the lesson.\n\n2\n00:00:02,500 --> 00:00:04,000\nLet us begin.\n' > "$out/$base.srt"
exit 0
`
