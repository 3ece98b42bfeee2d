package recognizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lectern/internal/config"
	"lectern/internal/services"
)

func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "whisper-stub")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func stubConfig(command string) config.Whisper {
	return config.Whisper{
		Enabled:      true,
		Command:      command,
		Model:        "base",
		Task:         "transcribe",
		OutputFormat: "srt",
	}
}

func TestBuildArgs(t *testing.T) {
	cfg := stubConfig("whisper")
	cfg.Language = "eng"
	cfg.FP16 = true
	svc := NewService(cfg)

	args := svc.buildArgs("/videos/lesson.mp4", "/tmp/out")
	want := []string{
		"/videos/lesson.mp4",
		"--model", "base",
		"--task", "transcribe",
		"--output_format", "srt",
		"--output_dir", "/tmp/out",
		"--fp16", "True",
		"--language", "en",
	}
	if len(args) != len(want) {
		t.Fatalf("expected %d args, got %d: %v", len(want), len(args), args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d: expected %q, got %q", i, want[i], args[i])
		}
	}
}

func TestBuildArgsAutodetectOmitsLanguage(t *testing.T) {
	svc := NewService(stubConfig("whisper"))
	args := svc.buildArgs("/videos/lesson.mp4", "/tmp/out")
	for _, arg := range args {
		if arg == "--language" {
			t.Fatal("autodetect must not pass --language")
		}
	}
	if args[len(args)-1] != "False" {
		t.Fatalf("expected fp16 False as final arg, got %v", args)
	}
}

func TestStartCompletes(t *testing.T) {
	stub := writeStub(t, `
out=""
while [ $# -gt 0 ]; do
    if [ "$1" = "--output_dir" ]; then
        out="$2"
        shift
    fi
    shift
done
printf '1\n00:00:00,000 --> 00:00:01,000\nhello\n' > "$out/lesson.srt"
exit 0
`)
	svc := NewService(stubConfig(stub))
	outputDir := t.TempDir()

	proc, err := svc.Start(context.Background(), "/videos/lesson.mp4", outputDir)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	outcome := proc.Wait()
	if outcome.Kind != OutcomeCompleted {
		t.Fatalf("expected completed outcome, got %s", outcome)
	}
	srt := SRTPath("/videos/lesson.mp4", outputDir)
	if _, err := os.Stat(srt); err != nil {
		t.Fatalf("expected captions at %s: %v", srt, err)
	}
}

func TestStartFailureCapturesExitCode(t *testing.T) {
	stub := writeStub(t, "echo 'model load failed' >&2\nexit 3\n")
	svc := NewService(stubConfig(stub))

	proc, err := svc.Start(context.Background(), "/videos/lesson.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	outcome := proc.Wait()
	if outcome.Kind != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", outcome)
	}
	if outcome.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", outcome.ExitCode)
	}
	if proc.Output() != "model load failed" {
		t.Fatalf("unexpected captured output: %q", proc.Output())
	}
}

func TestStopCancelsRunningProcess(t *testing.T) {
	stub := writeStub(t, "sleep 30\n")
	svc := NewService(stubConfig(stub))

	proc, err := svc.Start(context.Background(), "/videos/lesson.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	stopped := make(chan Outcome, 1)
	go func() {
		proc.Stop()
		stopped <- proc.Wait()
	}()

	select {
	case outcome := <-stopped:
		if outcome.Kind != OutcomeCancelled {
			t.Fatalf("expected cancelled outcome, got %s", outcome)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not terminate the process in time")
	}
}

func TestInterruptSignalsBeforeReturning(t *testing.T) {
	stub := writeStub(t, "trap '' TERM\nsleep 30\n")
	svc := NewService(stubConfig(stub))

	proc, err := svc.Start(context.Background(), "/videos/lesson.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	// Give the shell a moment to install its trap.
	time.Sleep(100 * time.Millisecond)

	started := time.Now()
	proc.Interrupt()
	if elapsed := time.Since(started); elapsed >= StopGracePeriod {
		t.Fatalf("Interrupt must not wait for the grace period, took %s", elapsed)
	}
	select {
	case <-proc.Done():
		t.Fatal("child ignoring the termination signal must still be running")
	default:
	}

	// The escalation kills the child that ignored the signal.
	outcome := proc.Wait()
	if outcome.Kind != OutcomeCancelled {
		t.Fatalf("expected cancelled outcome after escalation, got %s", outcome)
	}
}

func TestStartSpawnError(t *testing.T) {
	cfg := stubConfig(filepath.Join(t.TempDir(), "missing-binary"))
	svc := NewService(cfg)

	if _, err := svc.Start(context.Background(), "/videos/lesson.mp4", t.TempDir()); err == nil {
		t.Fatal("expected spawn error for missing binary")
	} else if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestStartRejectsEmptyVideoPath(t *testing.T) {
	svc := NewService(stubConfig("whisper"))
	if _, err := svc.Start(context.Background(), "   ", t.TempDir()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSRTPath(t *testing.T) {
	got := SRTPath("/videos/intro-lesson.mp4", "/scratch/job-1")
	if got != "/scratch/job-1/intro-lesson.srt" {
		t.Fatalf("unexpected SRT path %q", got)
	}
}
