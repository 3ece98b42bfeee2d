package recognizer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"lectern/internal/config"
	langpkg "lectern/internal/language"
	"lectern/internal/services"
)

// StopGracePeriod is how long Stop waits after SIGTERM before escalating
// to SIGKILL.
const StopGracePeriod = 2 * time.Second

// Service launches the configured speech recognition command.
type Service struct {
	cfg config.Whisper
}

// NewService creates a recognizer service from configuration.
func NewService(cfg config.Whisper) *Service {
	return &Service{cfg: cfg}
}

// Command returns the configured recognizer binary for logging.
func (s *Service) Command() string {
	return s.cfg.Command
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// buildArgs constructs the recognizer command arguments.
func (s *Service) buildArgs(videoPath, outputDir string) []string {
	args := make([]string, 0, 12)
	args = append(args, videoPath)
	args = append(args,
		"--model", s.cfg.Model,
		"--task", s.cfg.Task,
		"--output_format", s.cfg.OutputFormat,
		"--output_dir", outputDir,
	)
	if s.cfg.FP16 {
		args = append(args, "--fp16", "True")
	} else {
		args = append(args, "--fp16", "False")
	}
	if lang := langpkg.ToISO2(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

// SRTPath returns where the recognizer writes captions for the given video.
func SRTPath(videoPath, outputDir string) string {
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return filepath.Join(outputDir, base+".srt")
}

// Start launches a recognition run for the given video. The returned Process
// is already running; callers must Wait on it exactly once.
func (s *Service) Start(ctx context.Context, videoPath, outputDir string) (*Process, error) {
	if strings.TrimSpace(videoPath) == "" {
		return nil, services.Wrap(
			services.ErrValidation,
			"recognizer",
			"start",
			"Video path is required",
			nil,
		)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(
			services.ErrConfiguration,
			"recognizer",
			"ensure output dir",
			"Failed to create recognizer output directory",
			err,
		)
	}

	args := s.buildArgs(videoPath, outputDir)
	cmd := exec.CommandContext(ctx, s.cfg.Command, args...) //nolint:gosec
	cmd.Cancel = func() error {
		return cmd.Process.Signal(unix.SIGTERM)
	}
	cmd.WaitDelay = StopGracePeriod

	proc := &Process{cmd: cmd, done: make(chan struct{})}
	cmd.Stdout = &proc.output
	cmd.Stderr = &proc.output

	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(
			services.ErrExternalTool,
			"recognizer",
			"start",
			"Failed to launch recognizer command; check whisper.command in configuration",
			err,
		)
	}

	go proc.wait()
	return proc, nil
}

// Process is a handle to a running recognition command.
type Process struct {
	cmd     *exec.Cmd
	output  bytes.Buffer
	done    chan struct{}
	outcome Outcome

	stopRequested atomic.Bool
	stopOnce      sync.Once
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	p.outcome = p.classify(err)
	close(p.done)
}

func (p *Process) classify(err error) Outcome {
	if err == nil {
		return CompletedOutcome()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return CancelledOutcome()
		}
		if p.stopRequested.Load() {
			return CancelledOutcome()
		}
		return FailedOutcome(exitErr.ExitCode())
	}
	return SpawnErrorOutcome(err)
}

// Wait blocks until the command exits and returns its classified outcome.
func (p *Process) Wait() Outcome {
	<-p.done
	return p.outcome
}

// Done returns a channel closed when the command has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Output returns the combined stdout and stderr captured so far. It must
// only be called after the process has exited.
func (p *Process) Output() string {
	return strings.TrimSpace(p.output.String())
}

// Interrupt asks the command to terminate and returns without waiting for it
// to exit. SIGTERM is delivered before Interrupt returns; a child still
// running after the grace period is killed in the background.
func (p *Process) Interrupt() {
	p.stopOnce.Do(func() {
		p.stopRequested.Store(true)
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Signal(unix.SIGTERM)
		}
		go func() {
			select {
			case <-p.done:
			case <-time.After(StopGracePeriod):
				if p.cmd.Process != nil {
					_ = p.cmd.Process.Signal(unix.SIGKILL)
				}
			}
		}()
	})
}

// Stop interrupts the command and blocks until it has exited.
func (p *Process) Stop() {
	p.Interrupt()
	<-p.done
}
