package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"lectern/internal/config"
	"lectern/internal/lessons"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/recognizer"
	"lectern/internal/services"
)

// Request describes a transcription job to enqueue.
type Request struct {
	LessonID  string
	VideoPath string
	UserID    string
	CourseID  string
}

// Manager runs the transcription pipeline.
type Manager struct {
	cfg     *config.Config
	store   *queue.Store
	lessons lessons.Updater
	service *recognizer.Service
	logger  *slog.Logger

	pollInterval  time.Duration
	retryInterval time.Duration
	wake          chan struct{}

	mu      sync.Mutex
	active  map[string]*recognizer.Process
	waiters map[int64]*Handle

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a transcription manager.
func NewManager(cfg *config.Config, store *queue.Store, lessonStore lessons.Updater, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:           cfg,
		store:         store,
		lessons:       lessonStore,
		service:       recognizer.NewService(cfg.Whisper),
		logger:        logging.NewComponentLogger(logger, "transcriber"),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		wake:          make(chan struct{}, 1),
		active:        make(map[string]*recognizer.Process),
		waiters:       make(map[int64]*Handle),
	}
}

// Start launches the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return errors.New("transcriber already running")
	}

	workers := m.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	// With the recognizer disabled no workers run, so queued rows are left
	// untouched until it is enabled again.
	if !m.cfg.Whisper.Enabled {
		workers = 0
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx)
	}
	if workers == 0 {
		m.logger.Info("transcription disabled; workers not started")
	} else {
		m.logger.Info("transcription workers started", logging.Int("workers", workers))
	}
	return nil
}

// Stop terminates background processing and waits for workers to exit.
// Running recognizer processes are stopped; their jobs stay in the
// processing state for recovery on the next start.
func (m *Manager) Stop() {
	m.runMu.Lock()
	if !m.running {
		m.runMu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.runMu.Unlock()

	cancel()
	m.wg.Wait()
}

// Enqueue validates and inserts a transcription job. When the lesson already
// has a running job it is cancelled before the new one is queued.
func (m *Manager) Enqueue(ctx context.Context, req Request) (*Handle, error) {
	lessonID := strings.TrimSpace(req.LessonID)
	videoPath := strings.TrimSpace(req.VideoPath)
	if lessonID == "" {
		return nil, services.Wrap(services.ErrValidation, "transcriber", "enqueue", "Lesson ID is required", nil)
	}
	if videoPath == "" {
		return nil, services.Wrap(services.ErrValidation, "transcriber", "enqueue", "Video path is required", nil)
	}
	if !m.cfg.Whisper.Enabled {
		return nil, services.Wrap(services.ErrConfiguration, "transcriber", "enqueue", "Transcription is disabled; set whisper.enabled in configuration", nil)
	}

	if m.Cancel(lessonID) {
		m.logger.Info("cancelled running job for re-enqueued lesson", logging.String(logging.FieldLessonID, lessonID))
	}

	job, err := m.store.Enqueue(ctx, lessonID, videoPath, strings.TrimSpace(req.UserID), strings.TrimSpace(req.CourseID))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcriber", "enqueue", "Failed to persist transcription job", err)
	}

	handle := newHandle(job)
	m.mu.Lock()
	m.waiters[job.ID] = handle
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}

	m.logger.Info(
		"transcription job queued",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldLessonID, lessonID),
		logging.String("video_path", videoPath),
	)
	return handle, nil
}

// Cancel stops the running recognizer process for a lesson. It returns false
// when no process is tracked for the lesson. The registry entry is removed
// and the termination signal is delivered before Cancel returns; only the
// grace-period escalation continues in the background.
func (m *Manager) Cancel(lessonID string) bool {
	m.mu.Lock()
	proc, ok := m.active[lessonID]
	if ok {
		delete(m.active, lessonID)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	proc.Interrupt()
	m.logger.Info("cancellation requested", logging.String(logging.FieldLessonID, lessonID))
	return true
}

// ActiveLessons returns the lessons with a running recognizer process.
func (m *Manager) ActiveLessons() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) register(lessonID string, proc *recognizer.Process) {
	m.mu.Lock()
	m.active[lessonID] = proc
	m.mu.Unlock()
}

// unregister removes the registry entry only when it still points at proc,
// so a successor job's process is never evicted by a finishing predecessor.
func (m *Manager) unregister(lessonID string, proc *recognizer.Process) {
	m.mu.Lock()
	if current, ok := m.active[lessonID]; ok && current == proc {
		delete(m.active, lessonID)
	}
	m.mu.Unlock()
}

func (m *Manager) takeWaiter(jobID int64) *Handle {
	m.mu.Lock()
	handle := m.waiters[jobID]
	delete(m.waiters, jobID)
	m.mu.Unlock()
	return handle
}

func (m *Manager) notifyWaiter(jobID int64, job *queue.Job, err error) {
	if handle := m.takeWaiter(jobID); handle != nil {
		handle.complete(job, err)
	}
}

// scratchDir returns the per-job recognizer output directory.
func (m *Manager) scratchDir(jobID int64) string {
	return filepath.Join(m.cfg.Paths.ScratchDir, "transcripts", fmt.Sprintf("job-%d", jobID))
}
