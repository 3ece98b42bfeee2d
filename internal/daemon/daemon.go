package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"lectern/internal/config"
	"lectern/internal/hls"
	"lectern/internal/lessons"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/transcriber"
)

// Daemon coordinates background transcription and enforces single-instance
// execution via a file lock.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *queue.Store
	lessons *lessons.Store
	manager *transcriber.Manager
	builder *hls.Builder
	logPath string

	lockPath string
	lock     *flock.Flock

	runID   string
	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	RunID         string
	ActiveLessons []string
	QueueStats    queue.Stats
	QueueDBPath   string
	LockFilePath  string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, lessonStore *lessons.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || lessonStore == nil || logger == nil {
		return nil, errors.New("daemon requires config, stores, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "lecternd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		lessons:  lessonStore,
		manager:  transcriber.NewManager(cfg, store, lessonStore, logger),
		builder:  hls.NewBuilder(cfg.HLS, logger),
		logPath:  filepath.Join(cfg.Paths.LogDir, "lectern.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers interrupted jobs, and launches
// the transcription workers.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lectern daemon instance is already running")
	}

	recovered, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recover interrupted jobs: %w", err)
	}
	if recovered > 0 {
		d.logger.Info("re-queued jobs interrupted by previous shutdown", logging.Int64("recovered", recovered))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.manager.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start transcriber: %w", err)
	}

	d.runID = uuid.NewString()
	d.running.Store(true)
	d.logger.Info("lectern daemon started",
		logging.String("run_id", d.runID),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("lectern daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	if d.lessons != nil {
		errs = append(errs, d.lessons.Close())
	}
	return errors.Join(errs...)
}

// Enqueue submits a transcription job and records the lesson's course.
func (d *Daemon) Enqueue(ctx context.Context, req transcriber.Request) (*transcriber.Handle, error) {
	handle, err := d.manager.Enqueue(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.CourseID != "" {
		if regErr := d.lessons.Register(ctx, req.LessonID, req.CourseID); regErr != nil {
			d.logger.Warn("failed to record lesson course", logging.Error(regErr))
		}
	}
	return handle, nil
}

// Cancel stops the running transcription for a lesson.
func (d *Daemon) Cancel(lessonID string) bool {
	return d.manager.Cancel(lessonID)
}

// ListQueue returns jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	return d.store.List(ctx, statuses...)
}

// GetJob fetches a single job by id.
func (d *Daemon) GetJob(ctx context.Context, id int64) (*queue.Job, error) {
	job, err := d.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "daemon", "get job", fmt.Sprintf("job %d not found", id), nil)
	}
	return job, nil
}

// ClearTerminal removes finished jobs from the queue.
func (d *Daemon) ClearTerminal(ctx context.Context) (int64, error) {
	return d.store.ClearTerminal(ctx)
}

// BuildHLS runs the rendition builder for a source video.
func (d *Daemon) BuildHLS(ctx context.Context, inputPath, outputDir string) (string, error) {
	return d.builder.Convert(ctx, inputPath, outputDir, "")
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:       d.running.Load(),
		RunID:         d.runID,
		ActiveLessons: d.manager.ActiveLessons(),
		QueueStats:    stats,
		QueueDBPath:   d.cfg.QueueDatabasePath(),
		LockFilePath:  d.lockPath,
	}, nil
}
