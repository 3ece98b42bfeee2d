package transcriber

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"lectern/internal/config"
	"lectern/internal/lessons"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/testsupport"
)

type fakeUpdater struct {
	mu      sync.Mutex
	updates map[string][]lessons.Update
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{updates: make(map[string][]lessons.Update)}
}

func (f *fakeUpdater) UpdateTranscript(_ context.Context, lessonID string, update lessons.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[lessonID] = append(f.updates[lessonID], update)
	return nil
}

func (f *fakeUpdater) last(lessonID string) (lessons.Update, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	history := f.updates[lessonID]
	if len(history) == 0 {
		return lessons.Update{}, false
	}
	return history[len(history)-1], true
}

func startManager(t *testing.T, cfg *config.Config, updater lessons.Updater) (*Manager, *queue.Store) {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManager(cfg, store, updater, logging.NewNop())
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(manager.Stop)
	return manager, store
}

func awaitJob(t *testing.T, handle *Handle) *queue.Job {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	job, err := handle.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("job did not finish in time")
	}
	if job == nil {
		t.Fatalf("expected terminal job, got error %v", err)
	}
	return job
}

func awaitActive(t *testing.T, manager *Manager, lessonID string) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		for _, id := range manager.ActiveLessons() {
			if id == lessonID {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("lesson %s never became active", lessonID)
}

func TestEnqueueValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecognizerScript("exit 0\n"))
	manager, _ := startManager(t, cfg, newFakeUpdater())

	if _, err := manager.Enqueue(context.Background(), Request{VideoPath: "/videos/a.mp4"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing lesson, got %v", err)
	}
	if _, err := manager.Enqueue(context.Background(), Request{LessonID: "lesson-1"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing video, got %v", err)
	}
}

func TestEnqueueRejectedWhenRecognizerDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecognizerScript("exit 0\n"))
	cfg.Whisper.Enabled = false
	manager, store := startManager(t, cfg, newFakeUpdater())

	if _, err := manager.Enqueue(context.Background(), Request{LessonID: "lesson-1", VideoPath: "/videos/a.mp4"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for disabled recognizer, got %v", err)
	}
	jobs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("disabled recognizer must not persist jobs, got %d", len(jobs))
	}
}

func TestDisabledRecognizerLeavesQueuedJobsUntouched(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecognizerScript("exit 0\n"))
	cfg.Whisper.Enabled = false
	manager, store := startManager(t, cfg, newFakeUpdater())

	// A row queued before the recognizer was disabled must not be claimed.
	job, err := store.Enqueue(context.Background(), "lesson-1", "/videos/a.mp4", "", "")
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	time.Sleep(2 * manager.pollInterval)
	current, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if current.Status != queue.StatusQueued {
		t.Fatalf("expected job left queued, got %q", current.Status)
	}
}

func TestTranscriptionCompletesAndPublishes(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecognizerScript(testsupport.RecognizerOKScript))
	updater := newFakeUpdater()
	manager, _ := startManager(t, cfg, updater)

	video := testsupport.WriteVideo(t, filepath.Join(testsupport.BaseDir(cfg), "videos", "intro.mp4"))
	handle, err := manager.Enqueue(context.Background(), Request{
		LessonID:  "lesson-1",
		VideoPath: video,
		UserID:    "user-7",
		CourseID:  "course-3",
	})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	job := awaitJob(t, handle)
	if job.Status != queue.StatusCompleted {
		t.Fatalf("expected completed job, got %q (%s)", job.Status, job.ErrorMessage)
	}

	wantSRT := filepath.Join(cfg.Paths.UploadDir, "courses", "course-3", "transcripts", "intro.srt")
	if job.TranscriptPath != wantSRT {
		t.Fatalf("expected transcript at %q, got %q", wantSRT, job.TranscriptPath)
	}
	if _, err := os.Stat(wantSRT); err != nil {
		t.Fatalf("published transcript missing: %v", err)
	}
	wantJSON := filepath.Join(cfg.Paths.UploadDir, "courses", "course-3", "transcripts", "intro.json")
	if job.TranscriptJSONPath != wantJSON {
		t.Fatalf("expected segments at %q, got %q", wantJSON, job.TranscriptJSONPath)
	}
	if _, err := os.Stat(wantJSON); err != nil {
		t.Fatalf("published segments missing: %v", err)
	}

	update, ok := updater.last("lesson-1")
	if !ok {
		t.Fatal("expected lesson updates")
	}
	if update.Status != string(queue.StatusCompleted) {
		t.Fatalf("expected lesson status completed, got %q", update.Status)
	}
	if update.TranscriptURL == nil || *update.TranscriptURL != "/uploads/courses/course-3/transcripts/intro.srt" {
		t.Fatalf("unexpected transcript url: %v", update.TranscriptURL)
	}
	if update.TranscriptJSONURL == nil || *update.TranscriptJSONURL != "/uploads/courses/course-3/transcripts/intro.json" {
		t.Fatalf("unexpected segments url: %v", update.TranscriptJSONURL)
	}
}

func TestTranscriptionFailureRecordsExitCode(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecognizerScript("echo 'model load failed' >&2\nexit 2\n"))
	updater := newFakeUpdater()
	manager, _ := startManager(t, cfg, updater)

	handle, err := manager.Enqueue(context.Background(), Request{LessonID: "lesson-1", VideoPath: "/videos/a.mp4"})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	job := awaitJob(t, handle)
	if job.Status != queue.StatusFailed {
		t.Fatalf("expected failed job, got %q", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "exited with code 2") {
		t.Fatalf("expected exit code in error message, got %q", job.ErrorMessage)
	}
	if !strings.Contains(job.ErrorMessage, "model load failed") {
		t.Fatalf("expected recognizer output in error message, got %q", job.ErrorMessage)
	}
	if update, ok := updater.last("lesson-1"); !ok || update.Status != string(queue.StatusFailed) {
		t.Fatalf("expected lesson marked failed, got %+v", update)
	}
}

func TestCompletedWithoutCaptionsIsSoftSuccess(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecognizerScript("exit 0\n"))
	updater := newFakeUpdater()
	manager, _ := startManager(t, cfg, updater)

	handle, err := manager.Enqueue(context.Background(), Request{LessonID: "lesson-1", VideoPath: "/videos/a.mp4"})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	job := awaitJob(t, handle)
	if job.Status != queue.StatusCompleted {
		t.Fatalf("expected completed job, got %q", job.Status)
	}
	if job.TranscriptPath != "" || job.TranscriptJSONPath != "" {
		t.Fatalf("expected no artifacts, got %+v", job)
	}
	update, ok := updater.last("lesson-1")
	if !ok || update.Status != string(queue.StatusCompleted) {
		t.Fatalf("expected lesson completed, got %+v", update)
	}
	if update.TranscriptURL != nil {
		t.Fatalf("expected no transcript url, got %v", update.TranscriptURL)
	}
}

func TestCancelRunningJob(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecognizerScript("sleep 30\n"))
	updater := newFakeUpdater()
	manager, _ := startManager(t, cfg, updater)

	handle, err := manager.Enqueue(context.Background(), Request{LessonID: "lesson-1", VideoPath: "/videos/a.mp4"})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	awaitActive(t, manager, "lesson-1")

	if !manager.Cancel("lesson-1") {
		t.Fatal("expected Cancel to find the running job")
	}
	if manager.Cancel("lesson-1") {
		t.Fatal("second Cancel must report no tracked process")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	job, waitErr := handle.Wait(ctx)
	if !errors.Is(waitErr, services.ErrCancelled) {
		t.Fatalf("expected cancellation error, got %v", waitErr)
	}
	if job == nil || job.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled job, got %+v", job)
	}
	if update, ok := updater.last("lesson-1"); !ok || update.Status != string(queue.StatusCancelled) {
		t.Fatalf("expected lesson marked cancelled, got %+v", update)
	}
}

func TestCancelUntrackedLesson(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecognizerScript("exit 0\n"))
	manager, _ := startManager(t, cfg, newFakeUpdater())

	if manager.Cancel("lesson-unknown") {
		t.Fatal("expected false for untracked lesson")
	}
}

func TestEnqueueCancelsRunningJobForSameLesson(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecognizerScript("sleep 30\n"), testsupport.WithWorkers(2))
	updater := newFakeUpdater()
	manager, _ := startManager(t, cfg, updater)

	first, err := manager.Enqueue(context.Background(), Request{LessonID: "lesson-1", VideoPath: "/videos/v1.mp4"})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	awaitActive(t, manager, "lesson-1")

	second, err := manager.Enqueue(context.Background(), Request{LessonID: "lesson-1", VideoPath: "/videos/v2.mp4"})
	if err != nil {
		t.Fatalf("second Enqueue returned error: %v", err)
	}
	if second.JobID == first.JobID {
		t.Fatal("expected a fresh job row for the re-enqueued lesson")
	}

	// The predecessor was evicted at enqueue time, so any registry entry for
	// the lesson from here on belongs to the successor.
	awaitActive(t, manager, "lesson-1")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	job, waitErr := first.Wait(ctx)
	if !errors.Is(waitErr, services.ErrCancelled) {
		t.Fatalf("expected first job cancelled, got %v", waitErr)
	}
	if job == nil || job.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled job, got %+v", job)
	}

	// By now the predecessor has exited and run its registry cleanup; the
	// successor's entry must be the only one left standing.
	if active := manager.ActiveLessons(); len(active) != 1 || active[0] != "lesson-1" {
		t.Fatalf("expected only the successor to remain active, got %v", active)
	}

	// The successor keeps running until the manager shuts down.
	manager.Cancel("lesson-1")
}

func TestStopLeavesJobProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecognizerScript("sleep 30\n"))
	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManager(cfg, store, newFakeUpdater(), logging.NewNop())
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	handle, err := manager.Enqueue(context.Background(), Request{LessonID: "lesson-1", VideoPath: "/videos/a.mp4"})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	awaitActive(t, manager, "lesson-1")

	manager.Stop()

	job, err := store.GetByID(context.Background(), handle.JobID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if job.Status != queue.StatusProcessing {
		t.Fatalf("shutdown must leave the row processing, got %q", job.Status)
	}

	reset, err := store.ResetStuckProcessing(context.Background())
	if err != nil {
		t.Fatalf("ResetStuckProcessing returned error: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 job re-queued, got %d", reset)
	}
}
