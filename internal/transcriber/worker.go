package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lectern/internal/fileutil"
	"lectern/internal/language"
	"lectern/internal/lessons"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/recognizer"
	"lectern/internal/services"
	"lectern/internal/subtitles"
)

func (m *Manager) runWorker(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextQueued(ctx)
		if err != nil {
			m.logger.Error(
				"failed to fetch next queued job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.retryInterval):
			}
			continue
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-m.wake:
			case <-time.After(m.pollInterval):
			}
			continue
		}

		m.processJob(ctx, job)
	}
}

func (m *Manager) processJob(ctx context.Context, job *queue.Job) {
	claimed, err := m.store.MarkProcessing(ctx, job.ID)
	if err != nil {
		m.logger.Error("failed to claim job", logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
		return
	}
	if !claimed {
		// Another worker got there first.
		return
	}

	logger := m.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldLessonID, job.LessonID),
	)
	startAttrs := []any{logging.String("video_path", job.VideoPath)}
	if lang := m.cfg.Whisper.Language; lang != "" {
		startAttrs = append(startAttrs, logging.String("language", language.DisplayName(lang)))
	}
	logger.Info("transcription started", startAttrs...)
	m.updateLesson(ctx, logger, job.LessonID, lessons.Update{Status: string(queue.StatusProcessing)})

	outputDir := m.scratchDir(job.ID)
	proc, err := m.service.Start(ctx, job.VideoPath, outputDir)
	if err != nil {
		if ctx.Err() != nil {
			m.notifyWaiter(job.ID, nil, ctx.Err())
			return
		}
		logger.Error("recognizer failed to launch", logging.Error(err))
		m.finishJob(ctx, logger, job, queue.StatusFailed, fmt.Sprintf("failed to launch recognizer: %v", err), "", "")
		m.notifyWaiter(job.ID, m.fetchFinal(ctx, job.ID), err)
		return
	}

	m.register(job.LessonID, proc)
	outcome := proc.Wait()
	m.unregister(job.LessonID, proc)

	if ctx.Err() != nil {
		// Daemon shutdown. The row stays in processing and is reset to
		// queued on the next start.
		logger.Info("transcription interrupted by shutdown")
		m.notifyWaiter(job.ID, nil, ctx.Err())
		return
	}

	m.persistOutcome(ctx, logger, job, outputDir, outcome, proc)
}

func (m *Manager) persistOutcome(ctx context.Context, logger *slog.Logger, job *queue.Job, outputDir string, outcome recognizer.Outcome, proc *recognizer.Process) {
	switch outcome.Kind {
	case recognizer.OutcomeCompleted:
		m.completeJob(ctx, logger, job, outputDir)

	case recognizer.OutcomeFailed:
		message := fmt.Sprintf("recognizer exited with code %d", outcome.ExitCode)
		if output := lastOutputLine(proc.Output()); output != "" {
			message += ": " + output
		}
		logger.Error("transcription failed", logging.String("error_message", message))
		m.finishJob(ctx, logger, job, queue.StatusFailed, message, "", "")
		m.notifyWaiter(job.ID, m.fetchFinal(ctx, job.ID), services.Wrap(services.ErrExternalTool, "transcriber", "transcribe", message, nil))

	case recognizer.OutcomeCancelled:
		logger.Info("transcription cancelled")
		m.finishJob(ctx, logger, job, queue.StatusCancelled, "", "", "")
		m.notifyWaiter(job.ID, m.fetchFinal(ctx, job.ID), services.Wrap(services.ErrCancelled, "transcriber", "transcribe", "Transcription was cancelled", nil))

	case recognizer.OutcomeSpawnError:
		message := fmt.Sprintf("recognizer could not run: %v", outcome.Err)
		logger.Error("transcription failed", logging.String("error_message", message))
		m.finishJob(ctx, logger, job, queue.StatusFailed, message, "", "")
		m.notifyWaiter(job.ID, m.fetchFinal(ctx, job.ID), outcome.Err)

	default:
		logger.Error("unknown recognizer outcome", logging.String("outcome", outcome.String()))
		m.finishJob(ctx, logger, job, queue.StatusFailed, "unknown recognizer outcome", "", "")
		m.notifyWaiter(job.ID, m.fetchFinal(ctx, job.ID), fmt.Errorf("unknown recognizer outcome %s", outcome))
	}
}

func (m *Manager) completeJob(ctx context.Context, logger *slog.Logger, job *queue.Job, outputDir string) {
	srtPath := recognizer.SRTPath(job.VideoPath, outputDir)
	if _, err := os.Stat(srtPath); err != nil {
		// The recognizer exited cleanly without captions. Treat as a
		// soft success so the lesson is not stuck in processing.
		logger.Warn("recognizer completed without captions", logging.String("expected_path", srtPath))
		m.finishJob(ctx, logger, job, queue.StatusCompleted, "", "", "")
		m.notifyWaiter(job.ID, m.fetchFinal(ctx, job.ID), nil)
		return
	}

	destDir, urlBase := transcriptTargets(m.cfg.Paths.UploadDir, job.CourseID)
	base := filepath.Base(srtPath)
	destPath := filepath.Join(destDir, base)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		m.publishFailed(ctx, logger, job, err)
		return
	}
	if err := fileutil.CopyFileVerified(srtPath, destPath); err != nil {
		m.publishFailed(ctx, logger, job, err)
		return
	}

	transcriptURL := urlBase + "/" + base
	m.finishJob(ctx, logger, job, queue.StatusCompleted, "", destPath, "")
	m.updateLesson(ctx, logger, job.LessonID, lessons.Update{
		Status:        string(queue.StatusCompleted),
		TranscriptURL: &transcriptURL,
	})
	logger.Info("transcription completed", logging.String("transcript_url", transcriptURL))

	// JSON segments are a best-effort companion artifact. Conversion
	// failure leaves the job completed with captions only.
	segments, err := subtitles.ConvertFile(srtPath)
	if err != nil || len(segments) == 0 {
		logger.Warn("caption conversion produced no segments", logging.Error(err))
		m.notifyWaiter(job.ID, m.fetchFinal(ctx, job.ID), nil)
		return
	}
	jsonBase := strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
	jsonPath := filepath.Join(destDir, jsonBase)
	if err := subtitles.WriteSegmentsJSON(jsonPath, segments); err != nil {
		logger.Warn("failed to write caption segments", logging.Error(err))
		m.notifyWaiter(job.ID, m.fetchFinal(ctx, job.ID), nil)
		return
	}
	if err := m.store.SetTranscriptJSONPath(ctx, job.ID, jsonPath); err != nil {
		logger.Warn("failed to record caption segments path", logging.Error(err))
	}
	jsonURL := urlBase + "/" + jsonBase
	m.updateLesson(ctx, logger, job.LessonID, lessons.Update{
		Status:            string(queue.StatusCompleted),
		TranscriptURL:     &transcriptURL,
		TranscriptJSONURL: &jsonURL,
	})
	m.notifyWaiter(job.ID, m.fetchFinal(ctx, job.ID), nil)
}

func (m *Manager) publishFailed(ctx context.Context, logger *slog.Logger, job *queue.Job, err error) {
	message := fmt.Sprintf("failed to publish transcript: %v", err)
	logger.Error("transcript publish failed", logging.Error(err))
	m.finishJob(ctx, logger, job, queue.StatusFailed, message, "", "")
	m.notifyWaiter(job.ID, m.fetchFinal(ctx, job.ID), err)
}

// finishJob records the terminal queue transition and mirrors the status
// onto the lesson record.
func (m *Manager) finishJob(ctx context.Context, logger *slog.Logger, job *queue.Job, status queue.Status, errorMessage, transcriptPath, transcriptJSONPath string) {
	if err := m.store.Finish(ctx, job.ID, status, errorMessage, transcriptPath, transcriptJSONPath); err != nil {
		logger.Error("failed to persist job outcome", logging.Error(err))
	}
	if status != queue.StatusCompleted || transcriptPath == "" {
		m.updateLesson(ctx, logger, job.LessonID, lessons.Update{Status: string(status)})
	}
}

func (m *Manager) updateLesson(ctx context.Context, logger *slog.Logger, lessonID string, update lessons.Update) {
	if m.lessons == nil {
		return
	}
	if err := m.lessons.UpdateTranscript(ctx, lessonID, update); err != nil {
		logger.Warn("failed to update lesson record", logging.Error(err))
	}
}

func (m *Manager) fetchFinal(ctx context.Context, jobID int64) *queue.Job {
	job, err := m.store.GetByID(ctx, jobID)
	if err != nil {
		return nil
	}
	return job
}

// transcriptTargets returns the publication directory and public URL prefix
// for a course's transcripts.
func transcriptTargets(uploadDir, courseID string) (string, string) {
	if courseID == "" {
		return filepath.Join(uploadDir, "transcripts"), "/uploads/transcripts"
	}
	return filepath.Join(uploadDir, "courses", courseID, "transcripts"),
		"/uploads/courses/" + courseID + "/transcripts"
}

func lastOutputLine(output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return ""
	}
	lines := strings.Split(output, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
