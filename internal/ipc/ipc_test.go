package ipc

import (
	"context"
	"testing"
	"time"

	"lectern/internal/daemon"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/testsupport"
)

func startServer(t *testing.T) (*Client, *daemon.Daemon) {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithRecognizerScript(testsupport.RecognizerOKScript))
	store := testsupport.MustOpenStore(t, cfg)
	lessonStore := testsupport.MustOpenLessonStore(t, cfg)

	d, err := daemon.New(cfg, store, lessonStore, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New returned error: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start returned error: %v", err)
	}
	t.Cleanup(d.Stop)

	socket := cfg.SocketPathOrDefault()
	server, err := NewServer(context.Background(), socket, d, logging.NewNop())
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := Dial(socket)
	if err != nil {
		t.Fatalf("Dial returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, d
}

func TestEnqueueAndStatusOverIPC(t *testing.T) {
	client, d := startServer(t)

	resp, err := client.Enqueue(EnqueueRequest{
		LessonID:  "lesson-1",
		VideoPath: "/videos/intro.mp4",
		CourseID:  "course-3",
	})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if resp.JobID == 0 {
		t.Fatal("expected non-zero job id")
	}

	status, err := client.QueueStatus()
	if err != nil {
		t.Fatalf("QueueStatus returned error: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.RunID == "" {
		t.Fatal("expected run id from running daemon")
	}

	// Wait for the stub recognizer to finish.
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		job, err := d.GetJob(context.Background(), resp.JobID)
		if err != nil {
			t.Fatalf("GetJob returned error: %v", err)
		}
		if job.Status.IsTerminal() {
			if job.Status != queue.StatusCompleted {
				t.Fatalf("expected completed job, got %q (%s)", job.Status, job.ErrorMessage)
			}
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	list, err := client.QueueList(nil)
	if err != nil {
		t.Fatalf("QueueList returned error: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != resp.JobID {
		t.Fatalf("unexpected job list: %+v", list.Jobs)
	}
}

func TestEnqueueValidationOverIPC(t *testing.T) {
	client, _ := startServer(t)

	if _, err := client.Enqueue(EnqueueRequest{VideoPath: "/videos/a.mp4"}); err == nil {
		t.Fatal("expected validation error for missing lesson id")
	}
}

func TestCancelOverIPC(t *testing.T) {
	client, _ := startServer(t)

	resp, err := client.Cancel("lesson-unknown")
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if resp.Cancelled {
		t.Fatal("expected false for untracked lesson")
	}
	if _, err := client.Cancel(""); err == nil {
		t.Fatal("expected error for empty lesson id")
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	client, _ := startServer(t)

	if _, err := client.QueueList([]string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown status filter")
	}
}

func TestQueueClearOverIPC(t *testing.T) {
	client, d := startServer(t)

	resp, err := client.Enqueue(EnqueueRequest{LessonID: "lesson-1", VideoPath: "/videos/a.mp4"})
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		job, err := d.GetJob(context.Background(), resp.JobID)
		if err != nil {
			t.Fatalf("GetJob returned error: %v", err)
		}
		if job.Status.IsTerminal() {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	cleared, err := client.QueueClear()
	if err != nil {
		t.Fatalf("QueueClear returned error: %v", err)
	}
	if cleared.Removed != 1 {
		t.Fatalf("expected 1 removed job, got %d", cleared.Removed)
	}
}
