package transcriber

import (
	"context"

	"lectern/internal/queue"
)

// Handle lets an in-process caller await the outcome of an enqueued job.
type Handle struct {
	JobID    int64
	LessonID string

	done chan struct{}
	job  *queue.Job
	err  error
}

func newHandle(job *queue.Job) *Handle {
	return &Handle{JobID: job.ID, LessonID: job.LessonID, done: make(chan struct{})}
}

func (h *Handle) complete(job *queue.Job, err error) {
	h.job = job
	h.err = err
	close(h.done)
}

// Done returns a channel closed once the job has reached a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job finishes or ctx is cancelled. On success the
// returned job carries the terminal status and any artifact paths.
func (h *Handle) Wait(ctx context.Context) (*queue.Job, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return h.job, h.err
	}
}
