package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"lectern/internal/daemon"
	"lectern/internal/logging"
	"lectern/internal/logs"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/transcriber"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Lectern", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

// Enqueue submits a transcription job for a lesson video.
func (s *service) Enqueue(req EnqueueRequest, resp *EnqueueResponse) error {
	handle, err := s.daemon.Enqueue(s.ctx, transcriber.Request{
		LessonID:  req.LessonID,
		VideoPath: req.VideoPath,
		UserID:    req.UserID,
		CourseID:  req.CourseID,
	})
	if err != nil {
		if services.IsCallerError(err) {
			s.logger.Warn("enqueue rejected",
				logging.String(logging.FieldLessonID, req.LessonID),
				logging.Error(err))
		} else {
			s.logger.Error("enqueue failed",
				logging.String(logging.FieldLessonID, req.LessonID),
				logging.Error(err))
		}
		return err
	}
	resp.JobID = handle.JobID
	s.logger.Info("transcription requested via ipc",
		logging.Int64(logging.FieldJobID, handle.JobID),
		logging.String(logging.FieldLessonID, req.LessonID))
	return nil
}

// Cancel stops the running transcription for a lesson.
func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	if req.LessonID == "" {
		return errors.New("lesson id is required")
	}
	resp.Cancelled = s.daemon.Cancel(req.LessonID)
	return nil
}

// QueueStatus reports daemon state and per-status job counts.
func (s *service) QueueStatus(_ QueueStatusRequest, resp *QueueStatusResponse) error {
	status, err := s.daemon.Status(s.ctx)
	if err != nil {
		return err
	}
	counts := make(map[string]int, len(status.QueueStats))
	for st, count := range status.QueueStats {
		counts[string(st)] = count
	}
	resp.Running = status.Running
	resp.RunID = status.RunID
	resp.ActiveLessons = status.ActiveLessons
	resp.Counts = counts
	resp.QueueDBPath = status.QueueDBPath
	resp.PID = os.Getpid()
	return nil
}

// QueueList returns jobs optionally filtered by status.
func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	statuses := make([]queue.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		parsed, ok := queue.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, parsed)
	}
	jobs, err := s.daemon.ListQueue(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Jobs = make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		resp.Jobs = append(resp.Jobs, fromQueueJob(job))
	}
	return nil
}

// QueueClear removes finished jobs from the queue.
func (s *service) QueueClear(_ QueueClearRequest, resp *QueueClearResponse) error {
	removed, err := s.daemon.ClearTerminal(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.logger.Info("finished jobs cleared",
		logging.String(logging.FieldEventType, "queue_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

// LogTail returns daemon log lines starting at the requested offset.
func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if req.Follow && wait <= 0 {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func fromQueueJob(job *queue.Job) Job {
	view := Job{
		ID:                 job.ID,
		LessonID:           job.LessonID,
		VideoPath:          job.VideoPath,
		CourseID:           job.CourseID,
		Status:             string(job.Status),
		TranscriptPath:     job.TranscriptPath,
		TranscriptJSONPath: job.TranscriptJSONPath,
		ErrorMessage:       job.ErrorMessage,
		CreatedAt:          job.CreatedAt.Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		view.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return view
}
