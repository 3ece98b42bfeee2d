package ipc

// EnqueueRequest submits a lesson video for transcription.
type EnqueueRequest struct {
	LessonID  string `json:"lesson_id"`
	VideoPath string `json:"video_path"`
	UserID    string `json:"user_id"`
	CourseID  string `json:"course_id"`
}

// EnqueueResponse reports the created job.
type EnqueueResponse struct {
	JobID int64 `json:"job_id"`
}

// CancelRequest stops a lesson's running transcription.
type CancelRequest struct {
	LessonID string `json:"lesson_id"`
}

// CancelResponse indicates whether a running job was found.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// QueueStatusRequest fetches daemon and queue status.
type QueueStatusRequest struct{}

// QueueStatusResponse summarizes the daemon state.
type QueueStatusResponse struct {
	Running       bool           `json:"running"`
	RunID         string         `json:"run_id"`
	ActiveLessons []string       `json:"active_lessons"`
	Counts        map[string]int `json:"counts"`
	QueueDBPath   string         `json:"queue_db_path"`
	PID           int            `json:"pid"`
}

// Job mirrors a queue row for IPC callers.
type Job struct {
	ID                 int64  `json:"id"`
	LessonID           string `json:"lesson_id"`
	VideoPath          string `json:"video_path"`
	CourseID           string `json:"course_id"`
	Status             string `json:"status"`
	TranscriptPath     string `json:"transcript_path"`
	TranscriptJSONPath string `json:"transcript_json_path"`
	ErrorMessage       string `json:"error_message"`
	CreatedAt          string `json:"created_at"`
	CompletedAt        string `json:"completed_at"`
}

// QueueListRequest filters job listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Jobs []Job `json:"jobs"`
}

// LogTailRequest fetches daemon log lines.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// QueueClearRequest removes finished jobs.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}
