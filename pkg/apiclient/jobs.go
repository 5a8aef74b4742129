package apiclient

import (
	"time"
)

// Job represents an import job.
type Job struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	Filename       string            `json:"filename"`
	StorageKey     string            `json:"storage_key"`
	State          string            `json:"state"`
	HeaderRowIndex int               `json:"header_row_index"`
	Delimiter      string            `json:"delimiter"`
	RowsSeen       int64             `json:"rows_seen"`
	RowsInserted   int64             `json:"rows_inserted"`
	RowsRejected   int64             `json:"rows_rejected"`
	ResumeFrom     int64             `json:"resume_from"`
	PauseRequested bool              `json:"pause_requested"`
	Error          string            `json:"error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Mapping        map[string]string `json:"mapping,omitempty"`
	Headers        []string          `json:"headers,omitempty"`
}

// Terminal reports whether the job has finished for good.
func (j *Job) Terminal() bool {
	return j.State == "COMPLETED" || j.State == "FAILED"
}

// ProcessRequest asks the server to ingest an uploaded file.
type ProcessRequest struct {
	// FilePath is the storage key answered by the final upload chunk.
	FilePath string `json:"filePath"`

	// FileName is the optional display name shown in job listings.
	FileName string `json:"fileName,omitempty"`

	// Mapping maps source column names to candidate fields.
	Mapping map[string]string `json:"mapping"`
}

type processResponse struct {
	JobID string `json:"jobId"`
}

type jobListResponse struct {
	Jobs []*Job `json:"jobs"`
}

// Process creates an import job for an uploaded file and queues it for
// background processing. It returns the job id to poll.
func (c *Client) Process(req *ProcessRequest) (string, error) {
	resp, err := postResource[processResponse](c, "/candidates/process", req)
	if err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// JobStatus returns the current state and progress counters of a job.
func (c *Client) JobStatus(jobID string) (*Job, error) {
	return getResource[Job](c, resourcePath("/candidates/job/%s/status", jobID))
}

// Jobs returns the caller's import jobs, newest first.
func (c *Client) Jobs() ([]*Job, error) {
	resp, err := getResource[jobListResponse](c, "/candidates/jobs")
	if err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// PauseJob requests a pause at the next batch boundary. Pausing a job that
// is already pausing or finished succeeds without effect.
func (c *Client) PauseJob(jobID string) (*Job, error) {
	return postResource[Job](c, resourcePath("/candidates/%s/pause", jobID), nil)
}

// ResumeJob re-queues a paused or failed job; processing continues from the
// job's persisted resume point.
func (c *Client) ResumeJob(jobID string) (*Job, error) {
	return postResource[Job](c, resourcePath("/candidates/%s/resume", jobID), nil)
}
