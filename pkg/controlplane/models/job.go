package models

import (
	"encoding/json"
	"time"
)

// JobState represents the lifecycle state of an upload job.
type JobState string

const (
	// JobStateMappingPending is the initial state: the job exists and has a
	// stored mapping, but no worker has picked it up yet.
	JobStateMappingPending JobState = "MAPPING_PENDING"
	// JobStateProcessing means exactly one worker owns the job and is
	// streaming rows from the source object.
	JobStateProcessing JobState = "PROCESSING"
	// JobStateCompleted means the source was consumed to EOF. Terminal.
	JobStateCompleted JobState = "COMPLETED"
	// JobStateFailed means a fatal error stopped processing. Terminal,
	// but the job may be re-enqueued via resume.
	JobStateFailed JobState = "FAILED"
	// JobStatePaused means the orchestrator honored a pause request and
	// persisted a resume point.
	JobStatePaused JobState = "PAUSED"
)

// IsValid checks if the state is a known JobState.
func (s JobState) IsValid() bool {
	switch s {
	case JobStateMappingPending, JobStateProcessing, JobStateCompleted, JobStateFailed, JobStatePaused:
		return true
	}
	return false
}

// IsTerminal reports whether the state freezes the job's counters.
// Terminal jobs can still be resumed, which re-enters PROCESSING.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// jobTransitions enumerates the legal state machine edges.
//
// COMPLETED and FAILED allow re-entry into PROCESSING because resume is
// permitted from any of PAUSED, FAILED and COMPLETED.
var jobTransitions = map[JobState][]JobState{
	JobStateMappingPending: {JobStateProcessing, JobStateFailed},
	JobStateProcessing:     {JobStateCompleted, JobStateFailed, JobStatePaused},
	JobStatePaused:         {JobStateProcessing, JobStateFailed},
	JobStateCompleted:      {JobStateProcessing},
	JobStateFailed:         {JobStateProcessing},
}

// CanTransitionTo reports whether the edge s -> to is legal.
func (s JobState) CanTransitionTo(to JobState) bool {
	for _, next := range jobTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CanResume reports whether a job in this state accepts a resume request.
func (s JobState) CanResume() bool {
	return s == JobStatePaused || s == JobStateFailed || s == JobStateCompleted
}

// UploadJob tracks one candidate-import job from mapping to completion.
//
// The stored header row, header row index and delimiter are captured when the
// job is created and never change afterwards, so a resumed job always parses
// the source object exactly the way the original run did. Counters are
// monotonically non-decreasing and satisfy
// rows_inserted + rows_rejected <= rows_seen at every persisted snapshot.
type UploadJob struct {
	ID         string   `gorm:"primaryKey;size:36" json:"id"`
	UserID     string   `gorm:"not null;size:255;index" json:"user_id"`
	Filename   string   `gorm:"not null;size:512" json:"filename"`
	StorageKey string   `gorm:"not null;size:1024" json:"storage_key"`
	State      JobState `gorm:"not null;default:MAPPING_PENDING;size:32;index" json:"state"`

	// Mapping is the JSON-encoded destination-field -> source-header map.
	Mapping string `gorm:"type:text" json:"-"`
	// Headers is the JSON-encoded header row captured at mapping time.
	Headers string `gorm:"type:text" json:"-"`

	// HeaderRowIndex and Delimiter come from header detection and make
	// reprocessing reproducible without re-sniffing the source.
	HeaderRowIndex int    `gorm:"default:0" json:"header_row_index"`
	Delimiter      string `gorm:"size:8;default:','" json:"delimiter"`

	RowsSeen     int64 `gorm:"default:0" json:"rows_seen"`
	RowsInserted int64 `gorm:"default:0" json:"rows_inserted"`
	RowsRejected int64 `gorm:"default:0" json:"rows_rejected"`

	// ResumeFrom is the data-row index processing restarts from.
	ResumeFrom     int64 `gorm:"default:0" json:"resume_from"`
	PauseRequested bool  `gorm:"default:false" json:"pause_requested"`

	Error string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Parsed forms of the JSON blobs (not stored in the DB).
	ParsedMapping map[string]string `gorm:"-" json:"mapping,omitempty"`
	ParsedHeaders []string          `gorm:"-" json:"headers,omitempty"`
}

// TableName returns the table name for UploadJob.
func (UploadJob) TableName() string {
	return "upload_jobs"
}

// GetMapping returns the parsed destination-field -> source-header map.
func (j *UploadJob) GetMapping() (map[string]string, error) {
	if j.ParsedMapping != nil {
		return j.ParsedMapping, nil
	}
	if j.Mapping == "" {
		return make(map[string]string), nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(j.Mapping), &m); err != nil {
		return nil, err
	}
	j.ParsedMapping = m
	return m, nil
}

// SetMapping stores the mapping as a JSON blob.
func (j *UploadJob) SetMapping(m map[string]string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	j.Mapping = string(data)
	j.ParsedMapping = m
	return nil
}

// GetHeaders returns the parsed stored header row.
func (j *UploadJob) GetHeaders() ([]string, error) {
	if j.ParsedHeaders != nil {
		return j.ParsedHeaders, nil
	}
	if j.Headers == "" {
		return nil, nil
	}
	var h []string
	if err := json.Unmarshal([]byte(j.Headers), &h); err != nil {
		return nil, err
	}
	j.ParsedHeaders = h
	return h, nil
}

// SetHeaders stores the header row as a JSON blob.
func (j *UploadJob) SetHeaders(headers []string) error {
	data, err := json.Marshal(headers)
	if err != nil {
		return err
	}
	j.Headers = string(data)
	j.ParsedHeaders = headers
	return nil
}

// Transition validates and applies a state change.
// Returns ErrInvalidTransition if the edge is not in the state machine.
func (j *UploadJob) Transition(to JobState) error {
	if !j.State.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	j.State = to
	return nil
}
