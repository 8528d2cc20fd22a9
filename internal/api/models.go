package api

import (
	"time"

	"appreviews/internal/batch"
)

// JobRequest carries the app list in the same shape as the app list file, so
// app_id may be a JSON number or a string.
type JobRequest struct {
	Apps []map[string]interface{} `json:"apps" validate:"required,min=1"`
}

// JobResponse is returned after a successful job creation.
type JobResponse struct {
	JobID string `json:"job_id"`
}

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusFinished  = "finished"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

type AppStatus struct {
	AppName string `json:"app_name"`
	AppID   string `json:"app_id"`
	Pages   int    `json:"pages"`
	Reviews int    `json:"reviews"`
	File    string `json:"file,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JobStatus represents the runtime state of a submitted job.
type JobStatus struct {
	JobID      string      `json:"job_id"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	QueuedAt   time.Time   `json:"queued_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	MasterFile string      `json:"master_file,omitempty"`
	Rows       int         `json:"rows"`
	Apps       []AppStatus `json:"apps,omitempty"`
}

func (s *JobStatus) done() bool {
	switch s.Status {
	case StatusFinished, StatusError, StatusCancelled:
		return true
	}
	return false
}

func (s *JobStatus) apply(summary *batch.Summary) {
	if summary == nil {
		return
	}
	s.MasterFile = summary.MasterFile
	s.Rows = summary.Rows
	s.Apps = s.Apps[:0]
	for _, a := range summary.Apps {
		as := AppStatus{
			AppName: a.App.AppName,
			AppID:   a.App.AppID,
			Pages:   a.Pages,
			Reviews: a.Reviews,
			File:    a.File,
		}
		if a.Err != nil {
			as.Error = a.Err.Error()
		}
		s.Apps = append(s.Apps, as)
	}
}
