package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"appreviews/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createJob handles POST /jobs
func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := config.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	apps, err := config.ParseApps(req.Apps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID := uuid.NewString()
	entry := &jobEntry{
		status: &JobStatus{JobID: jobID, Status: StatusQueued, QueuedAt: time.Now()},
		apps:   apps,
	}

	s.mu.Lock()
	s.jobs[jobID] = entry
	s.mu.Unlock()

	select {
	case s.queue <- jobID:
	default:
		s.mu.Lock()
		delete(s.jobs, jobID)
		s.mu.Unlock()
		writeError(w, http.StatusServiceUnavailable, "job queue is full")
		return
	}

	logrus.Infof("job %s queued | apps=%d", jobID, len(apps))
	writeJSON(w, http.StatusAccepted, JobResponse{JobID: jobID})
}

// getJob handles GET /jobs/{id}
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	entry, ok := s.jobs[id]
	var status JobStatus
	if ok {
		status = *entry.status
		status.Apps = append([]AppStatus(nil), entry.status.Apps...)
	}
	s.mu.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// cancelJob handles DELETE /jobs/{id}. Queued jobs are never started; a
// running job has its context cancelled and ends at its next request or sleep.
func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	entry, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if entry.status.done() {
		status := entry.status.Status
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "job already "+status)
		return
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	entry.status.Status = StatusCancelled
	finished := time.Now()
	entry.status.FinishedAt = &finished
	s.mu.Unlock()

	logrus.Infof("job %s cancelled", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			s.runJob(ctx, id)
		}
	}
}

// runJob executes one queued job on the worker goroutine.
func (s *Server) runJob(parent context.Context, jobID string) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	if !ok || entry.status.Status != StatusQueued {
		s.mu.Unlock()
		return
	}
	entry.cancel = cancel
	entry.status.Status = StatusRunning
	started := time.Now()
	entry.status.StartedAt = &started
	apps := entry.apps
	s.mu.Unlock()

	logrus.Infof("job %s started | apps=%d", jobID, len(apps))
	summary, err := s.runner.Run(ctx, apps)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry.cancel = nil
	entry.status.apply(summary)
	if entry.status.Status == StatusCancelled {
		return
	}

	finished := time.Now()
	entry.status.FinishedAt = &finished
	switch {
	case ctx.Err() != nil:
		entry.status.Status = StatusCancelled
	case err != nil:
		logrus.Errorf("job %s failed: %v", jobID, err)
		entry.status.Status = StatusError
		entry.status.Error = err.Error()
	default:
		entry.status.Status = StatusFinished
		logrus.Infof("job %s finished | rows=%d", jobID, entry.status.Rows)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Debugf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
