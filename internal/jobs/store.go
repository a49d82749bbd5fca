// Package jobs persists jobs and their per-task progress as a single JSON
// document guarded by an advisory lock, so interrupted runs can resume where
// they stopped.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/services"
)

// document is the on-disk shape of the store.
type document struct {
	NextID int64  `json:"next_id"`
	Jobs   []*Job `json:"jobs"`
}

// Store manages job persistence backed by a JSON document. A single run owns
// the store exclusively for its lifetime via a flock on jobs.lock.
type Store struct {
	path string
	lock *flock.Flock
	doc  document
}

// Open acquires the store lock and loads the document. A second run against
// the same store fails immediately rather than corrupting shared state.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store directory: %w", err)
	}

	lock := flock.New(lockPath(path))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrInputInvalid, "jobs", "open",
			"another run is already using this job store", nil)
	}

	store := &Store{path: path, lock: lock}
	if err := store.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

func lockPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".lock"
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.doc = document{NextID: 1}
		return nil
	}
	if err != nil {
		return services.Wrap(services.ErrStateCorruption, "jobs", "read", s.path, err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return services.Wrap(services.ErrStateCorruption, "jobs", "parse", s.path, err)
	}
	if s.doc.NextID < 1 {
		s.doc.NextID = 1
	}
	return nil
}

// persist writes the whole document atomically: serialize to a temp file in
// the same directory, fsync, then rename over the old document. A crash at
// any point leaves either the prior or the new complete document.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".jobs-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace job store: %w", err)
	}
	return nil
}

// Close releases the advisory lock.
func (s *Store) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// CreateJob assigns the next monotonic ID and persists the new job
// immediately.
func (s *Store) CreateJob(sources []string, model string) (*Job, error) {
	if len(sources) == 0 {
		return nil, services.Wrap(services.ErrInputInvalid, "jobs", "create", "at least one source required", nil)
	}
	if strings.TrimSpace(model) == "" {
		return nil, services.Wrap(services.ErrInputInvalid, "jobs", "create", "model name required", nil)
	}

	job := &Job{
		ID:        s.doc.NextID,
		CreatedAt: time.Now().UTC(),
		Model:     model,
		Sources:   append([]string{}, sources...),
		Status:    JobInitializing,
	}
	s.doc.NextID++
	s.doc.Jobs = append(s.doc.Jobs, job)

	if err := s.persist(); err != nil {
		return nil, err
	}
	return job.clone(), nil
}

// GetJob fetches a job by ID.
func (s *Store) GetJob(id int64) (*Job, error) {
	job := s.find(id)
	if job == nil {
		return nil, fmt.Errorf("job %d not found", id)
	}
	return job.clone(), nil
}

// UpdateJobStatus persists a job status change.
func (s *Store) UpdateJobStatus(id int64, status JobStatus) error {
	job := s.find(id)
	if job == nil {
		return fmt.Errorf("job %d not found", id)
	}
	job.Status = status
	return s.persist()
}

// AppendTask adds a newly discovered task to a job and persists. The task's
// source acts as its key; appending an already-known source is a no-op so
// re-resolution after a resume cannot duplicate tasks.
func (s *Store) AppendTask(jobID int64, task Task) error {
	job := s.find(jobID)
	if job == nil {
		return fmt.Errorf("job %d not found", jobID)
	}
	if existing := job.Task(task.Source); existing != nil {
		return nil
	}
	if task.Status == "" {
		task.Status = TaskPending
	}
	task.UpdatedAt = time.Now().UTC()
	job.Tasks = append(job.Tasks, task)
	if job.Status == JobInitializing {
		job.Status = JobProcessing
	}
	return s.persist()
}

// UpdateTaskStatus transitions a task and persists. Illegal back-transitions
// are rejected to keep the state machine forward-only.
func (s *Store) UpdateTaskStatus(jobID int64, source string, status TaskStatus, title string) error {
	job := s.find(jobID)
	if job == nil {
		return fmt.Errorf("job %d not found", jobID)
	}
	task := job.Task(source)
	if task == nil {
		return fmt.Errorf("job %d has no task for source %q", jobID, source)
	}
	if !task.Status.CanTransition(status) {
		return services.Wrap(services.ErrInputInvalid, "jobs", "transition",
			fmt.Sprintf("task %q cannot move %s -> %s", source, task.Status, status), nil)
	}
	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	if title != "" {
		task.Title = title
	}
	return s.persist()
}

// SetTaskError records a failure message alongside the failed status.
func (s *Store) SetTaskError(jobID int64, source string, message string) error {
	job := s.find(jobID)
	if job == nil {
		return fmt.Errorf("job %d not found", jobID)
	}
	task := job.Task(source)
	if task == nil {
		return fmt.Errorf("job %d has no task for source %q", jobID, source)
	}
	task.Status = TaskFailed
	task.Error = message
	task.UpdatedAt = time.Now().UTC()
	return s.persist()
}

// ListJobs returns all jobs in creation order.
func (s *Store) ListJobs() []*Job {
	out := make([]*Job, 0, len(s.doc.Jobs))
	for _, job := range s.doc.Jobs {
		out = append(out, job.clone())
	}
	return out
}

// LastUnfinished scans jobs newest-first and returns the first job that has
// not reached a terminal status, or nil.
func (s *Store) LastUnfinished() *Job {
	for i := len(s.doc.Jobs) - 1; i >= 0; i-- {
		if !s.doc.Jobs[i].Status.IsTerminal() {
			return s.doc.Jobs[i].clone()
		}
	}
	return nil
}

func (s *Store) find(id int64) *Job {
	for _, job := range s.doc.Jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

func (j *Job) clone() *Job {
	cp := *j
	cp.Sources = append([]string{}, j.Sources...)
	cp.Tasks = append([]Task{}, j.Tasks...)
	return &cp
}
