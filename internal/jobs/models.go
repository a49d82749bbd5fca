package jobs

import (
	"strings"
	"time"
)

// TaskStatus represents the lifecycle of a task.
type TaskStatus string

const (
	TaskPending      TaskStatus = "pending"
	TaskProcessing   TaskStatus = "processing"
	TaskTranscribing TaskStatus = "transcribing"
	TaskCompleted    TaskStatus = "completed"
	TaskSkipped      TaskStatus = "skipped"
	TaskFailed       TaskStatus = "failed"
)

// JobStatus represents the lifecycle of a job.
type JobStatus string

const (
	JobInitializing JobStatus = "initializing"
	JobProcessing   JobStatus = "processing"
	JobCompleted    JobStatus = "completed"
	JobFailed       JobStatus = "failed"
)

var taskStatusRank = map[TaskStatus]int{
	TaskPending:      0,
	TaskProcessing:   1,
	TaskTranscribing: 2,
	TaskCompleted:    3,
	TaskSkipped:      3,
	TaskFailed:       3,
}

// IsTerminal reports whether a task status is final.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskSkipped, TaskFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a task may move from s to next. Tasks only
// move forward, with one exception: a resumed run may re-open transcribing.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	from, ok := taskStatusRank[s]
	if !ok {
		return false
	}
	to, ok := taskStatusRank[next]
	if !ok {
		return false
	}
	if s == TaskFailed && next == TaskTranscribing {
		// Resume logic re-opens an interrupted transcription.
		return true
	}
	return to >= from
}

// ParseTaskStatus converts a string into a known TaskStatus.
func ParseTaskStatus(value string) (TaskStatus, bool) {
	normalized := TaskStatus(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := taskStatusRank[normalized]; !ok {
		return "", false
	}
	return normalized, true
}

// Task is the atomic unit of work: one playable item resolved from a source.
type Task struct {
	Source    string     `json:"source"`
	ItemID    string     `json:"item_id"`
	Title     string     `json:"title,omitempty"`
	Status    TaskStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Job is a persisted batch of tasks produced from one user invocation.
type Job struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Model     string    `json:"model"`
	Sources   []string  `json:"sources"`
	Status    JobStatus `json:"status"`
	Tasks     []Task    `json:"tasks"`
}

// IsTerminal reports whether a job status is final.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Task returns a pointer to the task matching the source key, or nil.
func (j *Job) Task(source string) *Task {
	for i := range j.Tasks {
		if j.Tasks[i].Source == source {
			return &j.Tasks[i]
		}
	}
	return nil
}

// TerminalSources returns the set of source keys whose tasks already reached
// a terminal status; the driver skips these on resume.
func (j *Job) TerminalSources() map[string]struct{} {
	set := make(map[string]struct{})
	for _, task := range j.Tasks {
		if task.Status.IsTerminal() {
			set[task.Source] = struct{}{}
		}
	}
	return set
}

// AllTasksTerminal reports whether every task has finished one way or another.
func (j *Job) AllTasksTerminal() bool {
	for _, task := range j.Tasks {
		if !task.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Counts summarizes task outcomes for listings.
type Counts struct {
	Total     int
	Completed int
	Skipped   int
	Failed    int
	Open      int
}

// TaskCounts tallies task statuses.
func (j *Job) TaskCounts() Counts {
	var c Counts
	c.Total = len(j.Tasks)
	for _, task := range j.Tasks {
		switch task.Status {
		case TaskCompleted:
			c.Completed++
		case TaskSkipped:
			c.Skipped++
		case TaskFailed:
			c.Failed++
		default:
			c.Open++
		}
	}
	return c
}
