package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================================================
// Task Tracking
// ============================================================================

// TaskStatus is the lifecycle state of a tracked task
type TaskStatus string

const (
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskAborted TaskStatus = "aborted"
)

// Task is a unit of agent work tracked across conversation turns
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// StartTask registers a new running task
func (s *Store) StartTask(description string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &Task{
		ID:          uuid.New().String(),
		Description: description,
		Status:      TaskRunning,
		StartedAt:   time.Now().UTC(),
	}
	s.tasks[task.ID] = task

	s.logger.Info("Task started",
		zap.String("task_id", task.ID),
		zap.String("description", description),
	)
	return copyTask(task)
}

// CompleteTask marks a running task done
func (s *Store) CompleteTask(id string) error {
	return s.finishTask(id, TaskDone)
}

// AbortTask marks a running task aborted
func (s *Store) AbortTask(id string) error {
	return s.finishTask(id, TaskAborted)
}

func (s *Store) finishTask(id string, status TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return ErrTaskNotFound{ID: id}
	}
	if task.Status != TaskRunning {
		return nil
	}
	now := time.Now().UTC()
	task.Status = status
	task.FinishedAt = &now

	s.logger.Info("Task finished",
		zap.String("task_id", id),
		zap.String("status", string(status)),
	)
	return nil
}

// CheckTasks returns all tasks ordered by start time, running first
func (s *Store) CheckTasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, *copyTask(task))
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Status == TaskRunning) != (out[j].Status == TaskRunning) {
			return out[i].Status == TaskRunning
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

func copyTask(task *Task) *Task {
	cp := *task
	if task.FinishedAt != nil {
		t := *task.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}
