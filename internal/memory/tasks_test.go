package memory

import (
	"testing"
	"time"
)

func TestTaskLifecycle(t *testing.T) {
	s := NewStore("Assistant")

	task := s.StartTask("verify stale entities")
	if task.Status != TaskRunning {
		t.Fatalf("new task must be running, got %s", task.Status)
	}
	if task.ID == "" {
		t.Fatal("task must get an ID")
	}

	if err := s.CompleteTask(task.ID); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	tasks := s.CheckTasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Status != TaskDone || tasks[0].FinishedAt == nil {
		t.Errorf("task not finished properly: %+v", tasks[0])
	}

	// Finishing a finished task is a no-op
	if err := s.AbortTask(task.ID); err != nil {
		t.Fatalf("repeated finish errored: %v", err)
	}
	if got := s.CheckTasks()[0].Status; got != TaskDone {
		t.Errorf("finished status must not change, got %s", got)
	}
}

func TestFinishUnknownTask(t *testing.T) {
	s := NewStore("Assistant")
	err := s.CompleteTask("missing")
	if err == nil {
		t.Fatal("unknown task must fail")
	}
	if _, ok := err.(ErrTaskNotFound); !ok {
		t.Errorf("expected ErrTaskNotFound, got %T", err)
	}
}

func TestCheckTasksOrdersRunningFirst(t *testing.T) {
	s := NewStore("Assistant")

	done := s.StartTask("already finished")
	s.CompleteTask(done.ID)
	time.Sleep(time.Millisecond)
	s.StartTask("still running")

	tasks := s.CheckTasks()
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Status != TaskRunning {
		t.Errorf("running task must sort first: %+v", tasks)
	}
}
