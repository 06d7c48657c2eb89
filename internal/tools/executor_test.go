package tools

import (
	"context"
	"testing"
	"time"

	"mnemo/internal/memory"
)

func newTestExecutor() (*Executor, *memory.Store) {
	store := memory.NewStore("Assistant")
	return NewExecutor(store, nil, 7*24*time.Hour, 30*24*time.Hour), store
}

func execute(t *testing.T, e *Executor, name string, args map[string]interface{}) *ToolResult {
	t.Helper()
	return e.Execute(context.Background(), &ExecutionContext{UserID: "tester"}, name, args)
}

func TestSaveAndSearchKnowledge(t *testing.T) {
	e, _ := newTestExecutor()

	res := execute(t, e, ToolSaveKnowledge, map[string]interface{}{
		"entity":      "Postgres",
		"entity_type": "technology",
		"content":     "Primary database for the billing service",
	})
	if !res.Success {
		t.Fatalf("save_knowledge failed: %s", res.Error)
	}

	res = execute(t, e, ToolSearchKnowledge, map[string]interface{}{"query": "billing"})
	if !res.Success {
		t.Fatalf("search_knowledge failed: %s", res.Error)
	}
	hits, ok := res.Data.([]memory.KnowledgeHit)
	if !ok || len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %#v", res.Data)
	}
	if hits[0].Entity != "Postgres" {
		t.Errorf("expected Postgres hit, got %s", hits[0].Entity)
	}
}

func TestUpdateEntityThenHistoryShowsBothVersions(t *testing.T) {
	e, store := newTestExecutor()

	obs := memory.NewObservation("Lives in Oslo", memory.StageFact, "user")
	if _, err := store.AddEntity("Kari", memory.EntityPerson, []memory.Observation{obs}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	res := execute(t, e, ToolUpdateEntity, map[string]interface{}{
		"entity":         "kari",
		"observation_id": obs.ID,
		"new_content":    "Lives in Bergen",
	})
	if !res.Success {
		t.Fatalf("update_entity failed: %s", res.Error)
	}

	res = execute(t, e, ToolGetFactHistory, map[string]interface{}{"entity": "Kari"})
	if !res.Success {
		t.Fatalf("get_fact_history failed: %s", res.Error)
	}
	history := res.Data.([]memory.FactRecord)
	if len(history) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(history))
	}
	if history[0].Active || !history[1].Active {
		t.Errorf("expected old inactive and new active: %+v", history)
	}
}

func TestRemoveFactOnUnknownEntityFails(t *testing.T) {
	e, _ := newTestExecutor()

	res := execute(t, e, ToolRemoveFact, map[string]interface{}{
		"entity":         "nobody",
		"observation_id": "missing",
	})
	if res.Success {
		t.Fatal("remove_fact on unknown entity must fail")
	}
	if res.Error == "" {
		t.Error("expected a NotFound error message")
	}
}

func TestAddRelationRejectsUnknownType(t *testing.T) {
	e, _ := newTestExecutor()

	execute(t, e, ToolAddEntity, map[string]interface{}{"name": "Alice", "entity_type": "person"})
	execute(t, e, ToolAddEntity, map[string]interface{}{"name": "CRM Rewrite", "entity_type": "project"})

	res := execute(t, e, ToolAddRelation, map[string]interface{}{
		"from":          "Alice",
		"to":            "CRM Rewrite",
		"relation_type": "admires",
	})
	if res.Success {
		t.Fatal("unknown relation type must be rejected")
	}

	res = execute(t, e, ToolAddRelation, map[string]interface{}{
		"from":          "Alice",
		"to":            "CRM Rewrite",
		"relation_type": "works_on",
	})
	if !res.Success {
		t.Fatalf("valid relation rejected: %s", res.Error)
	}
	if created, _ := res.Data.(bool); !created {
		t.Error("first valid relation should report created=true")
	}

	// Duplicate triple is not an error, just not created again
	res = execute(t, e, ToolAddRelation, map[string]interface{}{
		"from":          "alice",
		"to":            "crm rewrite",
		"relation_type": "works_on",
	})
	if !res.Success {
		t.Fatalf("duplicate relation errored: %s", res.Error)
	}
	if created, _ := res.Data.(bool); created {
		t.Error("duplicate relation must not report created=true")
	}
}

func TestTaskLifecycle(t *testing.T) {
	e, _ := newTestExecutor()

	res := execute(t, e, ToolStartTask, map[string]interface{}{"description": "migrate billing tables"})
	if !res.Success {
		t.Fatalf("start_task failed: %s", res.Error)
	}
	task := res.Data.(*memory.Task)

	if res := execute(t, e, ToolCompleteTask, map[string]interface{}{"task_id": task.ID}); !res.Success {
		t.Fatalf("complete_task failed: %s", res.Error)
	}

	res = execute(t, e, ToolCheckTasks, nil)
	tasks := res.Data.([]memory.Task)
	if len(tasks) != 1 || tasks[0].Status != memory.TaskDone {
		t.Fatalf("expected one done task, got %+v", tasks)
	}

	if res := execute(t, e, ToolCompleteTask, map[string]interface{}{"task_id": "no-such-task"}); res.Success {
		t.Error("completing an unknown task must fail")
	}
}

func TestSelfObserveAndStats(t *testing.T) {
	e, _ := newTestExecutor()

	res := execute(t, e, ToolSelfObserve, map[string]interface{}{
		"content": "[user-preference-about-me] Keep answers short",
	})
	if !res.Success {
		t.Fatalf("self_observe failed: %s", res.Error)
	}

	res = execute(t, e, ToolGetSelfEntity, nil)
	if !res.Success {
		t.Fatalf("get_self_entity failed: %s", res.Error)
	}
	self := res.Data.(*memory.Entity)
	if len(self.Observations) != 1 {
		t.Fatalf("expected 1 self observation, got %d", len(self.Observations))
	}

	res = execute(t, e, ToolMemoryStats, nil)
	stats := res.Data.(memory.Stats)
	if stats.Entities != 1 || stats.Observations != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestUnknownToolFails(t *testing.T) {
	e, _ := newTestExecutor()
	res := execute(t, e, "launch_rockets", nil)
	if res.Success {
		t.Fatal("unknown tool must fail")
	}
}

func TestGetAllToolsNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, tool := range GetAllTools() {
		if tool.Function.Name == "" {
			t.Error("tool with empty name")
		}
		if seen[tool.Function.Name] {
			t.Errorf("duplicate tool name: %s", tool.Function.Name)
		}
		seen[tool.Function.Name] = true
	}
	if len(seen) != 22 {
		t.Errorf("expected 22 tools, got %d", len(seen))
	}
}
